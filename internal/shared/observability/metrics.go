package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calltree_parse_seconds",
		Help:    "Time spent extracting definitions from a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calltree_resolve_seconds",
		Help:    "Time spent resolving call sites across function bodies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calltree_graph_nodes_total",
		Help: "Number of functions in the most recent call graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calltree_graph_edges_total",
		Help: "Number of distinct call edges in the most recent call graph.",
	})

	UnresolvedCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calltree_unresolved_calls_total",
		Help: "Call-shaped tokens whose target had no known definition in the last run.",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calltree_cache_hits_total",
		Help: "Total number of analysis runs served from the result cache.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calltree_cache_misses_total",
		Help: "Total number of analysis runs that re-parsed the source.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calltree_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
