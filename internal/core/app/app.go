package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"calltree/internal/core/config"
	apperrors "calltree/internal/core/errors"
	"calltree/internal/data/cache"
	"calltree/internal/engine/extract"
	"calltree/internal/engine/graph"
	"calltree/internal/engine/resolve"
	"calltree/internal/engine/scanner"
	"calltree/internal/shared/observability"
	"calltree/internal/ui/render"
)

// Report is the structured result of analyzing one file. The rendered tree
// is carried as printable lines; wording and coloring on top of it belong
// to the presentation layer.
type Report struct {
	Path        string
	Language    string
	Fingerprint string
	Functions   []extract.Function
	Edges       []graph.Edge
	Tree        []string
	Summary     render.Summary
	CacheHit    bool
	Duration    time.Duration
}

type App struct {
	Config *config.Config
	Store  *cache.Store // nil when caching is disabled
}

func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		a.Store = store
	}
	return a, nil
}

func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Analyze reads the file, consults the cache and produces a Report. A
// malformed region never fails the run; only unreadable input or an
// unsupported language does.
func (a *App) Analyze(ctx context.Context, path string) (*Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Analyze",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	started := time.Now()

	content, err := os.ReadFile(path)
	if err != nil {
		code := apperrors.CodeValidationError
		if os.IsNotExist(err) {
			code = apperrors.CodeNotFound
		}
		return nil, apperrors.AddContext(
			apperrors.Wrap(err, code, "read source file"),
			apperrors.CtxPath, path)
	}

	language, ok := a.Config.LanguageFor(path)
	if !ok {
		return nil, apperrors.AddContext(
			apperrors.New(apperrors.CodeUnsupportedLanguage, "no language for file"),
			apperrors.CtxPath, path)
	}

	fingerprint := cache.Fingerprint(content)

	if a.Store != nil {
		entry, hit, err := a.Store.Load(path, fingerprint)
		if err != nil {
			slog.Warn("cache load failed, re-parsing", "path", path, "error", err)
		} else if hit {
			observability.CacheHitsTotal.Inc()
			report := a.FromEntry(path, language, fingerprint, entry, true)
			report.Duration = time.Since(started)
			a.recordRun(report)
			return report, nil
		}
		observability.CacheMissesTotal.Inc()
	}

	entry := a.parse(ctx, content, language)

	if a.Store != nil {
		if err := a.Store.Save(path, fingerprint, entry); err != nil {
			slog.Warn("cache save failed, continuing", "path", path, "error", err)
		}
	}

	report := a.FromEntry(path, language, fingerprint, entry, false)
	report.Duration = time.Since(started)
	a.recordRun(report)
	return report, nil
}

// FromEntry builds a Report from a precomputed result set, the contract the
// cache collaborator relies on: a valid hit skips re-parsing entirely.
func (a *App) FromEntry(path, language, fingerprint string, entry *cache.Entry, cacheHit bool) *Report {
	g := graph.Build(entry.Functions, entry.Sites)
	tree, summary := render.Tree(g)
	summary.Unresolved = entry.Unresolved
	observability.UnresolvedCalls.Set(float64(entry.Unresolved))

	return &Report{
		Path:        path,
		Language:    language,
		Fingerprint: fingerprint,
		Functions:   entry.Functions,
		Edges:       g.Edges(),
		Tree:        tree,
		Summary:     summary,
		CacheHit:    cacheHit,
	}
}

func (a *App) parse(ctx context.Context, content []byte, language string) *cache.Entry {
	_, span := observability.Tracer.Start(ctx, "app.parse",
		trace.WithAttributes(attribute.String("language", language)))
	defer span.End()

	spec, _ := extract.SpecFor(language)

	parseStart := time.Now()
	lines := scanner.Scan(string(content), spec.Syntax)
	fns := extract.Extract(lines, spec)
	observability.ParseDuration.WithLabelValues(language).Observe(time.Since(parseStart).Seconds())

	resolveStart := time.Now()
	result := resolve.Calls(ctx, lines, fns, spec, resolve.Options{Workers: a.Config.Workers.Count})
	observability.ResolveDuration.WithLabelValues(language).Observe(time.Since(resolveStart).Seconds())

	return &cache.Entry{
		Functions:  fns,
		Sites:      result.Sites,
		Unresolved: result.Unresolved,
	}
}

func (a *App) recordRun(report *Report) {
	if a.Store == nil {
		return
	}
	err := a.Store.RecordRun(cache.Run{
		Path:       report.Path,
		Language:   report.Language,
		Functions:  report.Summary.Functions,
		Roots:      report.Summary.Roots,
		Orphans:    report.Summary.Orphans,
		Edges:      report.Summary.Edges,
		Unresolved: report.Summary.Unresolved,
		CacheHit:   report.CacheHit,
		Duration:   report.Duration,
	})
	if err != nil {
		slog.Warn("failed to record run history", "path", report.Path, "error", err)
	}
}

// PreviousRun returns the summary of the last recorded run for the path.
func (a *App) PreviousRun(path string) (*cache.Run, bool) {
	if a.Store == nil {
		return nil, false
	}
	run, ok, err := a.Store.LastRun(path)
	if err != nil {
		slog.Warn("failed to read run history", "path", path, "error", err)
		return nil, false
	}
	return run, ok
}
