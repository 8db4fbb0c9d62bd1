package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"calltree/internal/core/app"
	"calltree/internal/core/config"
	"calltree/internal/shared/observability"
	"calltree/internal/ui/render"
	"calltree/internal/ui/tui"
)

var (
	configPath  = flag.String("config", "./calltree.toml", "Path to config file")
	threads     = flag.Int("threads", 0, "Worker count for call-site resolution (overrides config)")
	noCache     = flag.Bool("no-cache", false, "Disable the result cache")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides config)")
	watch       = flag.Bool("watch", false, "Re-analyze when the file changes")
	ui          = flag.Bool("ui", false, "Terminal UI mode (implies -watch)")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("calltree v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logOutput := os.Stderr
	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: calltree [flags] <source-file>")
		os.Exit(1)
	}
	target := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) && *configPath == "./calltree.toml" {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if *threads > 0 {
		cfg.Workers.Count = *threads
	}
	if *noCache {
		cfg.Cache.Enabled = false
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = *metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Metrics.Enabled {
		srv := newObservabilityServer(cfg.Metrics.Addr)
		srv.Start()
		defer srv.Stop(context.Background())
	}

	previous, hasPrevious := a.PreviousRun(target)

	report, err := a.Analyze(ctx, target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if !*ui {
		printReport(report)
		if hasPrevious {
			fmt.Printf("\nPrevious run: %s\n", render.FormatSummary(render.Summary{
				Functions:  previous.Functions,
				Roots:      previous.Roots,
				Orphans:    previous.Orphans,
				Edges:      previous.Edges,
				Unresolved: previous.Unresolved,
			}))
		}
	}

	if !*watch && !*ui {
		return
	}

	if *ui {
		model := tui.NewModel(target)
		program := tea.NewProgram(model, tea.WithAltScreen())

		go func() {
			program.Send(tui.UpdateMsg{Report: report})
			err := a.Watch(ctx, target, func(r *app.Report, err error) {
				program.Send(tui.UpdateMsg{Report: r, Err: err})
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("watch failed", "error", err)
			}
			program.Quit()
		}()

		if _, err := program.Run(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
		return
	}

	err = a.Watch(ctx, target, func(r *app.Report, err error) {
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return
		}
		fmt.Println()
		printReport(r)
	})
	if err != nil && ctx.Err() == nil {
		slog.Error("watch failed", "error", err)
		os.Exit(1)
	}
}

func printReport(report *app.Report) {
	fmt.Printf("Analyzing file: %s (%s)\n", report.Path, report.Language)
	fmt.Printf("Found %d functions in %v\n", report.Summary.Functions, report.Duration.Round(10*time.Microsecond))
	if report.CacheHit {
		fmt.Println("Using cached parse results")
	}

	if len(report.Tree) == 0 {
		fmt.Println("No functions found in the file.")
		return
	}

	fmt.Println("\nFunction Call Hierarchy:")
	fmt.Println(strings.Repeat("=", 40))
	for _, line := range report.Tree {
		fmt.Println(line)
	}

	fmt.Printf("\nSummary: %s\n", render.FormatSummary(report.Summary))
}
