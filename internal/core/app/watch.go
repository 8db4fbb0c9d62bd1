package app

import (
	"context"
	"log/slog"
	"path/filepath"

	"calltree/internal/core/watcher"
	"calltree/internal/shared/util"
)

// Watch re-analyzes path whenever it changes on disk and hands each fresh
// Report to onReport. Blocks until ctx is cancelled. Re-analysis frequency
// is bounded by the configured rate limit so editor save storms do not pile
// up work.
func (a *App) Watch(ctx context.Context, path string, onReport func(*Report, error)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	limiter := util.NewLimiter(a.Config.Watch.Rate, a.Config.Watch.Burst)
	changes := make(chan struct{}, 1)

	w, err := watcher.New(
		a.Config.Watch.Debounce,
		a.Config.Watch.ExcludeDirs,
		a.Config.Watch.ExcludeFiles,
		func(paths []string) {
			for _, p := range paths {
				abs, err := filepath.Abs(p)
				if err != nil {
					continue
				}
				if abs == target {
					select {
					case changes <- struct{}{}:
					default:
					}
					return
				}
			}
		},
	)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(target); err != nil {
		return err
	}
	go w.Start()

	slog.Info("watching for changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
			if err := limiter.Wait(ctx, 1); err != nil {
				return err
			}
			report, err := a.Analyze(ctx, target)
			onReport(report, err)
		}
	}
}
