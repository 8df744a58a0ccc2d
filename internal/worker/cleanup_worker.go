package worker

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Sweeper drops expired entries from an in-process TTL store
type Sweeper interface {
	Sweep() int
}

// SweeperFunc adapts a function to Sweeper
type SweeperFunc func() int

func (f SweeperFunc) Sweep() int { return f() }

// CleanupWorker periodically evicts expired entries from the in-memory
// stores (the fallback key-value store and the user cache). Reads already
// ignore expired entries; this only bounds memory.
type CleanupWorker struct {
	targets  map[string]Sweeper
	names    []string
	logger   *slog.Logger
	interval time.Duration
}

// NewCleanupWorker creates a new cleanup worker over the named targets
func NewCleanupWorker(targets map[string]Sweeper, logger *slog.Logger, interval time.Duration) *CleanupWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	return &CleanupWorker{
		targets:  targets,
		names:    names,
		logger:   logger,
		interval: interval,
	}
}

// Start runs the sweep loop until ctx is cancelled
func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("cleanup worker started",
		slog.Duration("interval", w.interval),
		slog.Any("targets", w.names),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce sweeps every target and returns the evicted count per target
func (w *CleanupWorker) RunOnce() map[string]int {
	removed := make(map[string]int, len(w.names))
	for _, name := range w.names {
		n := w.targets[name].Sweep()
		removed[name] = n
		if n > 0 {
			w.logger.Debug("expired entries evicted",
				slog.String("target", name),
				slog.Int("count", n),
			)
		}
	}
	return removed
}
