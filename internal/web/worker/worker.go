// Package worker runs periodic housekeeping for the web server
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SessionCleaner removes expired login sessions
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Pruner drops stale in-memory state such as login throttling counters
type Pruner interface {
	Prune() int
}

// Config holds worker configuration
type Config struct {
	Interval time.Duration
}

// DefaultConfig returns default worker configuration
func DefaultConfig() Config {
	return Config{Interval: 10 * time.Minute}
}

// Worker expires sessions and prunes throttling state in the background
type Worker struct {
	sessions SessionCleaner
	pruners  []Pruner
	logger   *slog.Logger
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new worker
func New(sessions SessionCleaner, logger *slog.Logger, cfg Config, pruners ...Pruner) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		sessions: sessions,
		pruners:  pruners,
		logger:   logger.With("component", "worker"),
		interval: cfg.Interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the worker
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
	w.logger.Info("worker started", "interval", w.interval)
}

// Stop stops the worker and waits for the current pass to finish
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(w.ctx)
		}
	}
}

// RunOnce performs a single housekeeping pass
func (w *Worker) RunOnce(ctx context.Context) {
	if w.sessions != nil {
		n, err := w.sessions.DeleteExpired(ctx)
		if err != nil {
			w.logger.Error("failed to delete expired sessions", "error", err)
		} else if n > 0 {
			w.logger.Info("expired sessions deleted", "count", n)
		}
	}

	pruned := 0
	for _, p := range w.pruners {
		pruned += p.Prune()
	}
	if pruned > 0 {
		w.logger.Debug("pruned throttling entries", "count", pruned)
	}
}
