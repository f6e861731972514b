package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultRetention = 720 * time.Hour
	defaultInterval  = time.Hour
)

// Purger deletes interaction records older than a cutoff.
type Purger interface {
	PurgeInteractionsBefore(t time.Time) (int64, error)
}

// Worker periodically drops interaction records past the retention window.
type Worker struct {
	store     Purger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewWorker creates a Worker. Non-positive durations fall back to a 720h
// retention and an hourly sweep.
func NewWorker(store Purger, retention, interval time.Duration) *Worker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Worker{
		store:     store,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// Run sweeps immediately and then every interval until ctx is cancelled.
// It always returns nil so it can sit in an errgroup next to the server.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("retention sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.interval):
		}
	}
}

// RunOnce performs a single sweep and returns the number of removed records.
func (w *Worker) RunOnce(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cutoff := w.now().Add(-w.retention)
	n, err := w.store.PurgeInteractionsBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		w.logger.Info("retention sweep", "removed", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
