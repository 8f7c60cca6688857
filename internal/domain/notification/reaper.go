package notification

import (
	"context"
	"log/slog"
	"time"
)

// ReaperConfig holds configuration for the stale record reaper.
type ReaperConfig struct {
	// Interval is how often the reaper scans for stale records.
	Interval time.Duration

	// StaleThreshold is how long a record can stay pending without being
	// touched before the reaper considers its queue job lost.
	StaleThreshold time.Duration

	// BatchSize is the maximum number of stale records recovered per cycle.
	BatchSize int
}

// Reaper periodically scans the store for pending records whose queue jobs
// were lost (Redis wiped, worker crashed mid-flight) and re-enqueues them.
// The store is the source of truth; queue state is always reconstructable
// from pending records, which keeps the worker pool restart-safe.
type Reaper struct {
	store    NotificationStore
	enqueuer Enqueuer
	config   ReaperConfig
}

// NewReaper creates a new stale record reaper.
func NewReaper(store NotificationStore, enqueuer Enqueuer, cfg ReaperConfig) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &Reaper{
		store:    store,
		enqueuer: enqueuer,
		config:   cfg,
	}
}

// Run starts the reaper loop. It blocks until the context is cancelled.
// Should be called in a goroutine.
func (r *Reaper) Run(ctx context.Context) {
	slog.Info("reaper started",
		"interval", r.config.Interval,
		"stale_threshold", r.config.StaleThreshold,
		"batch_size", r.config.BatchSize,
	)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one reaper cycle: find stale pending records and re-enqueue
// them. Future-scheduled records are not stale; their updated_at only falls
// behind once the dispatch window has actually passed unhandled.
func (r *Reaper) Sweep(ctx context.Context) {
	olderThan := time.Now().Add(-r.config.StaleThreshold)

	stale, err := r.store.ListStale(ctx, olderThan, r.config.BatchSize)
	if err != nil {
		slog.Error("reaper: failed to list stale records", "error", err)
		return
	}

	if len(stale) == 0 {
		return // Nothing to do — the common case
	}

	slog.Warn("reaper: found stale records", "count", len(stale))

	recovered := 0
	for _, n := range stale {
		if n.ScheduledAt != nil && n.ScheduledAt.After(time.Now()) {
			continue
		}

		if err := r.enqueuer.EnqueueSend(n); err != nil {
			slog.Error("reaper: failed to re-enqueue record",
				"id", n.ID,
				"error", err,
			)
			continue
		}

		recovered++
		slog.Info("reaper: recovered stale record",
			"id", n.ID,
			"channel", n.Channel,
			"age", time.Since(n.UpdatedAt).Round(time.Second),
		)
	}

	if recovered > 0 {
		slog.Info("reaper: sweep complete", "recovered", recovered, "total_stale", len(stale))
	}
}
