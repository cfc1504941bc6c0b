package utils

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes expired files. Implemented by lifecycle.Manager.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// StartCleanupWorker sweeps expired files once immediately and then every
// interval until ctx is cancelled. It blocks; run it in its own goroutine.
func StartCleanupWorker(ctx context.Context, sweeper Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("cleanup worker started", "interval", interval)

	runCleanup(ctx, sweeper)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker shutting down")
			return
		case <-ticker.C:
			runCleanup(ctx, sweeper)
		}
	}
}

// runCleanup performs one sweep
func runCleanup(ctx context.Context, sweeper Sweeper) {
	start := time.Now()
	deleted, err := sweeper.SweepExpired(ctx)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("cleanup failed", "error", err, "deleted_files", deleted, "duration", duration)
		return
	}

	if deleted > 0 {
		slog.Info("cleanup completed", "deleted_files", deleted, "duration", duration)
	} else {
		slog.Debug("cleanup completed", "deleted_files", deleted, "duration", duration)
	}
}
