package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultTTLWorkerInterval is how often the TTL worker sweeps session storage.
const DefaultTTLWorkerInterval = 5 * time.Minute

// CleanupCallback is called after a sweep that removed at least one entry.
type CleanupCallback func(removed int64)

// StartTTLWorker runs a background goroutine that periodically removes
// expired session storage entries until ctx is cancelled.
func StartTTLWorker(ctx context.Context, storage SessionStorage, interval time.Duration, onCleanup CleanupCallback) {
	if interval <= 0 {
		interval = DefaultTTLWorkerInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Debug("TTL worker started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				sweepExpired(ctx, storage, onCleanup)
			case <-ctx.Done():
				slog.Debug("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepExpired(ctx context.Context, storage SessionStorage, onCleanup CleanupCallback) {
	removed, err := storage.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("TTL worker failed to clean up session storage", "error", err)
		return
	}
	if removed == 0 {
		return
	}

	slog.Info("TTL worker removed expired session entries", "count", removed)
	if onCleanup != nil {
		onCleanup(removed)
	}
}
