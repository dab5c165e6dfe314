package play

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/find-my-heart/internal/store"
)

// StartSweeper runs a background goroutine that periodically unmounts game
// sessions idle for longer than idleTTL and purges expired token revocations.
func StartSweeper(ctx context.Context, repo store.Repository, registry *Registry, idleTTL, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "idle_ttl", idleTTL)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, repo, registry, idleTTL, time.Now())
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(ctx context.Context, repo store.Repository, registry *Registry, idleTTL time.Duration, now time.Time) int {
	closed := registry.CloseIdle(now.Add(-idleTTL))
	if closed > 0 {
		slog.Info("Session sweeper closed idle game sessions", "count", closed)
	}

	if purged, err := repo.PurgeExpiredRevocations(ctx, now); err != nil {
		slog.Error("Session sweeper failed to purge expired revocations", "error", err)
	} else if purged > 0 {
		slog.Info("Session sweeper purged expired revocations", "count", purged)
	}

	return closed
}
