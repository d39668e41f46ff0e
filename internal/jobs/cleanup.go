// Package jobs holds the background sweeper that clears expired sessions and
// share tokens. Expired rows are already invisible to the API; the sweeper
// keeps them from piling up.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/diagraph/accounts/internal/config"
)

// Store is the slice of the repository the sweeper needs.
type Store interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredShareTokens(ctx context.Context, now time.Time) (int64, error)
}

func StartCleanupJob(ctx context.Context, cfg config.Config, store Store, logger *slog.Logger) {
	if !cfg.CleanupEnabled {
		return
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runCleanup(ctx, store, logger)
			}
		}
	}()
}

func runCleanup(ctx context.Context, store Store, logger *slog.Logger) {
	now := time.Now().UTC()
	tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sessions, err := store.DeleteExpiredSessions(tickCtx, now)
	if err != nil {
		logger.Error("cleanup job: expired sessions", "error", err)
	}
	tokens, err := store.DeleteExpiredShareTokens(tickCtx, now)
	if err != nil {
		logger.Error("cleanup job: expired share tokens", "error", err)
	}
	if sessions > 0 || tokens > 0 {
		logger.Info("cleanup job swept expired rows", "sessions", sessions, "share_tokens", tokens)
	}
}
