package http

import (
	"context"
	"log/slog"
)

// fetchOr runs one best-effort sub-query. A failure is logged and degrades to
// the fallback value, so a broken section never takes down the assembly that
// contains it. Every optional read in profile and export flows goes through
// here.
func fetchOr[T any](ctx context.Context, logger *slog.Logger, section string, fallback T, fn func(context.Context) (T, error)) T {
	value, err := fn(ctx)
	if err != nil {
		logger.Warn("sub-fetch degraded", "section", section, "error", err)
		return fallback
	}
	return value
}
