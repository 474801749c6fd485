package usecase

import (
	"context"
	"log/slog"

	"ArticleEnricher/internal/logging"
)

type loggerKey struct{}

// withLogger attaches a run-scoped logger to ctx.
func withLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// loggerFrom returns the run-scoped logger, falling back to the component's.
func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return logging.Discard()
}
