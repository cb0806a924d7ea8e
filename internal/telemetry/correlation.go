package telemetry

import (
	"context"
	"log/slog"
)

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a context carrying the request correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// Correlation returns the correlation id or "".
func Correlation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// Logger returns the default logger tagged with the request correlation id.
func Logger(ctx context.Context) *slog.Logger {
	if id := Correlation(ctx); id != "" {
		return slog.Default().With("correlation_id", id)
	}
	return slog.Default()
}
