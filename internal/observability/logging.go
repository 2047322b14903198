// Package observability provides store logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
)

// StoreLogger provides structured logging for document store operations.
type StoreLogger struct {
	logger  *slog.Logger
	backend string
}

// NewStoreLogger creates a StoreLogger for the given backend ("json", "sqlite", "postgres").
// A nil logger disables store logging.
func NewStoreLogger(logger *slog.Logger, backend string) *StoreLogger {
	return &StoreLogger{logger: logger, backend: backend}
}

func (l *StoreLogger) log(ctx context.Context, level slog.Level, msg, collection, operation string, fields map[string]any) {
	if l == nil || l.logger == nil {
		return
	}
	attrs := []any{
		slog.String("backend", l.backend),
		slog.String("collection", collection),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.Log(ctx, level, msg, attrs...)
}

// LogCreate logs a store create operation.
func (l *StoreLogger) LogCreate(ctx context.Context, collection string, fields map[string]any) {
	l.log(ctx, slog.LevelInfo, "store create", collection, "create", fields)
}

// LogRead logs a store read operation at debug level.
func (l *StoreLogger) LogRead(ctx context.Context, collection string, fields map[string]any) {
	l.log(ctx, slog.LevelDebug, "store read", collection, "read", fields)
}

// LogUpdate logs a store update operation.
func (l *StoreLogger) LogUpdate(ctx context.Context, collection string, fields map[string]any) {
	l.log(ctx, slog.LevelInfo, "store update", collection, "update", fields)
}

// LogDelete logs a store delete operation.
func (l *StoreLogger) LogDelete(ctx context.Context, collection string, fields map[string]any) {
	l.log(ctx, slog.LevelInfo, "store delete", collection, "delete", fields)
}

// LogError logs a failed store operation.
func (l *StoreLogger) LogError(ctx context.Context, collection, operation string, err error) {
	l.log(ctx, slog.LevelError, "store error", collection, operation, map[string]any{"error": err.Error()})
}
