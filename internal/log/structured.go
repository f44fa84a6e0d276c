package log

import (
	"context"
	"log/slog"
	"net/http"
)

// StructuredLogger writes the recurring log lines of the service with a
// fixed set of attributes.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs 4xx responses at warn and 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithResponse(statusCode, durationMs).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)

	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// Write describes a committed change to a category or transaction.
// Resource is ComponentCategory or ComponentTransaction.
type Write struct {
	Resource  string
	Operation string
	ID        int64
	Fields    LogFields
}

func (sl *StructuredLogger) LogWrite(ctx context.Context, w Write) {
	fields := w.Fields
	if fields == nil {
		fields = NewFields()
	}
	fields.
		WithResource(w.Resource, w.ID).
		WithOperation(w.Operation).
		WithComponent(w.Resource)

	sl.logger.InfoContext(ctx, "Write committed", fields.ToSlice()...)
}

// LogError logs err at error level. fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
