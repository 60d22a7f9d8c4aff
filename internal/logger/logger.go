// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and an optional
// bounded ring of recent entries for the /api/logs surface. The ring is
// constructed in main and injected; there is no package-level state
// beyond slog's own default.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// Init creates a structured logger for the given service. Output is
// JSON on stdout; when ring is non-nil every record is also captured
// there. The logger is installed as slog's default.
func Init(service string, level slog.Level, ring *Ring) *slog.Logger {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	if ring != nil {
		handler = &ringHandler{inner: handler, ring: ring}
	}

	logger := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(logger)
	return logger
}

// ringHandler tees records into the ring before delegating.
type ringHandler struct {
	inner slog.Handler
	ring  *Ring
}

func (h *ringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ringHandler) Handle(ctx context.Context, rec slog.Record) error {
	h.ring.Add(Entry{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
	})
	return h.inner.Handle(ctx, rec)
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ringHandler{inner: h.inner.WithAttrs(attrs), ring: h.ring}
}

func (h *ringHandler) WithGroup(name string) slog.Handler {
	return &ringHandler{inner: h.inner.WithGroup(name), ring: h.ring}
}
