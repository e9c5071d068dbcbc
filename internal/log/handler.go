package log

import (
	"context"
	"log/slog"
)

// NewDualHandler wraps a primary slog.Handler (typically the log file) and a
// console handler that only receives records at or above mirrorLevel.
// The serve command uses it so request errors reach the terminal while debug
// output stays in the log file.
func NewDualHandler(primary slog.Handler, console slog.Handler, mirrorLevel slog.Level) slog.Handler {
	return &dualHandler{
		primary:     primary,
		console:     console,
		mirrorLevel: mirrorLevel,
	}
}

type dualHandler struct {
	primary     slog.Handler
	console     slog.Handler
	mirrorLevel slog.Level
}

func (h *dualHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary != nil && h.primary.Enabled(ctx, level) {
		return true
	}
	return h.mirrors(level) && h.console.Enabled(ctx, level)
}

func (h *dualHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.primary != nil && h.primary.Enabled(ctx, record.Level) {
		if err := h.primary.Handle(ctx, record); err != nil {
			return err
		}
	}

	if !h.mirrors(record.Level) || !h.console.Enabled(ctx, record.Level) {
		return nil
	}
	return h.console.Handle(ctx, record.Clone())
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler {
		return inner.WithAttrs(attrs)
	})
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler {
		return inner.WithGroup(name)
	})
}

func (h *dualHandler) derive(fn func(slog.Handler) slog.Handler) *dualHandler {
	next := &dualHandler{mirrorLevel: h.mirrorLevel}
	if h.primary != nil {
		next.primary = fn(h.primary)
	}
	if h.console != nil {
		next.console = fn(h.console)
	}
	return next
}

func (h *dualHandler) mirrors(level slog.Level) bool {
	return h.console != nil && level >= h.mirrorLevel
}
