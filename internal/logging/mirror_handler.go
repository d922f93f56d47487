package logging

import (
	"context"
	"log/slog"
)

// mirrorHandler sends each record to a primary handler and copies it to
// mirrors. Only the primary's write error is reported; a full disk under the
// run log never silences the console.
type mirrorHandler struct {
	primary slog.Handler
	mirrors []slog.Handler
}

func (h *mirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary.Enabled(ctx, level) {
		return true
	}
	for _, m := range h.mirrors {
		if m.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *mirrorHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, m := range h.mirrors {
		if m.Enabled(ctx, record.Level) {
			_ = m.Handle(ctx, record.Clone())
		}
	}
	if !h.primary.Enabled(ctx, record.Level) {
		return nil
	}
	return h.primary.Handle(ctx, record)
}

func (h *mirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *mirrorHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

func (h *mirrorHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	mirrors := make([]slog.Handler, len(h.mirrors))
	for i, m := range h.mirrors {
		mirrors[i] = fn(m)
	}
	return &mirrorHandler{primary: fn(h.primary), mirrors: mirrors}
}

// Mirror returns a logger that writes through base and copies every record
// into the given handlers. Daemon runs use it to keep a JSON run log beside
// the console output.
func Mirror(base *slog.Logger, mirrors ...slog.Handler) *slog.Logger {
	kept := make([]slog.Handler, 0, len(mirrors))
	for _, m := range mirrors {
		if m != nil {
			kept = append(kept, m)
		}
	}
	if base == nil {
		base = NewNop()
	}
	if len(kept) == 0 {
		return base
	}
	return slog.New(&mirrorHandler{primary: base.Handler(), mirrors: kept})
}
