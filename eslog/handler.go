package eslog

import (
	"context"
	"log/slog"
)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Level is the minimum level shipped. Nil means slog.LevelInfo.
	Level slog.Leveler
}

// Handler is a slog.Handler that writes every record through a Logger.
//
// The message becomes the message field and attributes become top-level
// fields, with groups flattened into dotted keys ("req.method"). Records
// are written synchronously; a write failure is returned from Handle.
type Handler struct {
	l      *Logger
	level  slog.Leveler
	attrs  []slog.Attr // already qualified
	prefix string      // open groups, "a.b."
}

type shippingKey struct{}

// shipping marks ctx as carrying a write of the Logger. Diagnostics emitted
// under such a context are never shipped back through a Handler.
func shipping(ctx context.Context) context.Context {
	if isShipping(ctx) {
		return ctx
	}
	return context.WithValue(ctx, shippingKey{}, true)
}

func isShipping(ctx context.Context) bool {
	v, _ := ctx.Value(shippingKey{}).(bool)
	return v
}

// NewHandler returns a handler writing to l.
func NewHandler(l *Logger, opts *HandlerOptions) *Handler {
	h := &Handler{l: l, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && !isShipping(ctx)
}

// Handle writes r at its own time. Records produced by the Logger's
// diagnostics while it is writing are dropped.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if isShipping(ctx) {
		return nil
	}
	fields := make(map[string]any, len(h.attrs)+r.NumAttrs()+1)
	for _, a := range h.attrs {
		addAttr(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.prefix, a)
		return true
	})
	fields[FieldMessage] = r.Message

	at := r.Time
	if at.IsZero() {
		at = h.l.now()
	}
	_, err := h.l.LogAt(ctx, at, r.Level.String(), fields)
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(h2.attrs, h.attrs)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func addAttr(fields map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		group := v.Group()
		if len(group) == 0 {
			return
		}
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range group {
			addAttr(fields, prefix, ga)
		}
		return
	}
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + a.Key
	switch v.Kind() {
	case slog.KindTime:
		fields[key] = FormatTimestamp(v.Time())
	case slog.KindDuration:
		fields[key] = v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			fields[key] = err.Error()
			return
		}
		fields[key] = v.Any()
	default:
		fields[key] = v.Any()
	}
}
