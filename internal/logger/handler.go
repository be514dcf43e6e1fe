package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// teeHandler sends each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Redact replaces home with "~" wherever it appears as a whole path prefix:
// "/home/al/x" becomes "~/x" but "/home/alice" is kept.
// A root or empty home is left alone.
func Redact(s, home string) string {
	home = strings.TrimRight(home, "/")
	if home == "" {
		return s
	}
	var b strings.Builder
	for {
		i := strings.Index(s, home)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := i + len(home)
		b.WriteString(s[:i])
		if end == len(s) || !isPathNameByte(s[end]) {
			b.WriteByte('~')
		} else {
			b.WriteString(home)
		}
		s = s[end:]
	}
}

// isPathNameByte reports whether c can continue a path element.
func isPathNameByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '.' || c == '_' || c == '-' || c == '@' || c == '+':
		return true
	}
	return c >= 0x80
}

// redactAny walks maps and slices and redacts their string leaves.
// Values of other types pass through unchanged.
func redactAny(v any, home string) any {
	switch val := v.(type) {
	case string:
		return Redact(val, home)
	case error:
		return Redact(val.Error(), home)
	case fmt.Stringer:
		return Redact(val.String(), home)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = redactAny(item, home)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, item := range val {
			out[k] = Redact(item, home)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactAny(item, home)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = Redact(item, home)
		}
		return out
	default:
		return v
	}
}
