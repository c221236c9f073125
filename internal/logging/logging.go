// Package logging provides the Logger type (an alias of *slog.Logger), a
// level/format constructor, a no-op logger and context helpers. Components
// in this module hold a *slog.Logger field directly; none of them imports
// this package.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Logger is the structured logging capability, an alias of *slog.Logger.
type Logger = *slog.Logger

// New builds a Logger at the given level ("debug", "info", "warn", "error")
// writing either "json" or "text" formatted records to w.
func New(w io.Writer, level, format string) Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// NoOp returns a Logger that discards everything, the default supplied when
// no logger is configured.
func NoOp() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ctxKey is unexported to avoid collisions in context values.
type ctxKey struct{}

// WithContext returns a context carrying the logger for ambient propagation
// through request-scoped call chains (e.g. LLM RPC tracing).
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithContext, or a no-op logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok && l != nil {
		return l
	}
	return NoOp()
}
