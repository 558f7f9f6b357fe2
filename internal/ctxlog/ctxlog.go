// Package ctxlog provides a context key for safely passing a slog.Logger
// instance through context.Context, plus the FATAL level the validators log
// failed checks at.
package ctxlog

import (
	"context"
	"log/slog"
)

// LevelFatal sits above slog.LevelError. Records at this level never stop
// the process; exiting is left to the caller.
const LevelFatal = slog.Level(12)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

// loggerKey is the key for the slog.Logger in a context.Context.
var loggerKey = key{}

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. It panics when no
// logger was attached, which is always a wiring bug.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	panic("ctxlog: logger missing from context")
}

// Fatal logs msg at LevelFatal with the context's logger.
func Fatal(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Log(ctx, LevelFatal, msg, args...)
}

// ReplaceLevel is a slog.HandlerOptions.ReplaceAttr hook that renders
// LevelFatal as "FATAL" instead of "ERROR+4".
func ReplaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelFatal {
		a.Value = slog.StringValue("FATAL")
	}
	return a
}
