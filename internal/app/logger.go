package app

import (
	"io"
	"log/slog"

	"github.com/specialistvlad/pipecheck/internal/ctxlog"
)

// logLevels are the accepted --log-level values. FATAL cannot be selected:
// check failures are always emitted.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds the run's logger. It does not set the global logger, so
// parallel tests each get an isolated instance. Unknown levels fall back to
// info; NewConfig has rejected them already.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level, ok := logLevels[levelStr]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: ctxlog.ReplaceLevel,
	}

	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
