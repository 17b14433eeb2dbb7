package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// L is the process-wide logger. It is usable before Init and falls back
// to slog's default handler.
var L = slog.Default()

// Init configures L for the given level ("debug", "info", "warn", "error")
// and format ("json" or "text") and installs it as the slog default.
func Init(level, format string) *slog.Logger {
	L = New(os.Stdout, level, format)
	slog.SetDefault(L)
	return L
}

// New builds a logger writing to w without touching the global one.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl, ok := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler)
	if !ok {
		l.Warn("invalid LOG_LEVEL, defaulting to info", "configured", level)
	}
	return l
}

// ParseLevel maps a level name to slog.Level. Unknown names yield info
// and false.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

var exit = os.Exit

// Fatal logs msg with err at error level on L and exits with status 1.
func Fatal(msg string, err error) {
	L.Error(msg, "error", err)
	exit(1)
}
