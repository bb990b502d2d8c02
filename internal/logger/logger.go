package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs the default slog logger on stderr. LOG_LEVEL=debug
// wins over level.
func Init(level, format string) {
	slog.SetDefault(New(os.Stderr, level, format))
}

// New builds a logger writing JSON, or logfmt-style text when format is
// "text".
func New(w io.Writer, level, format string) *slog.Logger {
	lvl := parseLevel(level)
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		lvl = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
