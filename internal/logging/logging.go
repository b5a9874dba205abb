package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps "debug", "info", "warn" and "error" (case-insensitive) to
// a slog level. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New returns a text logger writing to w. Records carry an "app" attribute
// when app is not empty.
func New(w io.Writer, level, app string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	if app != "" {
		logger = logger.With("app", app)
	}
	return logger
}

// Setup builds a stderr logger for app, installs it as the default and
// returns it.
func Setup(level, app string) *slog.Logger {
	logger := New(os.Stderr, level, app)
	slog.SetDefault(logger)
	return logger
}
