// Package logger builds the process-wide slog logger with colored output
// for warnings and errors.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a logger writing colored lines to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewColorHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewDefault creates a stderr logger at the given level.
func NewDefault(level slog.Level) *slog.Logger {
	return New(os.Stderr, level)
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
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
