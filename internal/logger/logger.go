// Package logger provides structured logging configuration using slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup returns a text slog.Logger writing to stdout at the given level.
func Setup(level string) *slog.Logger {
	return New(os.Stdout, level)
}

// New returns a text slog.Logger writing to w.
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// ParseLevel maps debug, info, warn and error to slog levels. Unknown
// values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
