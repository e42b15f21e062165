// Package logging configures the structured logger shared by every
// controller component.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger writing leveled, structured key/value output to
// stderr. The level is read from the QNET_LOG_LEVEL environment variable
// (debug|info|warn|error, default info), mirroring the teacher's pattern of
// letting an environment variable override a logging default without code
// changes.
func New(component string) *slog.Logger {
	level := parseLevel(os.Getenv("QNET_LOG_LEVEL"))
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("component", component)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
