package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewJSONHandler writes JSON records at or above level to w.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// Setup installs the stdout JSON logger as the default and returns its
// handler so it can later be fanned out alongside the database sink.
func Setup(levelName string) slog.Handler {
	handler := NewJSONHandler(os.Stdout, ParseLevel(levelName))
	slog.SetDefault(slog.New(handler))
	return handler
}
