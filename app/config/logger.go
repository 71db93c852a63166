package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger. Format "text" gives human-readable
// lines; anything else is JSON. Level must already be validated.
func NewLogger(w io.Writer, cfg LogConfig) *slog.Logger {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
