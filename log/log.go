package log

import (
	"io"
	"log/slog"
	"strings"
)

type Config struct {
	Level     int    `mapstructure:"level"`
	AddSource bool   `mapstructure:"add_source"`
	Format    string `mapstructure:"format"` // json (default) or text
}

// New builds a logger writing to w in the configured format.
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.Level(cfg.Level),
		AddSource: cfg.AddSource,
	}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Setup installs the configured logger as the slog default.
func Setup(cfg Config, w io.Writer) *slog.Logger {
	logger := New(cfg, w)
	slog.SetDefault(logger)
	return logger
}
