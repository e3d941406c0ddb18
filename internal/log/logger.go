// Package log centralizes logger construction and the field names shared
// across components, so log output stays greppable.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
	}
}

// New builds a slog.Logger tagged with its component name and installs it
// as the process default.
func New(config Config) *slog.Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}

	logger := slog.New(handler).With(FieldComponent, config.Component)
	slog.SetDefault(logger)
	return logger
}

// LevelFromEnv maps the LOG_LEVEL environment variable onto a slog level,
// defaulting to info.
func LevelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
