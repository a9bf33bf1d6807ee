// Package logger provides structured logging configuration using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"
}

// NewLogger creates a configured slog.Logger writing to stderr.
func NewLogger(cfg Config) *slog.Logger {
	return NewLoggerTo(os.Stderr, cfg)
}

// NewLoggerTo creates a configured slog.Logger writing to w.
func NewLoggerTo(w io.Writer, cfg Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		// Add a source location for debug and error levels
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// DefaultConfig returns the default logger configuration.
// Parses the VISUALPLAYER_LOG_LEVEL environment variable to set the log level
// and VISUALPLAYER_LOG_FORMAT ("text" or "json") to pick the handler.
// Valid values: DEBUG, INFO, WARN, WARNING, ERROR
// Default: INFO
func DefaultConfig() Config {
	level := parseLevel(os.Getenv("VISUALPLAYER_LOG_LEVEL"), slog.LevelInfo)

	format := "text"
	if strings.EqualFold(os.Getenv("VISUALPLAYER_LOG_FORMAT"), "json") {
		format = "json"
	}

	return Config{
		Level:  level,
		Format: format,
	}
}

// parseLevel maps a level name to a slog.Level, falling back to def for
// empty or unknown names.
func parseLevel(name string, def slog.Level) slog.Level {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return def
}
