package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger creates a logger for tests, writing to stdout so output is
// interleaved with go test -v.
//
// Tests log at WARN unless VISUALPLAYER_TEST_LOG names another level, e.g.
// VISUALPLAYER_TEST_LOG=debug to follow render replies and bus deliveries.
// VISUALPLAYER_LOG_FORMAT=json applies as for the player itself.
func NewTestLogger() *slog.Logger {
	cfg := DefaultConfig()
	cfg.Level = parseLevel(os.Getenv("VISUALPLAYER_TEST_LOG"), slog.LevelWarn)
	return NewLoggerTo(os.Stdout, cfg)
}
