package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelWarn,
		"verbose": slog.LevelWarn,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, parseLevel(name, slog.LevelWarn))
		})
	}
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("VISUALPLAYER_LOG_LEVEL", "error")
	t.Setenv("VISUALPLAYER_LOG_FORMAT", "JSON")

	cfg := DefaultConfig()
	assert.Equal(t, slog.LevelError, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestNewTestLoggerLevel(t *testing.T) {
	t.Setenv("VISUALPLAYER_TEST_LOG", "")
	assert.False(t, NewTestLogger().Enabled(t.Context(), slog.LevelInfo), "quiet by default")

	t.Setenv("VISUALPLAYER_TEST_LOG", "debug")
	assert.True(t, NewTestLogger().Enabled(t.Context(), slog.LevelDebug))
}

func TestNewLoggerToJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, Config{Level: slog.LevelInfo, Format: "json"})
	log.Info("frame presented", slog.String("component", "presenter"))

	assert.Contains(t, buf.String(), `"msg":"frame presented"`)
	assert.Contains(t, buf.String(), `"component":"presenter"`)
}
