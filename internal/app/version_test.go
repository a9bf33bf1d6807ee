package app

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setBuild(t *testing.T, version, tag string) {
	t.Helper()
	oldVersion, oldTag := Version, GitTag
	Version, GitTag = version, tag
	t.Cleanup(func() { Version, GitTag = oldVersion, oldTag })
}

func TestVersionInfo_TagTakesPrecedence(t *testing.T) {
	setBuild(t, "dev", "")
	assert.Equal(t, "dev", GetVersionInfo().Version)

	setBuild(t, "dev", "v0.3.0")
	info := GetVersionInfo()
	assert.Equal(t, "v0.3.0", info.Version)
	assert.Contains(t, info.FullString(), "visualplayer v0.3.0")
}

func TestVersionInfo_LogValue(t *testing.T) {
	setBuild(t, "1.2.0", "")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("start", slog.Any("build", GetVersionInfo()))

	assert.Contains(t, buf.String(), "build.version=1.2.0")
	assert.Contains(t, buf.String(), "build.commit=")
}
