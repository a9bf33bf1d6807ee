package app

import (
	"fmt"
	"log/slog"
)

// Build-time variables set via ldflags, e.g.
// -ldflags "-X github.com/tejashwikalptaru/visualplayer/internal/app.GitTag=v0.3.0".
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitTag    = ""
	BuildTime = "unknown"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string
	GitCommit string
	BuildTime string
}

// GetVersionInfo returns the build information. A git tag, when set,
// takes precedence over Version.
func GetVersionInfo() VersionInfo {
	v := Version
	if GitTag != "" {
		v = GitTag
	}
	return VersionInfo{Version: v, GitCommit: GitCommit, BuildTime: BuildTime}
}

// FullString is the -version output.
func (v VersionInfo) FullString() string {
	return fmt.Sprintf("visualplayer %s (commit: %s, built: %s)", v.Version, v.GitCommit, v.BuildTime)
}

// LogValue groups the build fields in structured logs.
func (v VersionInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", v.Version),
		slog.String("commit", v.GitCommit),
		slog.String("built", v.BuildTime),
	)
}
