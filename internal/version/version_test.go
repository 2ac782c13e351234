package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBuildTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"unknown", time.Time{}},
		{"", time.Time{}},
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseBuildTime(tt.in)))
		})
	}
}

func TestBuildInfoFormatting(t *testing.T) {
	info := BuildInfo{
		Version:   "v1.2.0",
		GitCommit: "0123456789abcdef",
		BuildTime: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
	}

	assert.Equal(t, "v1.2.0 (0123456)", info.Short())
	assert.Equal(t, "Version: v1.2.0\nCommit: 0123456789abcdef\nBuilt: 2024-05-01T10:00:00Z\nGo: go1.24.4\nPlatform: linux/amd64", info.String())
	assert.True(t, info.IsRelease())

	info.GitCommit = "unknown"
	info.Version = "dev"
	assert.Equal(t, "dev", info.Short())
	assert.False(t, info.IsRelease())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
