package tools

import (
	"context"
	"time"
)

const mediainfoName = "mediainfo"

// MediaInfo wraps the mediainfo CLI, used as a second opinion on HDR and
// Dolby Vision signalling.
type MediaInfo struct {
	runner  Runner
	path    string
	timeout time.Duration
}

// NewMediaInfo creates a MediaInfo. An empty path means "mediainfo" from
// PATH.
func NewMediaInfo(runner Runner, path string, timeout time.Duration) *MediaInfo {
	if path == "" {
		path = mediainfoName
	}
	return &MediaInfo{runner: runner, path: path, timeout: timeout}
}

// Available reports whether mediainfo --Version identifies itself.
func (m *MediaInfo) Available(ctx context.Context) bool {
	return probe(ctx, m.runner, mediainfoName, m.path, "--Version", probeTimeout, "MediaInfo")
}

// JSON returns the mediainfo JSON report for input.
func (m *MediaInfo) JSON(ctx context.Context, input string) ([]byte, error) {
	out, err := m.runner.Run(ctx, Invocation{
		Name:    mediainfoName,
		Path:    m.path,
		Args:    []string{"--Output=JSON", input},
		Timeout: m.timeout,
	})
	if err != nil {
		return nil, err
	}
	return []byte(out.Stdout), nil
}
