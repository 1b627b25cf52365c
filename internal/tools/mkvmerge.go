package tools

import (
	"context"
	"time"

	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

const mkvmergeName = "mkvmerge"

// MKVMerge wraps mkvmerge.
type MKVMerge struct {
	runner  Runner
	path    string
	timeout time.Duration
}

// NewMKVMerge creates an MKVMerge. An empty path means "mkvmerge" from PATH.
func NewMKVMerge(runner Runner, path string, timeout time.Duration) *MKVMerge {
	if path == "" {
		path = mkvmergeName
	}
	return &MKVMerge{runner: runner, path: path, timeout: timeout}
}

// Available reports whether mkvmerge --version identifies itself.
func (m *MKVMerge) Available(ctx context.Context) bool {
	return probe(ctx, m.runner, mkvmergeName, m.path, "--version", probeTimeout, "mkvmerge")
}

// Remux combines the elementary stream hevc with every non-video track,
// chapter and tag of reference. fps sets the video timing, which a raw
// elementary stream does not carry.
func (m *MKVMerge) Remux(ctx context.Context, hevc, reference, out string, fps float64) error {
	logging.Info("remuxing with mkvmerge", "hevc", hevc, "reference", reference, "output", out, "fps", fps)
	_, err := m.runner.Run(ctx, Invocation{
		Name: mkvmergeName,
		Path: m.path,
		Args: []string{
			"-o", out,
			"--default-duration", "0:" + util.FormatFrameRate(fps) + "fps",
			"--no-audio", "--no-subtitles", "--no-chapters",
			hevc,
			"-D",
			reference,
		},
		Timeout:      m.timeout,
		ExpectOutput: out,
	})
	return err
}
