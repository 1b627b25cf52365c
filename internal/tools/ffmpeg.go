package tools

import (
	"context"
	"time"

	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

const ffmpegName = "ffmpeg"

// FFmpeg wraps the ffmpeg operations the RPU pipeline needs.
type FFmpeg struct {
	runner  Runner
	path    string
	timeout time.Duration
}

// NewFFmpeg creates an FFmpeg. An empty path means "ffmpeg" from PATH.
func NewFFmpeg(runner Runner, path string, timeout time.Duration) *FFmpeg {
	if path == "" {
		path = ffmpegName
	}
	return &FFmpeg{runner: runner, path: path, timeout: timeout}
}

// Path returns the ffmpeg binary path.
func (f *FFmpeg) Path() string {
	return f.path
}

// Available reports whether ffmpeg runs.
func (f *FFmpeg) Available(ctx context.Context) bool {
	return probe(ctx, f.runner, ffmpegName, f.path, "-version", probeTimeout, "ffmpeg")
}

// ExtractAnnexB copies the video track of container into an Annex-B HEVC
// elementary stream.
func (f *FFmpeg) ExtractAnnexB(ctx context.Context, container, hevcOut string) error {
	logging.Debug("extracting HEVC elementary stream", "input", container, "output", hevcOut)
	_, err := f.runner.Run(ctx, Invocation{
		Name: ffmpegName,
		Path: f.path,
		Args: []string{
			"-hide_banner", "-loglevel", "error",
			"-i", container,
			"-c:v", "copy",
			"-bsf:v", "hevc_mp4toannexb",
			"-f", "hevc",
			"-y", hevcOut,
		},
		Timeout:      f.timeout,
		ExpectOutput: hevcOut,
	})
	return err
}

// Remux combines the elementary stream hevc with every non-video stream,
// chapter and metadata entry of reference.
func (f *FFmpeg) Remux(ctx context.Context, hevc, reference, out string, fps float64) error {
	logging.Info("remuxing with ffmpeg", "hevc", hevc, "reference", reference, "output", out, "fps", fps)
	_, err := f.runner.Run(ctx, Invocation{
		Name: ffmpegName,
		Path: f.path,
		Args: []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "hevc",
			"-fflags", "+genpts",
			"-r", util.FormatFrameRate(fps),
			"-i", hevc,
			"-i", reference,
			"-map", "0:v:0",
			"-map", "1:a?",
			"-map", "1:s?",
			"-map", "1:t?",
			"-map", "1:d?",
			"-c", "copy",
			"-map_metadata", "1",
			"-map_chapters", "1",
			"-y", out,
		},
		Timeout:      f.timeout,
		ExpectOutput: out,
	})
	return err
}
