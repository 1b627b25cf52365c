package ffmpeg

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

// Progress represents encoding progress information.
type Progress struct {
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	Speed        float32
	FPS          float32
	ETA          time.Duration
	Bitrate      string
	ElapsedSecs  float64
}

// ProgressCallback is called with progress updates during encoding.
type ProgressCallback func(Progress)

// Encoder runs libx265 encodes through ffmpeg.
type Encoder struct {
	path string
}

// NewEncoder returns an Encoder for the given binary. An empty path means
// "ffmpeg" from PATH.
func NewEncoder(path string) *Encoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &Encoder{path: path}
}

var timeRegex = regexp.MustCompile(`time=(\d{2}:\d{2}:\d{2}\.?\d*)`)

// Encode runs the encode described by params, reporting progress to
// callback when it is non-nil. A partial output is removed on failure.
func (e *Encoder) Encode(ctx context.Context, params *EncodeParams, callback ProgressCallback) error {
	args := BuildCommand(params)
	logging.Info("starting encode", "input", params.Input, "output", params.Output)
	logging.Debug("ffmpeg command", "cmd", e.path+" "+strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.WaitDelay = 5 * time.Second

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return hkerrors.NewIOError("failed to get ffmpeg stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return hkerrors.WrapExecError("ffmpeg", err, ctx.Err(), "", "")
	}

	var stderrBuilder strings.Builder
	parseProgress(stderr, &stderrBuilder, params.Duration, params.TotalFrames, callback)

	err = cmd.Wait()
	if err == nil {
		return nil
	}

	if rerr := util.RemoveIfExists(params.Output); rerr != nil {
		logging.Warn("failed to remove partial encode", "path", params.Output, "error", rerr)
	}
	stderrStr := tail(stderrBuilder.String(), 4096)
	if ctx.Err() == nil && strings.Contains(stderrStr, "No streams found") {
		return hkerrors.NewParseError("no streams found in input file", err)
	}
	return hkerrors.WrapExecError("ffmpeg", err, ctx.Err(), "", stderrStr)
}

// tail returns at most the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// parseProgress reads FFmpeg stderr and parses progress updates.
func parseProgress(stderr io.Reader, stderrBuilder *strings.Builder, duration float64, totalFrames uint64, callback ProgressCallback) {
	reader := bufio.NewReader(stderr)
	var lineBuf strings.Builder

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if err != io.EOF {
				logging.Debug("error reading ffmpeg stderr", "error", err)
			}
			break
		}

		stderrBuilder.WriteByte(b)

		// Progress lines end with \r or \n
		if b == '\r' || b == '\n' {
			line := lineBuf.String()
			lineBuf.Reset()

			if callback != nil && strings.Contains(line, "frame=") {
				progress := parseProgressLine(line, duration, totalFrames)
				if progress != nil {
					callback(*progress)
				}
			}
		} else {
			lineBuf.WriteByte(b)
		}
	}
}

// parseProgressLine extracts progress information from an FFmpeg progress line.
func parseProgressLine(line string, duration float64, totalFrames uint64) *Progress {
	// Extract elapsed time
	var elapsedSecs float64
	if matches := timeRegex.FindStringSubmatch(line); len(matches) >= 2 {
		if secs, ok := util.ParseFFmpegTime(matches[1]); ok {
			elapsedSecs = secs
		}
	}

	// Extract frame, fps, bitrate, speed
	var frame uint64
	var fps, speed float32
	var bitrate string

	// Parse frame
	if idx := strings.Index(line, "frame="); idx >= 0 {
		remaining := line[idx+6:]
		remaining = strings.TrimLeft(remaining, " ")
		if spaceIdx := strings.IndexAny(remaining, " \t"); spaceIdx > 0 {
			if f, err := strconv.ParseUint(remaining[:spaceIdx], 10, 64); err == nil {
				frame = f
			}
		}
	}

	// Parse fps
	if idx := strings.Index(line, "fps="); idx >= 0 {
		remaining := line[idx+4:]
		remaining = strings.TrimLeft(remaining, " ")
		if spaceIdx := strings.IndexAny(remaining, " \t"); spaceIdx > 0 {
			if f, err := strconv.ParseFloat(remaining[:spaceIdx], 32); err == nil {
				fps = float32(f)
			}
		}
	}

	// Parse bitrate
	if idx := strings.Index(line, "bitrate="); idx >= 0 {
		remaining := line[idx+8:]
		remaining = strings.TrimLeft(remaining, " ")
		if spaceIdx := strings.IndexAny(remaining, " \t"); spaceIdx > 0 {
			bitrate = remaining[:spaceIdx]
		}
	}

	// Parse speed
	if idx := strings.Index(line, "speed="); idx >= 0 {
		remaining := line[idx+6:]
		remaining = strings.TrimLeft(remaining, " ")
		remaining = strings.TrimSuffix(remaining, "x")
		if spaceIdx := strings.IndexAny(remaining, " \t\rx\n"); spaceIdx > 0 {
			remaining = remaining[:spaceIdx]
		}
		remaining = strings.TrimSuffix(remaining, "x")
		if s, err := strconv.ParseFloat(remaining, 32); err == nil {
			speed = float32(s)
		}
	}

	// Calculate percent
	var percent float32
	if duration > 0 {
		percent = float32((elapsedSecs / duration) * 100)
		if percent > 100 {
			percent = 100
		}
	}

	// Calculate ETA
	var eta time.Duration
	if speed > 0 && duration > 0 {
		remainingDuration := duration - elapsedSecs
		etaSeconds := remainingDuration / float64(speed)
		eta = time.Duration(etaSeconds) * time.Second
	}

	return &Progress{
		CurrentFrame: frame,
		TotalFrames:  totalFrames,
		Percent:      percent,
		Speed:        speed,
		FPS:          fps,
		ETA:          eta,
		Bitrate:      bitrate,
		ElapsedSecs:  elapsedSecs,
	}
}
