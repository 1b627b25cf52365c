package ffmpeg

import (
	"strconv"

	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/hdr"
)

// EncodeParams is a fully resolved libx265 encode.
type EncodeParams struct {
	Input       string
	Output      string
	Preset      string
	Mode        config.Mode
	CRF         float64
	BitrateKbps uint32
	PixelFormat string
	X265Params  hdr.Params

	// Duration and TotalFrames of the input, for progress reporting.
	Duration    float64
	TotalFrames uint64
}

// BuildCommand returns the ffmpeg arguments for p. Audio, subtitles and
// chapters are copied untouched.
func BuildCommand(p *EncodeParams) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", p.Input,
		"-map", "0:v:0",
		"-map", "0:a?",
		"-map", "0:s?",
		"-map_chapters", "0",
		"-c:v", "libx265",
		"-preset", p.Preset,
		"-pix_fmt", p.PixelFormat,
	}

	switch p.Mode {
	case config.ModeABR, config.ModeCBR:
		args = append(args, "-b:v", strconv.FormatUint(uint64(p.BitrateKbps), 10)+"k")
	default:
		args = append(args, "-crf", strconv.FormatFloat(p.CRF, 'f', -1, 64))
	}

	if len(p.X265Params) > 0 {
		args = append(args, "-x265-params", p.X265Params.String())
	}

	args = append(args,
		"-c:a", "copy",
		"-c:s", "copy",
		"-y", p.Output,
	)
	return args
}
