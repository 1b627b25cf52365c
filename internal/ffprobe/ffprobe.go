// Package ffprobe runs ffprobe and models the parts of its JSON output that
// HDR and Dolby Vision detection depend on.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

// FrameProbeCount is the number of leading frames inspected for
// frame-level side data.
const FrameProbeCount = 3

// Probe is the parsed output of ffprobe for one file: streams and format
// from a full probe, plus side data from the first few video frames.
type Probe struct {
	Format  Format   `json:"format"`
	Streams []Stream `json:"streams"`
	Frames  []Frame  `json:"frames,omitempty"`
}

// Format is the container-level section.
type Format struct {
	Filename   string            `json:"filename"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Stream is one entry of the streams section.
type Stream struct {
	Index            int               `json:"index"`
	CodecType        string            `json:"codec_type"`
	CodecName        string            `json:"codec_name"`
	CodecTagString   string            `json:"codec_tag_string"`
	Profile          string            `json:"profile"`
	Width            int64             `json:"width"`
	Height           int64             `json:"height"`
	PixFmt           string            `json:"pix_fmt"`
	ColorRange       string            `json:"color_range"`
	ColorSpace       string            `json:"color_space"`
	ColorTransfer    string            `json:"color_transfer"`
	ColorPrimaries   string            `json:"color_primaries"`
	BitsPerRawSample string            `json:"bits_per_raw_sample"`
	RFrameRate       string            `json:"r_frame_rate"`
	AvgFrameRate     string            `json:"avg_frame_rate"`
	NbFrames         string            `json:"nb_frames"`
	Channels         int               `json:"channels"`
	Disposition      map[string]int    `json:"disposition,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
	SideDataList     []SideData        `json:"side_data_list,omitempty"`
}

// Frame is one entry of the frames section. Only side data is kept.
type Frame struct {
	MediaType    string     `json:"media_type"`
	StreamIndex  int        `json:"stream_index"`
	SideDataList []SideData `json:"side_data_list,omitempty"`
}

// SideData is a side_data_list entry. Its fields vary by side_data_type
// and ffprobe version, so it is kept as a loose map.
type SideData map[string]any

// Type returns side_data_type.
func (s SideData) Type() string {
	return s.Text("side_data_type")
}

// Text returns the value of key as a string. Numbers are formatted
// without exponent.
func (s SideData) Text(key string) string {
	switch v := s[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Int returns the value of key as an integer. Strings holding integers are
// accepted.
func (s SideData) Int(key string) (int64, bool) {
	switch v := s[key].(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// Bool returns the value of key as a flag. JSON booleans and integers
// (non-zero is true) are both accepted.
func (s SideData) Bool(key string) (bool, bool) {
	switch v := s[key].(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true":
			return true, true
		case "0", "false":
			return false, true
		}
	}
	return false, false
}

// Rational parses a value that ffprobe prints either as "num/den" or as a
// plain number.
func (s SideData) Rational(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case string:
		num, den, found := strings.Cut(strings.TrimSpace(v), "/")
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, false
		}
		if !found {
			return n, true
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	default:
		return 0, false
	}
}

// PrimaryVideo returns the first video stream, falling back to the first
// stream of any type. Nil when there are no streams.
func (p *Probe) PrimaryVideo() *Stream {
	if p == nil || len(p.Streams) == 0 {
		return nil
	}
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			return &p.Streams[i]
		}
	}
	return &p.Streams[0]
}

// FrameSideData returns the side data of the leading video frames, at most
// FrameProbeCount of them.
func (p *Probe) FrameSideData() [][]SideData {
	if p == nil {
		return nil
	}
	var out [][]SideData
	for _, f := range p.Frames {
		if f.MediaType != "" && f.MediaType != "video" {
			continue
		}
		out = append(out, f.SideDataList)
		if len(out) == FrameProbeCount {
			break
		}
	}
	return out
}

// BitDepth returns bits_per_raw_sample, falling back to the pixel format
// (10/12-bit formats end in "10le"/"12le" etc). Zero when unknown.
func (s *Stream) BitDepth() uint8 {
	if s == nil {
		return 0
	}
	if bd, err := strconv.ParseUint(s.BitsPerRawSample, 10, 8); err == nil && bd > 0 {
		return uint8(bd)
	}
	switch {
	case strings.Contains(s.PixFmt, "12"):
		return 12
	case strings.Contains(s.PixFmt, "10"):
		return 10
	case s.PixFmt != "":
		return 8
	}
	return 0
}

// FrameRate returns the stream frame rate, preferring r_frame_rate over
// avg_frame_rate.
func (s *Stream) FrameRate() (float64, bool) {
	if s == nil {
		return 0, false
	}
	if fps, ok := util.ParseFrameRate(s.RFrameRate); ok {
		return fps, true
	}
	return util.ParseFrameRate(s.AvgFrameRate)
}

// VideoProperties summarises the primary video stream.
type VideoProperties struct {
	Width        uint32
	Height       uint32
	DurationSecs float64
	FrameRate    float64
	TotalFrames  uint64
	BitDepth     uint8
	CodecName    string
}

// VideoProperties extracts dimensions, duration and rate of the primary
// video stream.
func (p *Probe) VideoProperties() (*VideoProperties, error) {
	var video *Stream
	for i := range p.Streams {
		if p.Streams[i].CodecType == "video" {
			video = &p.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, hkerrors.NewParseError("no video stream found", nil)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, hkerrors.NewParseError(fmt.Sprintf("invalid dimensions %dx%d", video.Width, video.Height), nil)
	}

	props := &VideoProperties{
		Width:     uint32(video.Width),
		Height:    uint32(video.Height),
		BitDepth:  video.BitDepth(),
		CodecName: video.CodecName,
	}
	if p.Format.Duration != "" {
		d, err := strconv.ParseFloat(p.Format.Duration, 64)
		if err != nil {
			return nil, hkerrors.NewParseError("failed to parse duration", err)
		}
		props.DurationSecs = d
	}
	if fps, ok := video.FrameRate(); ok {
		props.FrameRate = fps
	}
	if n, err := strconv.ParseUint(video.NbFrames, 10, 64); err == nil {
		props.TotalFrames = n
	} else if props.FrameRate > 0 && props.DurationSecs > 0 {
		props.TotalFrames = uint64(props.DurationSecs * props.FrameRate)
	}
	return props, nil
}

// AudioStreamCount returns the number of audio streams.
func (p *Probe) AudioStreamCount() int {
	n := 0
	for _, s := range p.Streams {
		if s.CodecType == "audio" {
			n++
		}
	}
	return n
}

// ParseProbeJSON parses ffprobe -print_format json output.
func ParseProbeJSON(data []byte) (*Probe, error) {
	var probe Probe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, hkerrors.NewParseError("failed to parse ffprobe output", err)
	}
	return &probe, nil
}

// Prober invokes ffprobe.
type Prober struct {
	Path    string
	Timeout time.Duration
}

// NewProber returns a Prober for the given binary. An empty path means
// "ffprobe" from PATH.
func NewProber(path string, timeout time.Duration) *Prober {
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{Path: path, Timeout: timeout}
}

// Probe runs a stream/format probe followed by a frame-level side-data
// probe of the first FrameProbeCount frames. A failing frame probe is
// logged and leaves Frames empty.
func (p *Prober) Probe(ctx context.Context, inputPath string) (*Probe, error) {
	out, err := p.run(ctx,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)
	if err != nil {
		return nil, err
	}
	probe, err := ParseProbeJSON(out)
	if err != nil {
		return nil, err
	}

	frames, err := p.ProbeFrames(ctx, inputPath)
	if err != nil {
		logging.Debug("frame side-data probe failed", "path", inputPath, "error", err)
		return probe, nil
	}
	probe.Frames = frames
	return probe, nil
}

// ProbeFrames returns the leading video frames with their side data.
func (p *Prober) ProbeFrames(ctx context.Context, inputPath string) ([]Frame, error) {
	out, err := p.run(ctx,
		"-v", "quiet",
		"-select_streams", "v:0",
		"-show_frames",
		"-read_intervals", fmt.Sprintf("%%+#%d", FrameProbeCount),
		"-print_format", "json",
		inputPath,
	)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Frames []Frame `json:"frames"`
	}
	if err := json.Unmarshal(out, &wrapper); err != nil {
		return nil, hkerrors.NewParseError("failed to parse ffprobe frame output", err)
	}
	return wrapper.Frames, nil
}

func (p *Prober) run(ctx context.Context, args ...string) ([]byte, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, hkerrors.WrapExecError("ffprobe", err, ctx.Err(), stdout.String(), stderr.String())
	}
	return stdout.Bytes(), nil
}
