// Package hdr10plus extracts, parses and validates SMPTE ST 2094-40
// dynamic metadata and turns it into x265 parameters.
package hdr10plus

import (
	"encoding/json"
	"fmt"
	"os"

	hkerrors "github.com/five82/hdrkit/internal/errors"
)

// Raw value ranges of the hdr10plus_tool JSON export.
const (
	anchorScale = 1023.0
	kneeScale   = 4095.0
	maxAnchors  = 15
)

// document mirrors the JSON written by hdr10plus_tool extract.
type document struct {
	JSONInfo struct {
		Profile string `json:"HDR10plusProfile"`
		Version string `json:"Version"`
	} `json:"JSONInfo"`
	SceneInfo        []sceneInfo       `json:"SceneInfo"`
	SceneInfoSummary *sceneInfoSummary `json:"SceneInfoSummary,omitempty"`
	ToolInfo         *SourceInfo       `json:"ToolInfo,omitempty"`
}

type sceneInfo struct {
	SceneID              int    `json:"SceneId"`
	SceneFrameIndex      int    `json:"SceneFrameIndex"`
	SequenceFrameIndex   int    `json:"SequenceFrameIndex"`
	NumberOfWindows      int    `json:"NumberOfWindows"`
	TargetedMaxLuminance uint32 `json:"TargetedSystemDisplayMaximumLuminance"`
	BezierCurveData      struct {
		KneePointX uint32   `json:"KneePointX"`
		KneePointY uint32   `json:"KneePointY"`
		Anchors    []uint32 `json:"Anchors"`
	} `json:"BezierCurveData"`
	LuminanceParameters struct {
		AverageRGB uint32   `json:"AverageRGB"`
		MaxScl     []uint32 `json:"MaxScl"`
	} `json:"LuminanceParameters"`
}

type sceneInfoSummary struct {
	SceneFirstFrameIndex []int `json:"SceneFirstFrameIndex"`
	SceneFrameNumbers    []int `json:"SceneFrameNumbers"`
}

// SourceInfo identifies the tool that produced the metadata.
type SourceInfo struct {
	Tool    string `json:"Tool"`
	Version string `json:"Version"`
}

// Point is a normalized (x, y) pair in [0, 1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AnchorPoint is one Bezier anchor. Input is the anchor's position along
// the curve, Output its normalized luminance.
type AnchorPoint struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// FrameToneMapping is the tone-mapping record of one frame.
type FrameToneMapping struct {
	SequenceIndex      int           `json:"sequence_index"`
	SceneID            int           `json:"scene_id"`
	Windows            int           `json:"windows"`
	TargetMaxLuminance uint32        `json:"target_max_luminance"`
	AverageRGB         uint32        `json:"average_rgb"`
	MaxSCL             []uint32      `json:"max_scl"`
	Knee               Point         `json:"knee"`
	Anchors            []AnchorPoint `json:"anchors"`
}

// Metadata is the normalized form of an HDR10+ JSON export.
type Metadata struct {
	Version string `json:"version"`
	Profile string `json:"profile"`
	// FrameCount is the frame count the file declares: the scene summary
	// total when present, else the number of records.
	FrameCount int `json:"frame_count"`
	// AnchorCount is the Bezier anchor count used by curve-carrying frames.
	AnchorCount int                `json:"anchor_count"`
	Frames      []FrameToneMapping `json:"frames"`
	SceneCuts   []int              `json:"scene_cuts,omitempty"`
	Source      *SourceInfo        `json:"source,omitempty"`
}

// Parse decodes hdr10plus_tool JSON. It does not validate; call Validate.
func Parse(data []byte) (*Metadata, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, hkerrors.NewParseError("failed to parse HDR10+ metadata JSON", err)
	}

	m := &Metadata{
		Version:    doc.JSONInfo.Version,
		Profile:    doc.JSONInfo.Profile,
		FrameCount: len(doc.SceneInfo),
		Frames:     make([]FrameToneMapping, 0, len(doc.SceneInfo)),
		Source:     doc.ToolInfo,
	}
	if s := doc.SceneInfoSummary; s != nil && len(s.SceneFrameNumbers) > 0 {
		total := 0
		for _, n := range s.SceneFrameNumbers {
			total += n
		}
		m.FrameCount = total
		m.SceneCuts = append([]int(nil), s.SceneFirstFrameIndex...)
	}

	for _, si := range doc.SceneInfo {
		f := FrameToneMapping{
			SequenceIndex:      si.SequenceFrameIndex,
			SceneID:            si.SceneID,
			Windows:            si.NumberOfWindows,
			TargetMaxLuminance: si.TargetedMaxLuminance,
			AverageRGB:         si.LuminanceParameters.AverageRGB,
			MaxSCL:             si.LuminanceParameters.MaxScl,
			Knee: Point{
				X: float64(si.BezierCurveData.KneePointX) / kneeScale,
				Y: float64(si.BezierCurveData.KneePointY) / kneeScale,
			},
		}
		n := len(si.BezierCurveData.Anchors)
		if n > 0 {
			f.Anchors = make([]AnchorPoint, n)
			for i, a := range si.BezierCurveData.Anchors {
				f.Anchors[i] = AnchorPoint{
					Input:  float64(i+1) / float64(n+1),
					Output: float64(a) / anchorScale,
				}
			}
		}
		if n > m.AnchorCount {
			m.AnchorCount = n
		}
		m.Frames = append(m.Frames, f)
	}
	return m, nil
}

// Load reads and parses the metadata file at path.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, hkerrors.NewIOError(fmt.Sprintf("failed to read HDR10+ metadata %s", path), err)
	}
	return Parse(data)
}

// Validate checks the structural invariants of m.
func (m *Metadata) Validate() error {
	if len(m.Frames) == 0 {
		return hkerrors.NewValidationError("HDR10+ metadata contains no frames")
	}
	if m.FrameCount != len(m.Frames) {
		return hkerrors.NewValidationErrorf("HDR10+ metadata declares %d frames but has %d records", m.FrameCount, len(m.Frames))
	}
	if m.AnchorCount > maxAnchors {
		return hkerrors.NewValidationErrorf("HDR10+ anchor count %d exceeds %d", m.AnchorCount, maxAnchors)
	}

	for i, f := range m.Frames {
		if f.SequenceIndex != i {
			return hkerrors.NewValidationErrorf("frame %d has sequence index %d", i, f.SequenceIndex)
		}
		if len(f.MaxSCL) != 3 {
			return hkerrors.NewValidationErrorf("frame %d MaxScl has %d components, expected 3", i, len(f.MaxSCL))
		}
		if !inUnit(f.Knee.X) || !inUnit(f.Knee.Y) {
			return hkerrors.NewValidationErrorf("frame %d knee point (%g,%g) out of range [0, 1]", i, f.Knee.X, f.Knee.Y)
		}
		if n := len(f.Anchors); n != 0 && n != m.AnchorCount {
			return hkerrors.NewValidationErrorf("frame %d has %d anchors, expected 0 or %d", i, n, m.AnchorCount)
		}
		for j, a := range f.Anchors {
			if !inUnit(a.Input) || !inUnit(a.Output) {
				return hkerrors.NewValidationErrorf("frame %d anchor %d (%g,%g) out of range [0, 1]", i, j, a.Input, a.Output)
			}
		}
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// SceneCount returns the number of distinct scenes, taken as the highest
// scene id plus one.
func (m *Metadata) SceneCount() int {
	if len(m.Frames) == 0 {
		return 0
	}
	highest := 0
	for _, f := range m.Frames {
		highest = max(highest, f.SceneID)
	}
	return highest + 1
}

// CurveFrameCount returns the number of frames carrying a Bezier curve.
func (m *Metadata) CurveFrameCount() int {
	n := 0
	for _, f := range m.Frames {
		if len(f.Anchors) > 0 {
			n++
		}
	}
	return n
}

// AverageBrightness returns the mean AverageRGB across frames.
func (m *Metadata) AverageBrightness() (float64, bool) {
	if len(m.Frames) == 0 {
		return 0, false
	}
	var sum uint64
	for _, f := range m.Frames {
		sum += uint64(f.AverageRGB)
	}
	return float64(sum) / float64(len(m.Frames)), true
}

// PeakBrightness returns the highest MaxScl component across frames.
func (m *Metadata) PeakBrightness() (uint32, bool) {
	var peak uint32
	found := false
	for _, f := range m.Frames {
		for _, v := range f.MaxSCL {
			if !found || v > peak {
				peak = v
				found = true
			}
		}
	}
	return peak, found
}
