package hdr10plus

import (
	"math"

	"github.com/five82/hdrkit/internal/util"
)

// Result is the outcome of a successful extraction. It owns the metadata
// file at Path until Release succeeds.
type Result struct {
	Path       string
	Metadata   *Metadata
	Extracted  bool
	Size       uint64
	CurveCount int
	SceneCount int

	file *util.TempFile
}

// NewResult builds a Result for an extracted file, computing the curve and
// scene counts once.
func NewResult(path string, meta *Metadata, size uint64) *Result {
	r := &Result{Path: path, Metadata: meta, Extracted: true, Size: size, file: util.NewTempFile(path)}
	if meta != nil {
		r.CurveCount = meta.CurveFrameCount()
		r.SceneCount = meta.SceneCount()
	}
	return r
}

// FrameCount returns the number of frames covered by the metadata.
func (r *Result) FrameCount() int {
	if r == nil || r.Metadata == nil {
		return 0
	}
	return len(r.Metadata.Frames)
}

// ProcessingOverhead estimates the encode-time multiplier caused by the
// dynamic metadata.
func (r *Result) ProcessingOverhead() float64 {
	if r == nil || !r.Extracted {
		return 1.0
	}

	var curve float64
	switch {
	case r.CurveCount == 0:
		curve = 0
	case r.CurveCount <= 100:
		curve = 0.1
	case r.CurveCount <= 500:
		curve = 0.2
	case r.CurveCount <= 1000:
		curve = 0.3
	default:
		curve = 0.4
	}
	scene := math.Min(float64(r.SceneCount)*0.02, 0.2)
	return 1.4 + curve + scene
}

// Release deletes the metadata file. A failed delete is retried by the
// next call; after a successful one further calls are no-ops.
func (r *Result) Release() error {
	if r == nil || r.Path == "" {
		return nil
	}
	if r.file == nil {
		r.file = util.NewTempFile(r.Path)
	}
	return r.file.Release()
}
