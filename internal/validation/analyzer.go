// Package validation checks that an encode kept the dynamic-range
// signalling it was meant to keep.
package validation

import (
	"context"

	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/ffprobe"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/mediainfo"
)

// MediaAnalyzer inspects an encoded file.
// This interface allows validation logic to be tested without external tools.
type MediaAnalyzer interface {
	Analyze(ctx context.Context, path string) (*OutputInfo, error)
}

// OutputInfo is what validation needs to know about an encoded file.
type OutputInfo struct {
	CodecName    string
	Width        uint32
	Height       uint32
	DurationSecs float64
	BitDepth     uint8
	HDR          hdr.AnalysisResult
	DolbyVision  dolbyvision.Info
}

// Prober runs ffprobe on a file.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffprobe.Probe, error)
}

// MediaInfoSource returns a mediainfo JSON report.
type MediaInfoSource interface {
	JSON(ctx context.Context, path string) ([]byte, error)
}

// DefaultAnalyzer implements MediaAnalyzer with ffprobe, cross-checked
// with MediaInfo when one is configured.
type DefaultAnalyzer struct {
	prober    Prober
	detector  *hdr.Detector
	dv        *dolbyvision.Analyzer
	mediainfo MediaInfoSource
}

// NewDefaultAnalyzer creates a DefaultAnalyzer. mi may be nil.
func NewDefaultAnalyzer(prober Prober, detector *hdr.Detector, dv *dolbyvision.Analyzer, mi MediaInfoSource) *DefaultAnalyzer {
	return &DefaultAnalyzer{prober: prober, detector: detector, dv: dv, mediainfo: mi}
}

// Analyze probes path.
func (a *DefaultAnalyzer) Analyze(ctx context.Context, path string) (*OutputInfo, error) {
	probe, err := a.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	props, err := probe.VideoProperties()
	if err != nil {
		return nil, err
	}
	res, err := a.detector.Detect(probe)
	if err != nil {
		return nil, err
	}
	info := &OutputInfo{
		CodecName:    props.CodecName,
		Width:        props.Width,
		Height:       props.Height,
		DurationSecs: props.DurationSecs,
		BitDepth:     props.BitDepth,
		HDR:          res,
		DolbyVision:  a.dv.Analyze(probe),
	}

	if a.mediainfo != nil {
		data, err := a.mediainfo.JSON(ctx, path)
		if err != nil {
			logging.Debug("mediainfo cross-check failed", "path", path, "error", err)
			return info, nil
		}
		resp, err := mediainfo.Parse(data)
		if err != nil {
			logging.Debug("mediainfo cross-check failed", "path", path, "error", err)
			return info, nil
		}
		hints := mediainfo.DetectHints(resp)
		info.HDR = hints.MergeHDR(info.HDR)
		info.DolbyVision = hints.MergeDolbyVision(info.DolbyVision)
		if info.BitDepth == 0 && hints.BitDepth != nil {
			info.BitDepth = *hints.BitDepth
		}
	}
	return info, nil
}
