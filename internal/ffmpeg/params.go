// Package ffmpeg builds and runs the libx265 encode of one file.
package ffmpeg

import (
	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/content"
	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/logging"
)

// Pixel formats handed to libx265.
const (
	PixelFormat8Bit  = "yuv420p"
	PixelFormat10Bit = "yuv420p10le"
)

// Plan is what the analysis and metadata workflow decided for one file.
type Plan struct {
	Analysis      content.Analysis
	TargetProfile dolbyvision.Profile
	// RPUPath is set only when x265 reads the RPU itself instead of it
	// being injected after the encode.
	RPUPath string
	// Extra holds parameters supplied by the metadata workflow, such as
	// dhdr10-info.
	Extra hdr.Params
}

// BuildEncodeParams resolves the rate control, pixel format and x265
// parameters for plan.
func BuildEncodeParams(input, output string, enc config.EncodingConfig, plan Plan, registry *hdr.Registry) (*EncodeParams, error) {
	if registry == nil {
		registry = hdr.NewRegistry()
	}
	a := plan.Analysis
	res := a.HDR
	format := res.Format()

	var x265 hdr.Params
	var err error
	validate := true
	switch approach := a.Approach.(type) {
	case content.HDR:
		x265, err = registry.BuildParamsLenient(format, res.Metadata, nil)
		if x265 == nil {
			return nil, err
		}
		if err != nil {
			logging.Warn("source HDR metadata rejected, encoding with default static metadata",
				"input", input, "format", format, "error", err)
		}
	case content.DolbyVision, content.DolbyVisionWithHDR10Plus:
		if format.IsHDR() {
			if x265, err = registry.BuildParams(format, res.Metadata, nil); err != nil {
				logging.Warn("static HDR parameters rejected for Dolby Vision base layer, using Dolby Vision defaults",
					"approach", approach.String(), "error", err)
				x265 = nil
				validate = false
			}
		} else {
			validate = false
		}
		x265.Merge(content.DolbyVisionParams(plan.TargetProfile, plan.RPUPath))
	default:
		x265 = hdr.SDRParams(nil)
	}

	x265.Merge(plan.Extra)

	p := &EncodeParams{
		Input:       input,
		Output:      output,
		Preset:      enc.Preset,
		Mode:        enc.Mode,
		PixelFormat: PixelFormat8Bit,
	}
	if p.Mode == "" {
		p.Mode = config.ModeCRF
	}
	if p.Preset == "" {
		p.Preset = config.DefaultPreset
	}

	if p.Mode == config.ModeCRF {
		p.CRF = content.RecommendedCRF(a.Adjustments, enc.BaseCRF)
	} else {
		p.BitrateKbps = content.RecommendedBitrate(a.Adjustments, enc.BaseBitrateKbps)
	}
	x265.Merge(content.ResolveVBV(a.Adjustments, p.Mode, p.BitrateKbps))

	if format.IsHDR() || content.PreservesDolbyVision(a.Approach) || res.Metadata.BitDepth >= 10 {
		p.PixelFormat = PixelFormat10Bit
	}

	if _, sdr := a.Approach.(content.SDR); sdr {
		format = hdr.FormatNone
	}
	if validate {
		if err := hdr.ValidateEncodingParams(x265, format); err != nil {
			return nil, err
		}
	}
	p.X265Params = x265

	logging.Debug("encode parameters resolved",
		"input", input,
		"approach", a.Approach.String(),
		"mode", p.Mode,
		"crf", p.CRF,
		"bitrate_kbps", p.BitrateKbps,
		"pix_fmt", p.PixelFormat,
		"x265_params", x265.String())
	return p, nil
}
