package content

import (
	"math"

	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/hdr10plus"
	"github.com/five82/hdrkit/internal/logging"
)

var (
	sdrCRFRange = [2]float64{18, 28}
	hdrCRFRange = [2]float64{18, 24}
)

// Resolver maps detection results to an Approach and its Adjustments.
type Resolver struct {
	cfg      config.DolbyVisionConfig
	dv       *dolbyvision.Analyzer
	registry *hdr.Registry
}

// NewResolver creates a Resolver. A nil registry uses hdr.NewRegistry().
func NewResolver(cfg config.DolbyVisionConfig, registry *hdr.Registry) *Resolver {
	if registry == nil {
		registry = hdr.NewRegistry()
	}
	return &Resolver{
		cfg:      cfg,
		dv:       dolbyvision.NewAnalyzer(cfg),
		registry: registry,
	}
}

// Resolve picks the approach. It depends only on its arguments and the
// Dolby Vision configuration.
func (r *Resolver) Resolve(dv dolbyvision.Info, res hdr.AnalysisResult, hdr10PlusPresent bool) Approach {
	if dv.IsDolbyVision() {
		if r.dv.ShouldPreserve(dv) {
			if res.Format() == hdr.FormatHDR10Plus || hdr10PlusPresent {
				logging.Info("dual format detected: Dolby Vision + HDR10+", "profile", dv.Profile)
				return DolbyVisionWithHDR10Plus{Info: dv, Result: res}
			}
			return DolbyVision{Info: dv}
		}
		if res.Format() != hdr.FormatNone {
			logging.Warn("Dolby Vision detected but not preservable, falling back to HDR",
				"profile", dv.Profile, "format", res.Format())
			return HDR{Result: res}
		}
	}

	if res.Format() != hdr.FormatNone {
		return HDR{Result: res}
	}
	return SDR{}
}

// Adjustments computes the rate-control adjustments for a.
func (r *Resolver) Adjustments(a Approach) Adjustments {
	switch a := a.(type) {
	case HDR:
		adj := Adjustments{
			CRFAdjustment:      0,
			BitrateMultiplier:  1.0,
			EncodingComplexity: a.Result.EncodingComplexity,
			CRFRange:           hdrCRFRange,
		}
		if rec, ok := r.registry.Recommendations(a.Result.Format()); ok {
			adj.CRFAdjustment = rec.CRFAdjustment
			adj.BitrateMultiplier = rec.BitrateMultiplier
		}
		return adj

	case DolbyVision:
		crfRange, complexity := ProfileAdjustments(a.Info.Profile, r.cfg.ProfileSpecificAdjustments)
		return Adjustments{
			CRFAdjustment:      r.cfg.CRFAdjustment,
			BitrateMultiplier:  r.cfg.BitrateMultiplier,
			EncodingComplexity: complexity,
			RequiresVBV:        true,
			VBVBufsize:         r.cfg.VBVBufsize,
			VBVMaxrate:         r.cfg.VBVMaxrate,
			CRFRange:           crfRange,
		}

	case DolbyVisionWithHDR10Plus:
		crfRange, complexity := ProfileAdjustments(a.Info.Profile, r.cfg.ProfileSpecificAdjustments)
		return Adjustments{
			CRFAdjustment:      r.cfg.CRFAdjustment - 0.5,
			BitrateMultiplier:  r.cfg.BitrateMultiplier * 1.2,
			EncodingComplexity: complexity * 1.3,
			RequiresVBV:        true,
			VBVBufsize:         r.cfg.VBVBufsize,
			VBVMaxrate:         r.cfg.VBVMaxrate,
			CRFRange:           [2]float64{crfRange[0] - 1.0, crfRange[1] - 0.5},
		}

	default:
		return SDRAdjustments()
	}
}

// SDRAdjustments are the identity adjustments.
func SDRAdjustments() Adjustments {
	return Adjustments{
		BitrateMultiplier:  1.0,
		EncodingComplexity: 1.0,
		CRFRange:           sdrCRFRange,
	}
}

// ProfileAdjustments returns the CRF range and complexity multiplier for a
// Dolby Vision profile. With profile-specific adjustments disabled every
// profile gets 16-20 and 1.5.
func ProfileAdjustments(p dolbyvision.Profile, profileSpecific bool) ([2]float64, float64) {
	if !profileSpecific {
		return [2]float64{16, 20}, 1.5
	}
	switch p {
	case dolbyvision.Profile7:
		return [2]float64{16, 19}, 1.8
	case dolbyvision.Profile81:
		return [2]float64{16, 20}, 1.5
	case dolbyvision.Profile82:
		return [2]float64{16, 19}, 1.6
	case dolbyvision.Profile84:
		return [2]float64{16, 20}, 1.5
	case dolbyvision.Profile5:
		return [2]float64{17, 21}, 1.4
	default:
		logging.Warn("unknown Dolby Vision profile, using conservative settings", "profile", p)
		return [2]float64{16, 18}, 1.8
	}
}

// Analyze resolves the approach for already-detected inputs and bundles
// the results.
func (r *Resolver) Analyze(res hdr.AnalysisResult, dv dolbyvision.Info, dynamic *hdr10plus.Result) Analysis {
	approach := r.Resolve(dv, res, dynamic != nil)
	adj := r.Adjustments(approach)
	logging.Info("resolved encoding approach",
		"approach", approach.String(),
		"crf_adjustment", adj.CRFAdjustment,
		"bitrate_multiplier", adj.BitrateMultiplier,
		"requires_vbv", adj.RequiresVBV)
	return Analysis{
		HDR:         res,
		DolbyVision: dv,
		HDR10Plus:   dynamic,
		Approach:    approach,
		Adjustments: adj,
	}
}

// RecommendedCRF applies the adjustment to base and clamps the result to
// the approach's range.
func RecommendedCRF(adj Adjustments, base float64) float64 {
	crf := base + adj.CRFAdjustment
	return math.Min(math.Max(crf, adj.CRFRange[0]), adj.CRFRange[1])
}

// RecommendedBitrate scales base (kbps) by the multiplier, rounding to the
// nearest integer.
func RecommendedBitrate(adj Adjustments, base uint32) uint32 {
	return uint32(math.Round(float64(base) * adj.BitrateMultiplier))
}

// ResolveVBV returns the VBV parameters for the rate-control mode. In CRF
// mode the configured buffer is used when VBV is required. ABR derives the
// buffer from the bitrate when VBV is required. CBR always constrains the
// rate and signals CBR HRD.
func ResolveVBV(adj Adjustments, mode config.Mode, bitrateKbps uint32) hdr.Params {
	var p hdr.Params
	switch mode {
	case config.ModeCBR:
		p.Set("vbv-bufsize", formatUint(bitrateKbps*15/10))
		p.Set("vbv-maxrate", formatUint(bitrateKbps))
		p.Set("nal-hrd", "cbr")
	case config.ModeABR:
		if adj.RequiresVBV {
			p.Set("vbv-bufsize", formatUint(bitrateKbps*15/10))
			p.Set("vbv-maxrate", formatUint(bitrateKbps))
		}
	default:
		if adj.RequiresVBV {
			p.Set("vbv-bufsize", formatUint(adj.VBVBufsize))
			p.Set("vbv-maxrate", formatUint(adj.VBVMaxrate))
		}
	}
	return p
}
