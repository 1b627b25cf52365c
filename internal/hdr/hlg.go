package hdr

import (
	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
)

var hlgTuning = Params{
	{"psy-rd", "1.8"},
	{"psy-rdoq", "0.8"},
	{"rd", "3"},
	{"me", "hex"},
	{"subme", "2"},
	{"aq-mode", "2"},
	{"aq-strength", "0.7"},
	{"deblock", "0,0"},
	{"sao", ""},
	{"rect", ""},
	{"rc-lookahead", "20"},
	{"bframes", "3"},
	{"b-adapt", "1"},
	{"nr-intra", "0"},
	{"nr-inter", "0"},
	{"strong-intra-smoothing", ""},
	{"weightp", "2"},
	{"weightb", ""},
	{"keyint", "250"},
	{"min-keyint", "25"},
	{"qcomp", "0.6"},
	{"ip-ratio", "1.4"},
	{"pb-ratio", "1.3"},
	{"max-merge", "3"},
	{"early-skip", ""},
}

// HLGHandler handles Hybrid Log-Gamma content. Static metadata is optional
// and only carried through when the source has it.
type HLGHandler struct{}

func (HLGHandler) Format() Format { return FormatHLG }

func (HLGHandler) BuildEncodingParams(meta Metadata, base Params) Params {
	p := base.Clone()
	p.Set("colorprim", "bt2020")
	p.Set("transfer", "arib-std-b67")
	p.Set("colormatrix", "bt2020nc")

	if meta.MasteringDisplay != nil {
		p.Set("master-display", meta.MasteringDisplay.String())
		logging.Debug("preserving mastering display metadata for HLG")
	}
	if meta.ContentLightLevel != nil {
		p.Set("max-cll", meta.ContentLightLevel.String())
	}
	p.Set("output-depth", "10")

	applyDefaults(&p, hlgTuning)
	return p
}

// ValidateMetadata is looser than the PQ handlers: luminance outside the
// typical HLG range is only logged.
func (HLGHandler) ValidateMetadata(meta Metadata) error {
	if err := checkFormat(meta, FormatHLG, TransferAribStdB67); err != nil {
		return err
	}

	if md := meta.MasteringDisplay; md != nil {
		if md.MaxLuminance < 50 || md.MaxLuminance > 4000 {
			logging.Warn("HLG max luminance outside typical range [50, 4000] nits", "max_luminance", md.MaxLuminance)
		}
		if md.MinLuminance < 0.0001 || md.MinLuminance > 1.0 {
			return hkerrors.NewValidationErrorf("HLG min luminance %g out of range [0.0001, 1.0] nits", md.MinLuminance)
		}
		if err := checkChromaticities(FormatHLG, md); err != nil {
			return err
		}
	}

	if cll := meta.ContentLightLevel; cll != nil {
		if cll.MaxCLL == 0 || cll.MaxCLL > 4000 {
			logging.Warn("HLG max CLL outside typical range [1, 4000] nits", "max_cll", cll.MaxCLL)
		}
		if err := checkFALL(FormatHLG, cll); err != nil {
			return err
		}
	}
	return nil
}

func (HLGHandler) Recommendations() Recommendations {
	return Recommendations{
		CRFAdjustment:     1.5,
		BitrateMultiplier: 1.2,
		MinimumBitDepth:   10,
		Preset:            "medium",
		SpecialParams: Params{
			{"psy-rd", "1.8"},
			{"psy-rdoq", "0.8"},
			{"aq-mode", "2"},
			{"aq-strength", "0.7"},
			{"deblock", "0,0"},
		},
	}
}
