package hdr

import "github.com/five82/hdrkit/internal/logging"

var hdr10PlusTuning = Params{
	{"psy-rd", "2.2"},
	{"psy-rdoq", "1.2"},
	{"rd", "4"},
	{"me", "umh"},
	{"subme", "4"},
	{"aq-mode", "3"},
	{"aq-strength", "0.9"},
	{"deblock", "1,1"},
	{"sao", ""},
	{"rect", ""},
	{"amp", ""},
	{"rc-lookahead", "40"},
	{"bframes", "6"},
	{"b-adapt", "2"},
	{"b-pyramid", ""},
	{"nr-intra", "0"},
	{"nr-inter", "0"},
	{"strong-intra-smoothing", ""},
	{"constrained-intra", ""},
	{"weightb", ""},
	{"weightp", "2"},
	{"cutree", ""},
	{"no-open-gop", ""},
}

// HDR10PlusHandler prepares the static baseline for HDR10+ content. The
// dynamic metadata file is added separately by the HDR10+ manager.
type HDR10PlusHandler struct{}

func (HDR10PlusHandler) Format() Format { return FormatHDR10Plus }

func (HDR10PlusHandler) BuildEncodingParams(meta Metadata, base Params) Params {
	p := base.Clone()
	setPQStatic(&p, meta)
	applyDefaults(&p, hdr10PlusTuning)
	logging.Debug("HDR10+ static baseline built, dynamic metadata is supplied separately")
	return p
}

func (HDR10PlusHandler) ValidateMetadata(meta Metadata) error {
	if err := checkFormat(meta, FormatHDR10Plus, TransferSMPTE2084); err != nil {
		return err
	}
	if meta.MasteringDisplay == nil {
		logging.Warn("HDR10+ content is missing static mastering display metadata")
	}
	return checkStaticPQ(meta)
}

func (HDR10PlusHandler) Recommendations() Recommendations {
	return Recommendations{
		CRFAdjustment:     2.5,
		BitrateMultiplier: 1.4,
		MinimumBitDepth:   10,
		Preset:            "slower",
		SpecialParams: Params{
			{"psy-rd", "2.2"},
			{"psy-rdoq", "1.2"},
			{"aq-mode", "3"},
			{"aq-strength", "0.9"},
			{"deblock", "1,1"},
			{"rc-lookahead", "40"},
		},
	}
}
