package hdr

import "github.com/five82/hdrkit/internal/logging"

var hdr10Tuning = Params{
	{"psy-rd", "2.0"},
	{"psy-rdoq", "1.0"},
	{"rd", "4"},
	{"me", "umh"},
	{"subme", "3"},
	{"aq-mode", "3"},
	{"aq-strength", "0.8"},
	{"deblock", "1,1"},
	{"sao", ""},
	{"rect", ""},
	{"amp", ""},
	{"rc-lookahead", "25"},
	{"bframes", "4"},
	{"b-adapt", "2"},
	{"nr-intra", "0"},
	{"nr-inter", "0"},
	{"strong-intra-smoothing", ""},
	{"constrained-intra", ""},
}

// HDR10Handler handles static PQ HDR.
type HDR10Handler struct{}

func (HDR10Handler) Format() Format { return FormatHDR10 }

func (HDR10Handler) BuildEncodingParams(meta Metadata, base Params) Params {
	p := base.Clone()
	setPQStatic(&p, meta)
	applyDefaults(&p, hdr10Tuning)
	return p
}

func (HDR10Handler) ValidateMetadata(meta Metadata) error {
	if err := checkFormat(meta, FormatHDR10, TransferSMPTE2084); err != nil {
		return err
	}
	return checkStaticPQ(meta)
}

func (HDR10Handler) Recommendations() Recommendations {
	return Recommendations{
		CRFAdjustment:     2.0,
		BitrateMultiplier: 1.3,
		MinimumBitDepth:   10,
		Preset:            "slow",
		SpecialParams: Params{
			{"psy-rd", "2.0"},
			{"psy-rdoq", "1.0"},
			{"aq-mode", "3"},
			{"aq-strength", "0.8"},
			{"deblock", "1,1"},
		},
	}
}

// setPQStatic writes the BT.2020/PQ signalling shared by HDR10 and HDR10+.
// Missing mastering display or light level metadata falls back to defaults.
func setPQStatic(p *Params, meta Metadata) {
	p.Set("colorprim", "bt2020")
	p.Set("transfer", "smpte2084")
	p.Set("colormatrix", "bt2020nc")

	if meta.MasteringDisplay != nil {
		p.Set("master-display", meta.MasteringDisplay.String())
	} else {
		p.Set("master-display", DefaultMasteringDisplay().String())
		logging.Warn("using default mastering display metadata", "format", meta.Format)
	}

	if meta.ContentLightLevel == nil {
		logging.Warn("using default content light level", "format", meta.Format)
	}
	p.Set("max-cll", FormatMaxCLL(meta.ContentLightLevel))

	p.Set("hdr10", "")
	p.Set("hdr10-opt", "")
	p.Set("output-depth", "10")
}
