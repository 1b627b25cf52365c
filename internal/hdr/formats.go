package hdr

import (
	"sort"

	hkerrors "github.com/five82/hdrkit/internal/errors"
)

// Recommendations are a format's suggested encoder adjustments.
type Recommendations struct {
	CRFAdjustment     float64
	BitrateMultiplier float64
	MinimumBitDepth   uint8
	Preset            string
	SpecialParams     Params
}

// FormatHandler builds and validates x265 parameters for one format.
type FormatHandler interface {
	Format() Format
	// BuildEncodingParams returns base extended with the format's colour
	// signalling and tuning. base is not modified.
	BuildEncodingParams(meta Metadata, base Params) Params
	ValidateMetadata(meta Metadata) error
	Recommendations() Recommendations
}

// Registry maps formats to their handlers.
type Registry struct {
	handlers map[Format]FormatHandler
}

// NewRegistry returns a registry holding the HDR10, HDR10+ and HLG handlers.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[Format]FormatHandler)}
	r.Register(HDR10Handler{})
	r.Register(HDR10PlusHandler{})
	r.Register(HLGHandler{})
	return r
}

// Register adds or replaces the handler for h.Format().
func (r *Registry) Register(h FormatHandler) {
	r.handlers[h.Format()] = h
}

// Handler returns the handler for f.
func (r *Registry) Handler(f Format) (FormatHandler, bool) {
	h, ok := r.handlers[f]
	return h, ok
}

// Recommendations returns the recommendations for f, if a handler exists.
func (r *Registry) Recommendations(f Format) (Recommendations, bool) {
	h, ok := r.handlers[f]
	if !ok {
		return Recommendations{}, false
	}
	return h.Recommendations(), true
}

// SupportedFormats lists registered formats in enum order.
func (r *Registry) SupportedFormats() []Format {
	out := make([]Format, 0, len(r.handlers))
	for f := range r.handlers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BuildParams validates meta with the handler for format and builds the
// parameter set. SDR content gets SDRParams.
func (r *Registry) BuildParams(format Format, meta Metadata, base Params) (Params, error) {
	if format == FormatNone {
		return SDRParams(base), nil
	}
	h, ok := r.handlers[format]
	if !ok {
		return nil, hkerrors.NewValidationErrorf("no handler registered for %s", format)
	}
	if err := h.ValidateMetadata(meta); err != nil {
		return nil, err
	}
	return h.BuildEncodingParams(meta, base), nil
}

// BuildParamsLenient builds the parameter set for format even when meta
// fails validation. Signalling is forced to the format's own transfer and
// BT.2020, and a mastering display or light level the handler rejects is
// dropped so the handler's defaults apply. The validation error, if any,
// is returned alongside usable parameters.
func (r *Registry) BuildParamsLenient(format Format, meta Metadata, base Params) (Params, error) {
	p, err := r.BuildParams(format, meta, base)
	if err == nil {
		return p, nil
	}
	h, ok := r.handlers[format]
	if !ok {
		return nil, err
	}

	fixed := meta
	fixed.Format = format
	fixed.ColorSpace = ColorSpaceBT2020
	fixed.Transfer = TransferSMPTE2084
	if format == FormatHLG {
		fixed.Transfer = TransferAribStdB67
	}
	if fixed.MasteringDisplay != nil {
		only := fixed
		only.ContentLightLevel = nil
		if h.ValidateMetadata(only) != nil {
			fixed.MasteringDisplay = nil
		}
	}
	if fixed.ContentLightLevel != nil {
		only := fixed
		only.MasteringDisplay = nil
		if h.ValidateMetadata(only) != nil {
			fixed.ContentLightLevel = nil
		}
	}
	return h.BuildEncodingParams(fixed, base), err
}

// SDRParams strips HDR signalling from base and sets BT.709 colour.
func SDRParams(base Params) Params {
	p := base.Clone()
	for _, k := range []string{"master-display", "max-cll", "hdr", "hdr-opt", "hdr10", "hdr10-opt", "dhdr10-info", "dhdr10-opt"} {
		p.Delete(k)
	}
	p.Set("colorprim", "bt709")
	p.Set("transfer", "bt709")
	p.Set("colormatrix", "bt709")
	return p
}

// ValidateEncodingParams checks that a finished parameter set is
// consistent with format.
func ValidateEncodingParams(p Params, format Format) error {
	switch format {
	case FormatNone:
		if p.Has("master-display") || p.Has("max-cll") {
			return hkerrors.NewValidationError("SDR encoding must not carry HDR metadata parameters")
		}
	case FormatHDR10, FormatHDR10Plus:
		if !p.Has("master-display") {
			return hkerrors.NewValidationErrorf("%s encoding requires master-display", format)
		}
		if v, ok := p.Get("colorprim"); ok && v != "bt2020" {
			return hkerrors.NewValidationErrorf("%s encoding requires bt2020 primaries, got %s", format, v)
		}
		if v, ok := p.Get("transfer"); ok && v != "smpte2084" {
			return hkerrors.NewValidationErrorf("%s encoding requires smpte2084 transfer, got %s", format, v)
		}
		if v, ok := p.Get("output-depth"); ok && v != "10" && v != "12" {
			return hkerrors.NewValidationErrorf("%s encoding requires 10 or 12-bit output, got %s", format, v)
		}
	case FormatHLG:
		if v, ok := p.Get("transfer"); ok && v != "arib-std-b67" {
			return hkerrors.NewValidationErrorf("HLG encoding requires arib-std-b67 transfer, got %s", v)
		}
		if v, ok := p.Get("colorprim"); ok && v != "bt2020" {
			return hkerrors.NewValidationErrorf("HLG encoding requires bt2020 primaries, got %s", v)
		}
	}
	return nil
}

// checkFormat rejects metadata tagged for a different handler, or whose
// transfer or colour space does not belong to the format.
func checkFormat(meta Metadata, want Format, transfer TransferFunction) error {
	if meta.Format != want {
		return hkerrors.NewValidationErrorf("expected %s metadata, got %s", want, meta.Format)
	}
	if meta.Transfer != transfer {
		return hkerrors.NewValidationErrorf("%s requires %s transfer, got %s", want, transfer, meta.Transfer)
	}
	if meta.ColorSpace != ColorSpaceBT2020 {
		return hkerrors.NewValidationErrorf("%s requires BT.2020 colour space, got %s", want, meta.ColorSpace)
	}
	return nil
}

// checkStaticPQ applies the HDR10/HDR10+ bounds on mastering display and
// content light level.
func checkStaticPQ(meta Metadata) error {
	f := meta.Format
	if md := meta.MasteringDisplay; md != nil {
		if md.MaxLuminance < 100 || md.MaxLuminance > 10000 {
			return hkerrors.NewValidationErrorf("%s max luminance %d out of range [100, 10000] nits", f, md.MaxLuminance)
		}
		if md.MinLuminance < 0.0001 || md.MinLuminance > 1.0 {
			return hkerrors.NewValidationErrorf("%s min luminance %g out of range [0.0001, 1.0] nits", f, md.MinLuminance)
		}
		if err := checkChromaticities(f, md); err != nil {
			return err
		}
	}
	if cll := meta.ContentLightLevel; cll != nil {
		if cll.MaxCLL == 0 || cll.MaxCLL > 10000 {
			return hkerrors.NewValidationErrorf("%s max CLL %d out of range [1, 10000] nits", f, cll.MaxCLL)
		}
		if err := checkFALL(f, cll); err != nil {
			return err
		}
	}
	return nil
}

func checkChromaticities(f Format, md *MasteringDisplay) error {
	for _, c := range []Chromaticity{md.Red, md.Green, md.Blue, md.WhitePoint} {
		if !c.valid() {
			return hkerrors.NewValidationErrorf("%s chromaticity (%g,%g) out of range [0, 1]", f, c.X, c.Y)
		}
	}
	return nil
}

func checkFALL(f Format, cll *ContentLightLevel) error {
	if cll.MaxFALL == 0 || cll.MaxFALL > cll.MaxCLL {
		return hkerrors.NewValidationErrorf("%s max FALL %d invalid (must be > 0 and <= max CLL %d)", f, cll.MaxFALL, cll.MaxCLL)
	}
	return nil
}

// applyDefaults sets each entry of defaults that base does not already have.
func applyDefaults(p *Params, defaults Params) {
	for _, kv := range defaults {
		p.SetIfMissing(kv.Key, kv.Value)
	}
}
