// Package hdr classifies probed video streams into dynamic-range formats and
// builds the x265 parameters each format needs.
package hdr

import "strings"

// Format is the dynamic-range format of a stream.
type Format int

const (
	FormatNone Format = iota
	FormatHDR10
	FormatHDR10Plus
	FormatHLG
)

func (f Format) String() string {
	switch f {
	case FormatHDR10:
		return "HDR10"
	case FormatHDR10Plus:
		return "HDR10+"
	case FormatHLG:
		return "HLG"
	default:
		return "SDR"
	}
}

// MarshalText renders the format name for JSON reports.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// IsHDR reports whether the format carries high-dynamic-range signalling.
func (f Format) IsHDR() bool {
	return f != FormatNone
}

// ColorSpace identifies colour primaries or a matrix family.
type ColorSpace int

const (
	ColorSpaceUnknown ColorSpace = iota
	ColorSpaceBT709
	ColorSpaceBT2020
	ColorSpaceDCIP3
	ColorSpaceDisplayP3
)

func (c ColorSpace) String() string {
	switch c {
	case ColorSpaceBT709:
		return "BT.709"
	case ColorSpaceBT2020:
		return "BT.2020"
	case ColorSpaceDCIP3:
		return "DCI-P3"
	case ColorSpaceDisplayP3:
		return "Display-P3"
	default:
		return "unknown"
	}
}

// ParseColorSpace maps ffprobe color_space / color_primaries values.
func ParseColorSpace(raw string) ColorSpace {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "bt2020"), strings.Contains(s, "rec2020"):
		return ColorSpaceBT2020
	case strings.Contains(s, "bt709"), strings.Contains(s, "rec709"):
		return ColorSpaceBT709
	case strings.Contains(s, "dci-p3"), strings.Contains(s, "smpte431"):
		return ColorSpaceDCIP3
	case strings.Contains(s, "display-p3"), strings.Contains(s, "smpte432"):
		return ColorSpaceDisplayP3
	default:
		return ColorSpaceUnknown
	}
}

// TransferFunction is the opto-electronic transfer characteristic.
type TransferFunction int

const (
	TransferUnknown TransferFunction = iota
	TransferBT709
	TransferSMPTE2084
	TransferAribStdB67
	TransferBT2020_10
	TransferBT2020_12
)

func (t TransferFunction) String() string {
	switch t {
	case TransferBT709:
		return "BT.709"
	case TransferSMPTE2084:
		return "SMPTE-2084 (PQ)"
	case TransferAribStdB67:
		return "ARIB STD-B67 (HLG)"
	case TransferBT2020_10:
		return "BT.2020-10"
	case TransferBT2020_12:
		return "BT.2020-12"
	default:
		return "unknown"
	}
}

// ParseTransferFunction maps ffprobe color_transfer values.
func ParseTransferFunction(raw string) TransferFunction {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "smpte2084"):
		return TransferSMPTE2084
	case strings.Contains(s, "arib-std-b67"):
		return TransferAribStdB67
	case strings.Contains(s, "bt2020-10"), strings.Contains(s, "bt2020_10"):
		return TransferBT2020_10
	case strings.Contains(s, "bt2020-12"), strings.Contains(s, "bt2020_12"):
		return TransferBT2020_12
	case strings.Contains(s, "bt709"):
		return TransferBT709
	default:
		return TransferUnknown
	}
}

// Metadata describes the dynamic-range signalling of one stream. It is
// produced by the Detector and treated as immutable afterwards.
type Metadata struct {
	Format            Format
	ColorSpace        ColorSpace
	Transfer          TransferFunction
	Primaries         ColorSpace
	MasteringDisplay  *MasteringDisplay
	ContentLightLevel *ContentLightLevel

	// Raw ffprobe values, kept for diagnostics.
	RawColorSpace string
	RawTransfer   string
	RawPrimaries  string

	BitDepth           uint8
	HasDynamicMetadata bool
}

// WithFormat returns a copy of m tagged with a different format. Used when
// HDR10+ degrades to HDR10 because no dynamic metadata could be extracted.
func (m Metadata) WithFormat(f Format) Metadata {
	m.Format = f
	return m
}

// SDRMetadata returns the metadata assumed for BT.709 content.
func SDRMetadata() Metadata {
	return Metadata{
		Format:        FormatNone,
		ColorSpace:    ColorSpaceBT709,
		Transfer:      TransferBT709,
		Primaries:     ColorSpaceBT709,
		RawColorSpace: "bt709",
		RawTransfer:   "bt709",
		RawPrimaries:  "bt709",
	}
}

// HDR10Metadata returns a fully populated HDR10 record using the default
// mastering display and content light level.
func HDR10Metadata() Metadata {
	md := DefaultMasteringDisplay()
	cll := DefaultContentLightLevel()
	return Metadata{
		Format:            FormatHDR10,
		ColorSpace:        ColorSpaceBT2020,
		Transfer:          TransferSMPTE2084,
		Primaries:         ColorSpaceBT2020,
		MasteringDisplay:  &md,
		ContentLightLevel: &cll,
		RawColorSpace:     "bt2020nc",
		RawTransfer:       "smpte2084",
		RawPrimaries:      "bt2020",
		BitDepth:          10,
	}
}

// AnalysisResult is the Detector's verdict for one file.
type AnalysisResult struct {
	Metadata            Metadata
	Confidence          float64
	RequiresToneMapping bool
	EncodingComplexity  float64
}

// Format is shorthand for r.Metadata.Format.
func (r AnalysisResult) Format() Format {
	return r.Metadata.Format
}

// EncodingComplexity returns the encode-cost multiplier of a format.
func EncodingComplexity(f Format) float64 {
	switch f {
	case FormatHDR10:
		return 1.2
	case FormatHDR10Plus:
		return 1.4
	case FormatHLG:
		return 1.15
	default:
		return 1.0
	}
}

// WithoutDynamicMetadata downgrades an HDR10+ verdict to HDR10. Other
// formats are returned unchanged.
func (r AnalysisResult) WithoutDynamicMetadata() AnalysisResult {
	if r.Format() != FormatHDR10Plus {
		return r
	}
	r.Metadata = r.Metadata.WithFormat(FormatHDR10)
	r.Metadata.HasDynamicMetadata = false
	r.EncodingComplexity = EncodingComplexity(FormatHDR10)
	return r
}
