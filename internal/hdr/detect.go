package hdr

import (
	"math"
	"strings"

	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/ffprobe"
	"github.com/five82/hdrkit/internal/logging"
)

// Side-data type labels ffprobe uses for static HDR metadata.
const (
	sideDataMasteringDisplay  = "Mastering display metadata"
	sideDataContentLightLevel = "Content light level metadata"
)

// DefaultDynamicMetadataLabels are side_data_type values known to mark
// SMPTE ST 2094-40 (HDR10+) dynamic metadata across ffprobe versions.
var DefaultDynamicMetadataLabels = []string{
	"HDR dynamic metadata (SMPTE 2094-40)",
	"HDR dynamic metadata SMPTE2094-40",
	"HDR Dynamic Metadata SMPTE2094-40 (HDR10+)",
	"HDR10+ dynamic metadata",
	"Dynamic HDR10+ metadata",
	"SMPTE2094-40",
	"SMPTE 2094-40",
}

// Detector classifies probe output into an HDR format.
type Detector struct {
	labels map[string]struct{}
}

// NewDetector returns a Detector that recognises the default dynamic
// metadata labels plus extraLabels. Extra labels match case-insensitively.
func NewDetector(extraLabels ...string) *Detector {
	d := &Detector{labels: make(map[string]struct{}, len(DefaultDynamicMetadataLabels)+len(extraLabels))}
	for _, l := range DefaultDynamicMetadataLabels {
		d.labels[strings.ToLower(l)] = struct{}{}
	}
	for _, l := range extraLabels {
		if l = strings.TrimSpace(l); l != "" {
			d.labels[strings.ToLower(l)] = struct{}{}
		}
	}
	return d
}

// IsDynamicMetadataLabel reports whether a side_data_type marks HDR10+
// dynamic metadata, by exact label or by pattern.
func (d *Detector) IsDynamicMetadataLabel(sideDataType string) bool {
	lower := strings.ToLower(strings.TrimSpace(sideDataType))
	if lower == "" {
		return false
	}
	if _, ok := d.labels[lower]; ok {
		return true
	}

	if strings.Contains(lower, "smpte2094-40") ||
		strings.Contains(lower, "smpte 2094-40") ||
		strings.Contains(lower, "smpte2094_40") {
		return true
	}
	if strings.Contains(lower, "hdr10+") && strings.Contains(lower, "dynamic") {
		return true
	}
	return strings.Contains(lower, "dynamic") && strings.Contains(lower, "metadata") &&
		(strings.Contains(lower, "2094") || strings.Contains(lower, "hdr10+"))
}

// DetectJSON parses raw ffprobe JSON and runs Detect.
func (d *Detector) DetectJSON(data []byte) (AnalysisResult, error) {
	probe, err := ffprobe.ParseProbeJSON(data)
	if err != nil {
		return AnalysisResult{}, err
	}
	return d.Detect(probe)
}

// Detect classifies the primary video stream of probe. It has no side
// effects beyond logging.
func (d *Detector) Detect(probe *ffprobe.Probe) (AnalysisResult, error) {
	stream := probe.PrimaryVideo()
	if stream == nil {
		return AnalysisResult{}, hkerrors.NewParseError("no video stream found", nil)
	}

	meta := Metadata{
		ColorSpace:    ParseColorSpace(stream.ColorSpace),
		Transfer:      ParseTransferFunction(stream.ColorTransfer),
		Primaries:     ParseColorSpace(stream.ColorPrimaries),
		RawColorSpace: stream.ColorSpace,
		RawTransfer:   stream.ColorTransfer,
		RawPrimaries:  stream.ColorPrimaries,
		BitDepth:      stream.BitDepth(),
	}

	d.scanSideData(stream.SideDataList, &meta)
	if !meta.HasDynamicMetadata || meta.MasteringDisplay == nil || meta.ContentLightLevel == nil {
		for i, frame := range probe.FrameSideData() {
			hadDynamic := meta.HasDynamicMetadata
			d.scanSideData(frame, &meta)
			if !hadDynamic && meta.HasDynamicMetadata {
				logging.Debug("found HDR10+ dynamic metadata in frame side data", "frame", i)
			}
		}
	}

	meta.Format = d.classify(stream, meta.HasDynamicMetadata)

	result := AnalysisResult{
		Metadata:            meta,
		Confidence:          Confidence(meta),
		RequiresToneMapping: meta.Format.IsHDR(),
		EncodingComplexity:  EncodingComplexity(meta.Format),
	}

	logging.Debug("HDR detection complete",
		"format", meta.Format,
		"confidence", result.Confidence,
		"transfer", stream.ColorTransfer,
		"color_space", stream.ColorSpace,
		"primaries", stream.ColorPrimaries)

	return result, nil
}

// scanSideData fills static metadata that is still missing and sets the
// dynamic-metadata flag.
func (d *Detector) scanSideData(list []ffprobe.SideData, meta *Metadata) {
	for _, sd := range list {
		typ := sd.Type()
		switch typ {
		case sideDataMasteringDisplay:
			if meta.MasteringDisplay == nil {
				meta.MasteringDisplay = masteringDisplayFromSideData(sd)
			}
		case sideDataContentLightLevel:
			if meta.ContentLightLevel == nil {
				meta.ContentLightLevel = contentLightLevelFromSideData(sd)
			}
		default:
			if !meta.HasDynamicMetadata && d.IsDynamicMetadataLabel(typ) {
				logging.Debug("found HDR10+ dynamic metadata", "side_data_type", typ)
				meta.HasDynamicMetadata = true
			}
		}
	}
}

func (d *Detector) classify(stream *ffprobe.Stream, dynamic bool) Format {
	transfer := strings.ToLower(stream.ColorTransfer)
	switch {
	case strings.Contains(transfer, "smpte2084"):
		if dynamic {
			return FormatHDR10Plus
		}
		return FormatHDR10
	case strings.Contains(transfer, "arib-std-b67"):
		return FormatHLG
	}

	if ParseColorSpace(stream.ColorSpace) == ColorSpaceBT2020 &&
		ParseColorSpace(stream.ColorPrimaries) == ColorSpaceBT2020 {
		logging.Warn("BT.2020 colour space without a recognised HDR transfer, assuming HDR10",
			"transfer", stream.ColorTransfer)
		return FormatHDR10
	}
	return FormatNone
}

// Confidence scores how strongly meta's signals support an HDR verdict,
// in [0, 1]. Adding corroborating signals never lowers the score.
func Confidence(meta Metadata) float64 {
	score := 0.0
	switch meta.Transfer {
	case TransferSMPTE2084, TransferAribStdB67:
		score += 0.8
	case TransferBT2020_10, TransferBT2020_12:
		score += 0.6
	}
	if meta.ColorSpace == ColorSpaceBT2020 {
		score += 0.2
	}
	if meta.MasteringDisplay != nil {
		score += 0.15
	}
	if meta.ContentLightLevel != nil {
		score += 0.15
	}
	return math.Min(score, 1.0)
}

func masteringDisplayFromSideData(sd ffprobe.SideData) *MasteringDisplay {
	keys := []string{
		"red_x", "red_y", "green_x", "green_y", "blue_x", "blue_y",
		"white_point_x", "white_point_y", "max_luminance", "min_luminance",
	}
	vals := make([]float64, len(keys))
	for i, k := range keys {
		v, ok := sd.Rational(k)
		if !ok {
			return nil
		}
		vals[i] = v
	}
	return &MasteringDisplay{
		Red:          Chromaticity{vals[0], vals[1]},
		Green:        Chromaticity{vals[2], vals[3]},
		Blue:         Chromaticity{vals[4], vals[5]},
		WhitePoint:   Chromaticity{vals[6], vals[7]},
		MaxLuminance: uint32(math.Round(vals[8])),
		MinLuminance: vals[9],
	}
}

func contentLightLevelFromSideData(sd ffprobe.SideData) *ContentLightLevel {
	maxCLL, ok1 := sd.Int("max_content")
	maxFALL, ok2 := sd.Int("max_average")
	if !ok1 || !ok2 || maxCLL < 0 || maxFALL < 0 {
		return nil
	}
	return &ContentLightLevel{MaxCLL: uint32(maxCLL), MaxFALL: uint32(maxFALL)}
}
