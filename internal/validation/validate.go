package validation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
)

const (
	// durationToleranceSecs is the maximum allowed difference in duration between input and output.
	durationToleranceSecs = 1.0
	// requiredBitDepth is the minimum bit depth of HDR and Dolby Vision output.
	requiredBitDepth = 10
)

// Options contains the expectations for one encode. Nil and zero fields
// are not checked.
type Options struct {
	ExpectedDimensions *[2]uint32
	ExpectedDuration   *float64
	ExpectedFormat     *hdr.Format
	// ExpectedDVProfile is set when an RPU was injected.
	ExpectedDVProfile dolbyvision.Profile
	// ExpectHDR10Plus is set when dynamic metadata was handed to the encoder.
	ExpectHDR10Plus bool
}

// Validate checks the encode at outputPath against opts.
func Validate(ctx context.Context, analyzer MediaAnalyzer, outputPath string, opts Options) (*Result, error) {
	info, err := analyzer.Analyze(ctx, outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze output %s: %w", outputPath, err)
	}

	result := &Result{
		IsDimensionsCorrect: true,
		IsDurationCorrect:   true,
		CodecName:           info.CodecName,
		BitDepth:            info.BitDepth,
		ActualFormat:        info.HDR.Format(),
		DolbyVision:         info.DolbyVision,
	}

	codec := strings.ToLower(info.CodecName)
	result.IsHEVC = codec == "hevc" || codec == "h265"

	needsHighDepth := opts.ExpectedDVProfile != dolbyvision.ProfileNone ||
		(opts.ExpectedFormat != nil && opts.ExpectedFormat.IsHDR())
	result.Is10Bit = !needsHighDepth || info.BitDepth >= requiredBitDepth

	if opts.ExpectedDimensions != nil {
		result.ActualDimensions = &[2]uint32{info.Width, info.Height}
		result.ExpectedDimensions = opts.ExpectedDimensions
		result.IsDimensionsCorrect, result.DimensionsMessage = validateDimensions(
			info.Width, info.Height, opts.ExpectedDimensions[0], opts.ExpectedDimensions[1])
	} else {
		result.DimensionsMessage = "Dimension validation skipped"
	}

	if opts.ExpectedDuration != nil {
		actual := info.DurationSecs
		result.ActualDuration = &actual
		result.ExpectedDuration = opts.ExpectedDuration
		result.IsDurationCorrect, result.DurationMessage = validateDuration(actual, *opts.ExpectedDuration)
	} else {
		result.DurationMessage = "Duration validation skipped"
	}

	result.ExpectedFormat = opts.ExpectedFormat
	result.IsHDRCorrect, result.HDRMessage = validateFormat(opts.ExpectedFormat, info.HDR.Format())
	result.IsDolbyVisionKept, result.DolbyVisionMessage = validateDolbyVision(opts.ExpectedDVProfile, info.DolbyVision)
	result.IsHDR10PlusKept, result.HDR10PlusMessage = validateHDR10Plus(opts.ExpectHDR10Plus, info.HDR)

	return result, nil
}

// validateDimensions checks that dimensions match expected values.
func validateDimensions(actualW, actualH, expectedW, expectedH uint32) (bool, string) {
	if actualW == expectedW && actualH == expectedH {
		return true, fmt.Sprintf("Dimensions match: %dx%d", actualW, actualH)
	}
	return false, fmt.Sprintf("Dimension mismatch: got %dx%d, expected %dx%d",
		actualW, actualH, expectedW, expectedH)
}

// validateDuration checks that duration is within acceptable tolerance.
func validateDuration(actual, expected float64) (bool, string) {
	diff := math.Abs(actual - expected)

	if diff <= durationToleranceSecs {
		return true, fmt.Sprintf("Duration matches input (%.1fs)", actual)
	}
	return false, fmt.Sprintf("Duration mismatch: got %.1fs, expected %.1fs (diff: %.1fs)",
		actual, expected, diff)
}

// validateFormat compares the static signalling family. HDR10 and HDR10+
// share a base layer, so either satisfies the other; the dynamic metadata
// is checked separately.
func validateFormat(expected *hdr.Format, actual hdr.Format) (bool, string) {
	if expected == nil {
		return true, "Output is " + actual.String()
	}
	if family(*expected) == family(actual) {
		return true, actual.String() + " preserved"
	}
	return false, fmt.Sprintf("Expected %s, found %s", *expected, actual)
}

func family(f hdr.Format) hdr.Format {
	if f == hdr.FormatHDR10Plus {
		return hdr.FormatHDR10
	}
	return f
}

func validateDolbyVision(expected dolbyvision.Profile, actual dolbyvision.Info) (bool, string) {
	switch {
	case expected == dolbyvision.ProfileNone:
		if actual.IsDolbyVision() {
			return true, "Dolby Vision profile " + actual.Profile.String() + " present"
		}
		return true, "Not expected"
	case !actual.IsDolbyVision():
		return false, "Expected Dolby Vision profile " + expected.String() + ", found none"
	case actual.Profile != expected:
		return false, fmt.Sprintf("Expected Dolby Vision profile %s, found %s", expected, actual.Profile)
	default:
		return true, "Dolby Vision profile " + actual.Profile.String() + " preserved"
	}
}

func validateHDR10Plus(expected bool, actual hdr.AnalysisResult) (bool, string) {
	present := actual.Metadata.HasDynamicMetadata
	switch {
	case !expected:
		return true, "Not expected"
	case present:
		return true, "Dynamic metadata preserved"
	default:
		return false, "Expected HDR10+ dynamic metadata, found none"
	}
}
