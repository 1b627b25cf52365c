package validation

import (
	"fmt"

	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
)

// Result contains the overall validation result.
type Result struct {
	IsHEVC              bool
	Is10Bit             bool
	IsDimensionsCorrect bool
	IsDurationCorrect   bool
	IsHDRCorrect        bool
	IsDolbyVisionKept   bool
	IsHDR10PlusKept     bool

	// Details
	CodecName          string
	BitDepth           uint8
	ActualDimensions   *[2]uint32
	ExpectedDimensions *[2]uint32
	DimensionsMessage  string
	ActualDuration     *float64
	ExpectedDuration   *float64
	DurationMessage    string
	ExpectedFormat     *hdr.Format
	ActualFormat       hdr.Format
	HDRMessage         string
	DolbyVision        dolbyvision.Info
	DolbyVisionMessage string
	HDR10PlusMessage   string
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// IsValid returns true if all validation checks passed.
func (r *Result) IsValid() bool {
	return r.IsHEVC &&
		r.Is10Bit &&
		r.IsDimensionsCorrect &&
		r.IsDurationCorrect &&
		r.IsHDRCorrect &&
		r.IsDolbyVisionKept &&
		r.IsHDR10PlusKept
}

// GetValidationSteps returns all validation steps with results.
func (r *Result) GetValidationSteps() []ValidationStep {
	return []ValidationStep{
		{Name: "Video codec", Passed: r.IsHEVC, Details: formatCodecDetails(r.CodecName, r.IsHEVC)},
		{Name: "Bit depth", Passed: r.Is10Bit, Details: formatDepth(r.BitDepth)},
		{Name: "Dimensions", Passed: r.IsDimensionsCorrect, Details: r.DimensionsMessage},
		{Name: "Video duration", Passed: r.IsDurationCorrect, Details: r.DurationMessage},
		{Name: "HDR format", Passed: r.IsHDRCorrect, Details: r.HDRMessage},
		{Name: "Dolby Vision", Passed: r.IsDolbyVisionKept, Details: r.DolbyVisionMessage},
		{Name: "HDR10+", Passed: r.IsHDR10PlusKept, Details: r.HDR10PlusMessage},
	}
}

// GetFailures returns descriptions of failed validation checks.
func (r *Result) GetFailures() []string {
	var failures []string
	for _, step := range r.GetValidationSteps() {
		if !step.Passed {
			failures = append(failures, step.Name+": "+step.Details)
		}
	}
	return failures
}

func formatCodecDetails(codecName string, passed bool) string {
	if passed {
		return "HEVC (" + codecName + ")"
	}
	if codecName != "" {
		return "Expected HEVC, got " + codecName
	}
	return "Unknown codec"
}

func formatDepth(depth uint8) string {
	if depth == 0 {
		return "Unknown bit depth"
	}
	return fmt.Sprintf("%d-bit", depth)
}
