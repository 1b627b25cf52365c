package processing

import (
	"github.com/five82/hdrkit/internal/reporter"
)

// Report converts r into its JSON report form.
func (r *FileResult) Report() reporter.FileReport {
	fr := reporter.FileReport{
		Input:           r.Input,
		Output:          r.Output,
		InputBytes:      r.InputBytes,
		OutputBytes:     r.OutputBytes,
		DurationSeconds: r.Elapsed.Seconds(),
		HDR10Plus:       r.HDR10Plus,
	}
	switch {
	case r.Skipped:
		fr.Outcome = "skipped"
	case r.Err != nil:
		fr.Outcome = "failed"
		fr.Error = r.Err.Error()
	default:
		fr.Outcome = r.Outcome.String()
	}

	if fa := r.Analysis; fa != nil {
		a := fa.Analysis
		fr.Approach = a.Approach.String()
		fr.HDRFormat = a.HDR.Format().String()
		fr.Confidence = a.HDR.Confidence
		if a.DolbyVision.IsDolbyVision() {
			fr.DolbyVision = a.DolbyVision.Profile.String()
			fr.TargetProfile = fa.TargetProfile.String()
		}
		if a.HDR10Plus != nil {
			fr.HDR10PlusCurves = a.HDR10Plus.CurveCount
			fr.HDR10PlusScenes = a.HDR10Plus.SceneCount
		}
	}

	if p := r.Encode; p != nil {
		fr.CRF = p.CRF
		fr.BitrateKbps = p.BitrateKbps
		fr.X265Params = p.X265Params.String()
	}

	if v := r.Validation; v != nil {
		summary := &reporter.ValidationSummary{Passed: v.IsValid()}
		for _, s := range v.GetValidationSteps() {
			summary.Steps = append(summary.Steps, reporter.ValidationStep{Name: s.Name, Passed: s.Passed, Details: s.Details})
		}
		fr.Validation = summary
	}
	return fr
}
