// Package content decides how a file's dynamic-range metadata is carried
// through an encode and what rate-control adjustments that implies.
package content

import (
	"fmt"

	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/hdr10plus"
)

// Approach is the resolved encoding approach. The set of implementations
// is closed: SDR, HDR, DolbyVision and DolbyVisionWithHDR10Plus.
type Approach interface {
	// Kind is a stable identifier used in reports, metrics and the journal.
	Kind() string
	String() string
	isApproach()
}

// SDR content gets no special treatment.
type SDR struct{}

// HDR content keeps its static (and possibly HDR10+) signalling.
type HDR struct {
	Result hdr.AnalysisResult
}

// DolbyVision content keeps its RPU.
type DolbyVision struct {
	Info dolbyvision.Info
}

// DolbyVisionWithHDR10Plus keeps both the RPU and HDR10+ dynamic metadata.
type DolbyVisionWithHDR10Plus struct {
	Info   dolbyvision.Info
	Result hdr.AnalysisResult
}

const (
	KindSDR         = "sdr"
	KindHDR         = "hdr"
	KindDolbyVision = "dolby_vision"
	KindDualFormat  = "dolby_vision_hdr10plus"
)

func (SDR) Kind() string                      { return KindSDR }
func (HDR) Kind() string                      { return KindHDR }
func (DolbyVision) Kind() string              { return KindDolbyVision }
func (DolbyVisionWithHDR10Plus) Kind() string { return KindDualFormat }

func (SDR) String() string   { return "SDR" }
func (a HDR) String() string { return fmt.Sprintf("HDR (%s)", a.Result.Format()) }
func (a DolbyVision) String() string {
	return fmt.Sprintf("Dolby Vision (Profile %s)", a.Info.Profile)
}
func (a DolbyVisionWithHDR10Plus) String() string {
	return fmt.Sprintf("Dolby Vision (Profile %s) + HDR10+", a.Info.Profile)
}

func (SDR) isApproach()                      {}
func (HDR) isApproach()                      {}
func (DolbyVision) isApproach()              {}
func (DolbyVisionWithHDR10Plus) isApproach() {}

// PreservesDolbyVision reports whether a needs RPU handling.
func PreservesDolbyVision(a Approach) bool {
	switch a.(type) {
	case DolbyVision, DolbyVisionWithHDR10Plus:
		return true
	default:
		return false
	}
}

// Adjustments are the rate-control changes an approach calls for.
type Adjustments struct {
	CRFAdjustment      float64    `json:"crf_adjustment"`
	BitrateMultiplier  float64    `json:"bitrate_multiplier"`
	EncodingComplexity float64    `json:"encoding_complexity"`
	RequiresVBV        bool       `json:"requires_vbv"`
	VBVBufsize         uint32     `json:"vbv_bufsize,omitempty"`
	VBVMaxrate         uint32     `json:"vbv_maxrate,omitempty"`
	CRFRange           [2]float64 `json:"crf_range"`
}

// Analysis is everything learned about one input file.
type Analysis struct {
	HDR         hdr.AnalysisResult
	DolbyVision dolbyvision.Info
	HDR10Plus   *hdr10plus.Result
	Approach    Approach
	Adjustments Adjustments
}
