package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
)

// mockAnalyzer implements MediaAnalyzer for testing.
type mockAnalyzer struct {
	info *OutputInfo
	err  error
}

func (m *mockAnalyzer) Analyze(context.Context, string) (*OutputInfo, error) {
	return m.info, m.err
}

func hdrOutput(format hdr.Format, dv dolbyvision.Info) *OutputInfo {
	meta := hdr.HDR10Metadata()
	meta.Format = format
	meta.HasDynamicMetadata = format == hdr.FormatHDR10Plus
	return &OutputInfo{
		CodecName:    "hevc",
		Width:        3840,
		Height:       2160,
		DurationSecs: 120.5,
		BitDepth:     10,
		HDR:          hdr.AnalysisResult{Metadata: meta},
		DolbyVision:  dv,
	}
}

func formatPtr(f hdr.Format) *hdr.Format { return &f }

func TestValidate_DolbyVisionInjected(t *testing.T) {
	p81 := dolbyvision.Info{Profile: dolbyvision.Profile81, RPUPresent: true}
	duration := 120.0
	dims := [2]uint32{3840, 2160}

	result, err := Validate(context.Background(), &mockAnalyzer{info: hdrOutput(hdr.FormatHDR10, p81)}, "out.mkv", Options{
		ExpectedDimensions: &dims,
		ExpectedDuration:   &duration,
		ExpectedFormat:     formatPtr(hdr.FormatHDR10),
		ExpectedDVProfile:  dolbyvision.Profile81,
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.IsValid() {
		t.Errorf("IsValid() = false, failures: %v", result.GetFailures())
	}
	if result.DolbyVisionMessage != "Dolby Vision profile 8.1 preserved" {
		t.Errorf("DolbyVisionMessage = %q", result.DolbyVisionMessage)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		info     *OutputInfo
		opts     Options
		wantStep string
	}{
		{
			name:     "RPU lost",
			info:     hdrOutput(hdr.FormatHDR10, dolbyvision.None()),
			opts:     Options{ExpectedDVProfile: dolbyvision.Profile81},
			wantStep: "Dolby Vision: Expected Dolby Vision profile 8.1, found none",
		},
		{
			name:     "wrong profile",
			info:     hdrOutput(hdr.FormatHDR10, dolbyvision.Info{Profile: dolbyvision.Profile7, RPUPresent: true}),
			opts:     Options{ExpectedDVProfile: dolbyvision.Profile81},
			wantStep: "Dolby Vision: Expected Dolby Vision profile 8.1, found 7",
		},
		{
			name:     "dynamic metadata lost",
			info:     hdrOutput(hdr.FormatHDR10, dolbyvision.None()),
			opts:     Options{ExpectedFormat: formatPtr(hdr.FormatHDR10Plus), ExpectHDR10Plus: true},
			wantStep: "HDR10+: Expected HDR10+ dynamic metadata, found none",
		},
		{
			name: "HDR became SDR",
			info: func() *OutputInfo {
				o := hdrOutput(hdr.FormatHDR10, dolbyvision.None())
				o.HDR = hdr.AnalysisResult{Metadata: hdr.SDRMetadata()}
				return o
			}(),
			opts:     Options{ExpectedFormat: formatPtr(hdr.FormatHDR10)},
			wantStep: "HDR format: Expected HDR10, found SDR",
		},
		{
			name: "8-bit HDR",
			info: func() *OutputInfo {
				o := hdrOutput(hdr.FormatHLG, dolbyvision.None())
				o.BitDepth = 8
				return o
			}(),
			opts:     Options{ExpectedFormat: formatPtr(hdr.FormatHLG)},
			wantStep: "Bit depth: 8-bit",
		},
		{
			name: "not HEVC",
			info: func() *OutputInfo {
				o := hdrOutput(hdr.FormatHDR10, dolbyvision.None())
				o.CodecName = "h264"
				return o
			}(),
			wantStep: "Video codec: Expected HEVC, got h264",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Validate(context.Background(), &mockAnalyzer{info: tt.info}, "out.mkv", tt.opts)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if result.IsValid() {
				t.Fatal("IsValid() = true, want false")
			}
			failures := strings.Join(result.GetFailures(), "\n")
			if !strings.Contains(failures, tt.wantStep) {
				t.Errorf("failures %q do not contain %q", failures, tt.wantStep)
			}
		})
	}
}

func TestValidate_HDR10PlusSatisfiesHDR10(t *testing.T) {
	result, err := Validate(context.Background(), &mockAnalyzer{info: hdrOutput(hdr.FormatHDR10Plus, dolbyvision.None())}, "out.mkv",
		Options{ExpectedFormat: formatPtr(hdr.FormatHDR10Plus), ExpectHDR10Plus: true})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.IsValid() {
		t.Errorf("IsValid() = false, failures: %v", result.GetFailures())
	}
}

func TestValidate_SDRNeedsNo10Bit(t *testing.T) {
	info := &OutputInfo{CodecName: "hevc", BitDepth: 8, HDR: hdr.AnalysisResult{Metadata: hdr.SDRMetadata()}}
	result, err := Validate(context.Background(), &mockAnalyzer{info: info}, "out.mkv",
		Options{ExpectedFormat: formatPtr(hdr.FormatNone)})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.IsValid() {
		t.Errorf("IsValid() = false, failures: %v", result.GetFailures())
	}
}

func TestValidate_AnalyzerError(t *testing.T) {
	_, err := Validate(context.Background(), &mockAnalyzer{err: errors.New("probe failed")}, "out.mkv", Options{})
	if err == nil {
		t.Fatal("Validate() expected error")
	}
}

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		actual, expected float64
		want             bool
	}{
		{120.0, 120.0, true},
		{120.9, 120.0, true},
		{121.5, 120.0, false},
		{118.0, 120.0, false},
	}
	for _, tt := range tests {
		if got, msg := validateDuration(tt.actual, tt.expected); got != tt.want {
			t.Errorf("validateDuration(%g, %g) = %v (%s), want %v", tt.actual, tt.expected, got, msg, tt.want)
		}
	}
}
