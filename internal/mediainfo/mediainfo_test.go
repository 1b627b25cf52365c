package mediainfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
)

// loadHints parses a JSON fixture from the testdata directory.
func loadHints(t *testing.T, filename string) Hints {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", filename, err)
	}
	resp, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(%s) error = %v", filename, err)
	}
	return DetectHints(resp)
}

func TestParse_VideoTrack(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "video_sdr.json"))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(resp.Media.Track) != 3 {
		t.Fatalf("len(Track) = %d, want 3", len(resp.Media.Track))
	}
	v := resp.Video()
	if v == nil {
		t.Fatal("no video track found")
	}
	if v.Format != "AVC" || v.Width != "1920" || v.Height != "1080" {
		t.Errorf("video = %s %sx%s, want AVC 1920x1080", v.Format, v.Width, v.Height)
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"media": {"track": [}`)); err == nil {
		t.Error("Parse() expected error for malformed JSON, got nil")
	}
}

func TestDetectHints(t *testing.T) {
	tests := []struct {
		file        string
		wantHDR     bool
		wantDV      bool
		wantProfile dolbyvision.Profile
		wantEL      bool
		wantPlus    bool
		wantDepth   uint8
	}{
		{"video_sdr.json", false, false, dolbyvision.ProfileNone, false, false, 8},
		{"video_hdr10.json", true, false, dolbyvision.ProfileNone, false, false, 10},
		{"video_hdr10plus.json", true, false, dolbyvision.ProfileNone, false, true, 10},
		{"video_dv_p8.json", true, true, dolbyvision.Profile81, false, false, 10},
		{"video_dv_p7.json", true, true, dolbyvision.Profile7, true, false, 10},
		{"video_no_video_track.json", false, false, dolbyvision.ProfileNone, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			h := loadHints(t, tt.file)
			if h.IsHDR != tt.wantHDR {
				t.Errorf("IsHDR = %v, want %v", h.IsHDR, tt.wantHDR)
			}
			if h.DolbyVision != tt.wantDV {
				t.Errorf("DolbyVision = %v, want %v", h.DolbyVision, tt.wantDV)
			}
			if h.DVProfile != tt.wantProfile {
				t.Errorf("DVProfile = %s, want %s", h.DVProfile, tt.wantProfile)
			}
			if h.DVEnhancementLayer != tt.wantEL {
				t.Errorf("DVEnhancementLayer = %v, want %v", h.DVEnhancementLayer, tt.wantEL)
			}
			if h.HDR10Plus != tt.wantPlus {
				t.Errorf("HDR10Plus = %v, want %v", h.HDR10Plus, tt.wantPlus)
			}
			if tt.wantDepth == 0 {
				if h.BitDepth != nil {
					t.Errorf("BitDepth = %d, want nil", *h.BitDepth)
				}
			} else if h.BitDepth == nil || *h.BitDepth != tt.wantDepth {
				t.Errorf("BitDepth = %v, want %d", h.BitDepth, tt.wantDepth)
			}
		})
	}
}

func TestDVProfile(t *testing.T) {
	tests := []struct {
		profile, compat string
		want            dolbyvision.Profile
	}{
		{"dvhe.05 / ", "", dolbyvision.Profile5},
		{"dvhe.07", "Blu-ray", dolbyvision.Profile7},
		{"dvhe.08 / ", "HDR10 / HDR10", dolbyvision.Profile81},
		{"dvhe.08", "SDR", dolbyvision.Profile82},
		{"dvhe.08", "HLG", dolbyvision.Profile84},
		{"dvav.09", "", dolbyvision.ProfileNone},
		{"", "", dolbyvision.ProfileNone},
	}
	for _, tt := range tests {
		if got := dvProfile(tt.profile, tt.compat); got != tt.want {
			t.Errorf("dvProfile(%q, %q) = %s, want %s", tt.profile, tt.compat, got, tt.want)
		}
	}
}

func TestMergeDolbyVision(t *testing.T) {
	p7 := loadHints(t, "video_dv_p7.json")

	got := p7.MergeDolbyVision(dolbyvision.None())
	if got.Profile != dolbyvision.Profile7 || !got.RPUPresent || !got.ELPresent {
		t.Errorf("MergeDolbyVision(None) = %+v, want P7 with RPU and EL", got)
	}

	probed := dolbyvision.Info{Profile: dolbyvision.Profile81, RPUPresent: true}
	if got := p7.MergeDolbyVision(probed); got != probed {
		t.Errorf("MergeDolbyVision overrode an ffprobe verdict: %+v", got)
	}

	sdr := loadHints(t, "video_sdr.json")
	if got := sdr.MergeDolbyVision(dolbyvision.None()); got.IsDolbyVision() {
		t.Errorf("MergeDolbyVision without hint = %+v, want none", got)
	}
}

func TestMergeHDR(t *testing.T) {
	res := hdr.AnalysisResult{Metadata: hdr.HDR10Metadata(), EncodingComplexity: hdr.EncodingComplexity(hdr.FormatHDR10)}

	plus := loadHints(t, "video_hdr10plus.json")
	got := plus.MergeHDR(res)
	if got.Format() != hdr.FormatHDR10Plus || !got.Metadata.HasDynamicMetadata {
		t.Errorf("MergeHDR format = %s dynamic = %v, want HDR10+ with dynamic metadata",
			got.Format(), got.Metadata.HasDynamicMetadata)
	}
	if got.EncodingComplexity != 1.4 {
		t.Errorf("EncodingComplexity = %g, want 1.4", got.EncodingComplexity)
	}

	hdr10 := loadHints(t, "video_hdr10.json")
	if got := hdr10.MergeHDR(res); got.Format() != hdr.FormatHDR10 {
		t.Errorf("MergeHDR without HDR10+ hint = %s, want HDR10", got.Format())
	}

	sdr := hdr.AnalysisResult{Metadata: hdr.SDRMetadata()}
	if got := plus.MergeHDR(sdr); got.Format() != hdr.FormatNone {
		t.Errorf("MergeHDR on SDR = %s, want unchanged", got.Format())
	}
}

func TestDetectHDRFromMetadata(t *testing.T) {
	tests := []struct {
		name      string
		primaries string
		transfer  string
		matrix    string
		wantHDR   bool
	}{
		{"SDR BT.709", "BT.709", "BT.709", "BT.709", false},
		{"HDR PQ with BT.2020", "BT.2020", "PQ", "BT.2020 non-constant", true},
		{"HDR HLG", "BT.2020", "HLG", "BT.2020 non-constant", true},
		{"BT.2020 primaries only", "BT.2020", "BT.709", "BT.709", true},
		{"SMPTE 2084 transfer", "BT.709", "SMPTE 2084", "BT.709", true},
		{"BT.2100 primaries", "BT.2100", "BT.709", "BT.709", true},
		{"Empty values", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectHDRFromMetadata(tt.primaries, tt.transfer, tt.matrix)
			if got != tt.wantHDR {
				t.Errorf("detectHDRFromMetadata(%q, %q, %q) = %v, want %v",
					tt.primaries, tt.transfer, tt.matrix, got, tt.wantHDR)
			}
		})
	}
}
