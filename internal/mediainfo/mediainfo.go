// Package mediainfo reads HDR and Dolby Vision signalling from MediaInfo
// reports. It complements ffprobe, which does not label every Dolby Vision
// or HDR10+ stream.
package mediainfo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/logging"
)

// VideoTrack contains video track information from MediaInfo.
type VideoTrack struct {
	Format                  string `json:"Format"`
	Width                   string `json:"Width"`
	Height                  string `json:"Height"`
	BitDepth                string `json:"BitDepth"`
	ColourPrimaries         string `json:"colour_primaries"`
	TransferCharacteristics string `json:"transfer_characteristics"`
	MatrixCoefficients      string `json:"matrix_coefficients"`
	HDRFormat               string `json:"HDR_Format"`
	HDRFormatProfile        string `json:"HDR_Format_Profile"`
	HDRFormatSettings       string `json:"HDR_Format_Settings"`
	HDRFormatCompatibility  string `json:"HDR_Format_Compatibility"`
}

// Track represents a MediaInfo track with type information. Only video
// tracks are decoded.
type Track struct {
	Type  string `json:"@type"`
	Video VideoTrack
}

// UnmarshalJSON decodes the track body according to its @type.
func (t *Track) UnmarshalJSON(data []byte) error {
	var typeOnly struct {
		Type string `json:"@type"`
	}
	if err := json.Unmarshal(data, &typeOnly); err != nil {
		return err
	}
	t.Type = typeOnly.Type

	if t.Type == "Video" {
		return json.Unmarshal(data, &t.Video)
	}
	return nil
}

// Media contains the track array.
type Media struct {
	Track []Track `json:"track"`
}

// Response is the root MediaInfo response structure.
type Response struct {
	Media Media `json:"media"`
}

// Parse parses mediainfo --Output=JSON output.
func Parse(data []byte) (*Response, error) {
	var result Response
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse mediainfo output: %w", err)
	}
	return &result, nil
}

// Video returns the first video track, or nil.
func (r *Response) Video() *VideoTrack {
	for i := range r.Media.Track {
		if r.Media.Track[i].Type == "Video" {
			return &r.Media.Track[i].Video
		}
	}
	return nil
}

// Hints is what MediaInfo says about a file's dynamic range.
type Hints struct {
	IsHDR                   bool
	DolbyVision             bool
	DVProfile               dolbyvision.Profile
	DVEnhancementLayer      bool
	HDR10Plus               bool
	ColourPrimaries         string
	TransferCharacteristics string
	BitDepth                *uint8
}

// DetectHints extracts Hints from a MediaInfo response.
func DetectHints(info *Response) Hints {
	v := info.Video()
	if v == nil {
		return Hints{}
	}

	h := Hints{
		ColourPrimaries:         v.ColourPrimaries,
		TransferCharacteristics: v.TransferCharacteristics,
	}
	if v.BitDepth != "" {
		if bd, err := strconv.ParseUint(v.BitDepth, 10, 8); err == nil {
			b := uint8(bd)
			h.BitDepth = &b
		}
	}

	h.IsHDR = detectHDRFromMetadata(v.ColourPrimaries, v.TransferCharacteristics, v.MatrixCoefficients)

	// HDR_Format lists one entry per signalling layer, "Dolby Vision / SMPTE ST 2086".
	if containsAny(v.HDRFormat, "Dolby Vision") {
		h.DolbyVision = true
		h.IsHDR = true
		h.DVProfile = dvProfile(v.HDRFormatProfile, v.HDRFormatCompatibility)
		h.DVEnhancementLayer = containsAny(v.HDRFormatSettings, "EL")
	}
	if containsAny(v.HDRFormat, "SMPTE ST 2094 App 4") || containsAny(v.HDRFormatCompatibility, "HDR10+") {
		h.HDR10Plus = true
		h.IsHDR = true
	}
	return h
}

// dvProfile reads the profile from an HDR_Format_Profile value such as
// "dvhe.08 / ". The Profile 8 variant is taken from the base layer
// compatibility.
func dvProfile(profile, compatibility string) dolbyvision.Profile {
	first, _, _ := strings.Cut(profile, "/")
	first = strings.ToLower(strings.TrimSpace(first))
	switch {
	case strings.HasPrefix(first, "dvhe.05"):
		return dolbyvision.Profile5
	case strings.HasPrefix(first, "dvhe.07"):
		return dolbyvision.Profile7
	case strings.HasPrefix(first, "dvhe.08"):
		compat, _, _ := strings.Cut(compatibility, "/")
		switch strings.TrimSpace(strings.ToUpper(compat)) {
		case "SDR", "BLU-RAY":
			return dolbyvision.Profile82
		case "HLG":
			return dolbyvision.Profile84
		default:
			return dolbyvision.Profile81
		}
	}
	return dolbyvision.ProfileNone
}

// MergeDolbyVision fills in Dolby Vision that ffprobe missed. An
// ffprobe verdict is never overridden.
func (h Hints) MergeDolbyVision(info dolbyvision.Info) dolbyvision.Info {
	if info.IsDolbyVision() || !h.DolbyVision || h.DVProfile == dolbyvision.ProfileNone {
		return info
	}
	logging.Info("Dolby Vision found by MediaInfo only", "profile", h.DVProfile)
	return dolbyvision.Info{
		Profile:    h.DVProfile,
		RPUPresent: true,
		ELPresent:  h.DVEnhancementLayer || h.DVProfile == dolbyvision.Profile7,
	}
}

// MergeHDR upgrades an HDR10 verdict to HDR10+ when MediaInfo saw dynamic
// metadata that ffprobe did not label.
func (h Hints) MergeHDR(res hdr.AnalysisResult) hdr.AnalysisResult {
	if !h.HDR10Plus || res.Format() != hdr.FormatHDR10 {
		return res
	}
	logging.Info("HDR10+ dynamic metadata found by MediaInfo only")
	res.Metadata = res.Metadata.WithFormat(hdr.FormatHDR10Plus)
	res.Metadata.HasDynamicMetadata = true
	res.EncodingComplexity = hdr.EncodingComplexity(hdr.FormatHDR10Plus)
	return res
}

// detectHDRFromMetadata determines if content is HDR based on color metadata.
func detectHDRFromMetadata(primaries, transfer, matrix string) bool {
	if containsAny(primaries, "BT.2020", "BT.2100") {
		return true
	}
	if containsAny(transfer, "PQ", "HLG", "SMPTE 2084") {
		return true
	}
	return containsAny(matrix, "BT.2020")
}

// containsAny checks if s contains any of the substrings.
func containsAny(s string, substrs ...string) bool {
	sLower := strings.ToLower(s)
	for _, substr := range substrs {
		if strings.Contains(sLower, strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
