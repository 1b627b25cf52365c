package dolbyvision

import (
	"strings"

	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/ffprobe"
	"github.com/five82/hdrkit/internal/logging"
)

// Analyzer extracts Dolby Vision information from probe output.
type Analyzer struct {
	cfg config.DolbyVisionConfig
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg config.DolbyVisionConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze inspects the primary video stream of probe. Missing fields are
// never an error; content without Dolby Vision markers yields None().
func (a *Analyzer) Analyze(probe *ffprobe.Probe) Info {
	if !a.cfg.Enabled {
		logging.Debug("Dolby Vision detection disabled")
		return None()
	}
	stream := probe.PrimaryVideo()
	if stream == nil {
		return None()
	}

	logging.Debug("analyzing Dolby Vision markers",
		"codec", stream.CodecName, "profile", stream.Profile, "tag", stream.CodecTagString)

	info := fromCodec(stream.CodecName, stream.Profile, stream.CodecTagString)

	for _, sd := range stream.SideDataList {
		if isDoviSideData(sd) {
			logging.Debug("found Dolby Vision side data", "side_data_type", sd.Type())
			applySideData(&info, sd)
		}
	}

	if !info.IsDolbyVision() {
		hintFromColor(stream)
		return info
	}

	logging.Info("detected Dolby Vision",
		"profile", info.Profile, "rpu", info.RPUPresent, "el", info.ELPresent)
	return info
}

// fromCodec derives a first guess from codec name, profile and tag.
func fromCodec(codecName, profile, tag string) Info {
	info := None()

	codec := strings.ToLower(codecName)
	if codec == "hevc" || codec == "h265" {
		if p := profileFromCodecString(profile); p != ProfileNone {
			info.setLayersFor(p)
			info.CodecProfile = profile
		}
	}

	lowerTag := strings.ToLower(tag)
	if info.Profile == ProfileNone && strings.Contains(lowerTag, "dvh") {
		p := profileFromCodecString(tag)
		if p == ProfileNone {
			p = ParseProfile(tag)
		}
		if p == ProfileNone {
			p = Profile81
		}
		info.setLayersFor(p)
		info.CodecProfile = tag
	}
	return info
}

func isDoviSideData(sd ffprobe.SideData) bool {
	if _, ok := sd["dv_profile"]; ok {
		return true
	}
	t := strings.ToLower(sd.Type())
	return strings.Contains(t, "dovi") || strings.Contains(t, "dolby_vision") || strings.Contains(t, "dolby vision")
}

// applySideData overwrites the codec-derived guess with what the DOVI
// configuration record states.
func applySideData(info *Info, sd ffprobe.SideData) {
	p, found := ProfileNone, false
	if n, ok := sd.Int("dv_profile"); ok {
		found = true
		switch n {
		case 5:
			p = Profile5
		case 7:
			p = Profile7
		case 8:
			p = profile8Variant(sd)
		default:
			logging.Debug("unknown Dolby Vision profile number", "dv_profile", n)
		}
	} else if s := sd.Text("dv_profile"); s != "" {
		p = ParseProfile(s)
		found = p != ProfileNone
	}
	if found {
		if info.Profile == ProfileNone {
			info.setLayersFor(p)
		} else {
			info.Profile = p
		}
	}

	for _, key := range []string{"dv_bl_signal_compatibility_id", "bl_compatible_id"} {
		if id, ok := sd.Int(key); ok && id >= 0 && id <= 255 {
			v := uint8(id)
			info.BLCompatibleID = &v
			break
		}
	}

	if el, ok := sd.Bool("el_present_flag"); ok {
		info.ELPresent = el
	}
	if rpu, ok := sd.Bool("rpu_present_flag"); ok {
		info.RPUPresent = rpu
	}
}

// profile8Variant picks the Profile 8 sub-variant from the base-layer
// compatibility id: 2 is SDR (8.2), 4 is HLG (8.4), anything else 8.1.
func profile8Variant(sd ffprobe.SideData) Profile {
	for _, key := range []string{"dv_bl_signal_compatibility_id", "bl_compatible_id"} {
		if id, ok := sd.Int(key); ok {
			switch id {
			case 2:
				return Profile82
			case 4:
				return Profile84
			}
			return Profile81
		}
	}
	return Profile81
}

// hintFromColor logs BT.2020/PQ content that carries no Dolby Vision
// marker. It never sets a profile; such content is handled as HDR10.
func hintFromColor(stream *ffprobe.Stream) {
	space := strings.ToLower(stream.ColorSpace)
	prim := strings.ToLower(stream.ColorPrimaries)
	if (strings.Contains(space, "bt2020") || strings.Contains(space, "rec2020")) &&
		strings.Contains(strings.ToLower(stream.ColorTransfer), "smpte2084") &&
		(strings.Contains(prim, "bt2020") || strings.Contains(prim, "rec2020")) {
		logging.Info("BT.2020 PQ content without Dolby Vision markers, treating as HDR10")
	}
}

// ShouldPreserve reports whether Dolby Vision in info should be carried
// through the encode. Profile 7 is gated by preserve_profile_7.
func (a *Analyzer) ShouldPreserve(info Info) bool {
	if !a.cfg.Enabled || !info.IsDolbyVision() {
		return false
	}
	if info.Profile == Profile7 {
		return a.cfg.PreserveProfile7
	}
	return true
}

// TargetProfile is the profile the output should carry. With automatic
// conversion enabled, Profile 7 becomes the configured single-layer
// profile; everything else is kept.
func (a *Analyzer) TargetProfile(source Profile) Profile {
	if !a.cfg.AutoProfileConversion || source != Profile7 {
		return source
	}
	switch a.cfg.TargetProfile {
	case "8.2":
		return Profile82
	case "8.4":
		return Profile84
	default:
		return Profile81
	}
}
