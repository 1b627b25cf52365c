// Package dolbyvision identifies Dolby Vision profiles in probed streams and
// decides whether they can be carried through an encode.
package dolbyvision

import "strings"

// Profile is a Dolby Vision bitstream profile. ProfileNone marks content
// that is not Dolby Vision.
type Profile int

const (
	ProfileNone Profile = iota
	Profile5
	Profile7
	Profile81
	Profile82
	Profile84
)

func (p Profile) String() string {
	switch p {
	case Profile5:
		return "5"
	case Profile7:
		return "7"
	case Profile81:
		return "8.1"
	case Profile82:
		return "8.2"
	case Profile84:
		return "8.4"
	default:
		return "none"
	}
}

// MarshalText renders the profile for JSON reports.
func (p Profile) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// IsDualLayer reports whether the profile carries an enhancement layer.
func (p Profile) IsDualLayer() bool {
	return p == Profile7
}

// IsHDR10Compatible reports whether the base layer plays back as HDR10.
func (p Profile) IsHDR10Compatible() bool {
	return p == Profile81 || p == Profile84
}

// X265Value is the dolby-vision-profile value x265 accepts for p. x265 can
// not produce dual-layer streams, so Profile 7 has none.
func (p Profile) X265Value() string {
	switch p {
	case Profile5, Profile81, Profile82, Profile84:
		return p.String()
	default:
		return ""
	}
}

// ParseProfile maps a profile name or codec string to a Profile. Unknown
// values give ProfileNone.
func ParseProfile(s string) Profile {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "5", "dvhe.05":
		return Profile5
	case "7", "dvhe.07":
		return Profile7
	case "8.1", "dvhe.08", "dvhe.08.06":
		return Profile81
	case "8.2", "dvhe.08.09":
		return Profile82
	case "8.4", "dvhe.08.04":
		return Profile84
	default:
		return ProfileNone
	}
}

// profileFromCodecString finds a dvhe.NN[.MM] marker anywhere in s. The
// Profile 8 sub-variants are checked before the bare dvhe.08 prefix.
func profileFromCodecString(s string) Profile {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "dvhe.05"):
		return Profile5
	case strings.Contains(s, "dvhe.07"):
		return Profile7
	case strings.Contains(s, "dvhe.08.09"):
		return Profile82
	case strings.Contains(s, "dvhe.08.04"):
		return Profile84
	case strings.Contains(s, "dvhe.08"):
		return Profile81
	default:
		return ProfileNone
	}
}

// Info describes the Dolby Vision layers found in a stream.
type Info struct {
	Profile        Profile `json:"profile"`
	RPUPresent     bool    `json:"rpu_present"`
	ELPresent      bool    `json:"el_present"`
	BLCompatibleID *uint8  `json:"bl_compatible_id,omitempty"`
	CodecProfile   string  `json:"codec_profile,omitempty"`
}

// None returns the explicit not-Dolby-Vision value.
func None() Info {
	return Info{Profile: ProfileNone}
}

// IsDolbyVision reports whether a profile was identified.
func (i Info) IsDolbyVision() bool {
	return i.Profile != ProfileNone
}

// NeedsRPUProcessing reports whether the RPU has to be extracted and
// re-injected to keep Dolby Vision through an encode.
func (i Info) NeedsRPUProcessing() bool {
	return i.RPUPresent && i.IsDolbyVision()
}

// setLayersFor applies the layer layout implied by the profile.
func (i *Info) setLayersFor(p Profile) {
	i.Profile = p
	switch p {
	case Profile7:
		i.RPUPresent = true
		i.ELPresent = true
	case Profile5, Profile81, Profile82, Profile84:
		i.RPUPresent = true
		i.ELPresent = false
	}
}
