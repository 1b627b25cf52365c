package hdr

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	hkerrors "github.com/five82/hdrkit/internal/errors"
)

// Chromaticity is a CIE 1931 xy coordinate.
type Chromaticity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (c Chromaticity) valid() bool {
	return c.X >= 0 && c.X <= 1 && c.Y >= 0 && c.Y <= 1
}

// MasteringDisplay is the mastering display colour volume (SMPTE ST 2086).
type MasteringDisplay struct {
	Red          Chromaticity `json:"red"`
	Green        Chromaticity `json:"green"`
	Blue         Chromaticity `json:"blue"`
	WhitePoint   Chromaticity `json:"white_point"`
	MaxLuminance uint32       `json:"max_luminance"`
	MinLuminance float64      `json:"min_luminance"`
}

// DefaultMasteringDisplay is the BT.2020 / 1000-nit display assumed when a
// source carries no mastering metadata.
func DefaultMasteringDisplay() MasteringDisplay {
	return MasteringDisplay{
		Green:        Chromaticity{0.17, 0.797},
		Blue:         Chromaticity{0.131, 0.046},
		Red:          Chromaticity{0.708, 0.292},
		WhitePoint:   Chromaticity{0.3127, 0.329},
		MaxLuminance: 1000,
		MinLuminance: 0.01,
	}
}

var masterDisplayRe = regexp.MustCompile(
	`^G\(([0-9.]+),([0-9.]+)\)B\(([0-9.]+),([0-9.]+)\)R\(([0-9.]+),([0-9.]+)\)WP\(([0-9.]+),([0-9.]+)\)L\(([0-9]+),([0-9.]+)\)$`)

// ParseMasteringDisplay parses the x265 form
// G(x,y)B(x,y)R(x,y)WP(x,y)L(max,min).
func ParseMasteringDisplay(s string) (MasteringDisplay, error) {
	m := masterDisplayRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return MasteringDisplay{}, hkerrors.NewParseError(fmt.Sprintf("invalid master display %q", s), nil)
	}

	var f [8]float64
	for i := range f {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return MasteringDisplay{}, hkerrors.NewParseError(fmt.Sprintf("invalid master display %q", s), err)
		}
		f[i] = v
	}
	maxLum, err := strconv.ParseUint(m[9], 10, 32)
	if err != nil {
		return MasteringDisplay{}, hkerrors.NewParseError(fmt.Sprintf("invalid max luminance in %q", s), err)
	}
	minLum, err := strconv.ParseFloat(m[10], 64)
	if err != nil {
		return MasteringDisplay{}, hkerrors.NewParseError(fmt.Sprintf("invalid min luminance in %q", s), err)
	}

	return MasteringDisplay{
		Green:        Chromaticity{f[0], f[1]},
		Blue:         Chromaticity{f[2], f[3]},
		Red:          Chromaticity{f[4], f[5]},
		WhitePoint:   Chromaticity{f[6], f[7]},
		MaxLuminance: uint32(maxLum),
		MinLuminance: minLum,
	}, nil
}

// String formats the display for x265's master-display option.
func (md MasteringDisplay) String() string {
	return fmt.Sprintf("G(%.4f,%.4f)B(%.4f,%.4f)R(%.4f,%.4f)WP(%.4f,%.4f)L(%d,%.4f)",
		md.Green.X, md.Green.Y,
		md.Blue.X, md.Blue.Y,
		md.Red.X, md.Red.Y,
		md.WhitePoint.X, md.WhitePoint.Y,
		md.MaxLuminance, md.MinLuminance)
}

// TriangleArea returns the area of the RGB primaries triangle in xy space.
func (md MasteringDisplay) TriangleArea() float64 {
	return math.Abs(
		md.Red.X*(md.Green.Y-md.Blue.Y)+
			md.Green.X*(md.Blue.Y-md.Red.Y)+
			md.Blue.X*(md.Red.Y-md.Green.Y)) / 2
}

// Validate checks the structural invariants: chromaticities in [0,1],
// max > 0, 0 <= min < max and a non-degenerate primaries triangle.
func (md MasteringDisplay) Validate() error {
	for _, p := range []struct {
		name string
		c    Chromaticity
	}{
		{"red", md.Red}, {"green", md.Green}, {"blue", md.Blue}, {"white point", md.WhitePoint},
	} {
		if !p.c.valid() {
			return hkerrors.NewValidationErrorf("%s chromaticity (%g,%g) out of range [0, 1]", p.name, p.c.X, p.c.Y)
		}
	}
	if md.MaxLuminance == 0 {
		return hkerrors.NewValidationError("max luminance must be greater than 0")
	}
	if md.MinLuminance < 0 {
		return hkerrors.NewValidationError("min luminance must be non-negative")
	}
	if md.MinLuminance >= float64(md.MaxLuminance) {
		return hkerrors.NewValidationErrorf("min luminance %g must be below max luminance %d", md.MinLuminance, md.MaxLuminance)
	}
	if md.TriangleArea() <= 0 {
		return hkerrors.NewValidationError("colour primaries are collinear")
	}
	return nil
}

// ContentLightLevel holds MaxCLL and MaxFALL in nits.
type ContentLightLevel struct {
	MaxCLL  uint32 `json:"max_cll"`
	MaxFALL uint32 `json:"max_fall"`
}

// DefaultContentLightLevel is emitted when an HDR10 source carries none.
func DefaultContentLightLevel() ContentLightLevel {
	return ContentLightLevel{MaxCLL: 1000, MaxFALL: 400}
}

// ParseContentLightLevel parses "maxcll,maxfall". A lone value sets MaxCLL
// and leaves MaxFALL at 400.
func ParseContentLightLevel(s string) (ContentLightLevel, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		return ContentLightLevel{}, hkerrors.NewParseError(fmt.Sprintf("invalid content light level %q", s), nil)
	}
	maxCLL, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return ContentLightLevel{}, hkerrors.NewParseError(fmt.Sprintf("invalid max_cll in %q", s), err)
	}
	cll := ContentLightLevel{MaxCLL: uint32(maxCLL), MaxFALL: 400}
	if len(parts) == 2 {
		maxFALL, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil {
			return ContentLightLevel{}, hkerrors.NewParseError(fmt.Sprintf("invalid max_fall in %q", s), err)
		}
		cll.MaxFALL = uint32(maxFALL)
	}
	return cll, nil
}

// String formats the value for x265's max-cll option.
func (c ContentLightLevel) String() string {
	return fmt.Sprintf("%d,%d", c.MaxCLL, c.MaxFALL)
}

// Validate requires both values to be positive and MaxFALL <= MaxCLL.
func (c ContentLightLevel) Validate() error {
	if c.MaxCLL == 0 {
		return hkerrors.NewValidationError("max CLL must be greater than 0")
	}
	if c.MaxFALL == 0 {
		return hkerrors.NewValidationError("max FALL must be greater than 0")
	}
	if c.MaxFALL > c.MaxCLL {
		return hkerrors.NewValidationErrorf("max FALL %d exceeds max CLL %d", c.MaxFALL, c.MaxCLL)
	}
	return nil
}
