package content

import (
	"strconv"

	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/hdr"
)

// DolbyVisionParams returns the x265 parameters a Dolby Vision encode
// needs. The RPU path and profile are only passed to x265 when it consumes
// the RPU natively (rpuPath non-empty); otherwise the RPU is injected
// after the encode and only the BT.2020/PQ base is signalled.
func DolbyVisionParams(target dolbyvision.Profile, rpuPath string) hdr.Params {
	p := hdr.Params{
		{Key: "colorprim", Value: "bt2020"},
		{Key: "transfer", Value: "smpte2084"},
		{Key: "colormatrix", Value: "bt2020nc"},
		{Key: "output-depth", Value: "10"},
	}
	if rpuPath != "" {
		if v := target.X265Value(); v != "" {
			p.Set("dolby-vision-rpu", rpuPath)
			p.Set("dolby-vision-profile", v)
		}
	}
	return p
}

func formatUint(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
