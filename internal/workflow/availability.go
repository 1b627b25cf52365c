// Package workflow drives the metadata side of one encode: extracting RPU
// and HDR10+ metadata before the encode, supplying encoder parameters,
// re-injecting the RPU afterwards and cleaning up every temp file.
package workflow

import (
	"context"

	"github.com/five82/hdrkit/internal/logging"
)

// Checker reports whether an external tool is usable.
type Checker interface {
	Available(ctx context.Context) bool
}

// Toolset lists the tools to probe. A nil entry is disabled by
// configuration and reported as unavailable.
type Toolset struct {
	DoviTool      Checker
	HDR10PlusTool Checker
	MKVMerge      Checker
	FFmpeg        Checker
}

// ToolAvailability is probed once per process and read-only afterwards.
type ToolAvailability struct {
	DoviTool      bool `json:"dovi_tool"`
	HDR10PlusTool bool `json:"hdr10plus_tool"`
	MKVMerge      bool `json:"mkvmerge"`
	FFmpeg        bool `json:"ffmpeg"`
}

// CanInjectRPU reports whether the post-encode RPU pipeline can run.
// Remuxing falls back to ffmpeg, so mkvmerge is optional.
func (a ToolAvailability) CanInjectRPU() bool {
	return a.DoviTool && a.FFmpeg
}

// ProbeTools checks each tool once and logs the result. It never fails: an
// unavailable tool only disables its branch of the workflow.
func ProbeTools(ctx context.Context, ts Toolset) ToolAvailability {
	logging.Info("checking external metadata tools")

	a := ToolAvailability{
		DoviTool:      check(ctx, "dovi_tool", ts.DoviTool, "Dolby Vision RPU extraction and injection"),
		HDR10PlusTool: check(ctx, "hdr10plus_tool", ts.HDR10PlusTool, "HDR10+ dynamic metadata extraction"),
		MKVMerge:      check(ctx, "mkvmerge", ts.MKVMerge, "preferred remuxer for RPU injection"),
		FFmpeg:        check(ctx, "ffmpeg", ts.FFmpeg, "bitstream extraction and remux"),
	}

	if a.DoviTool && !a.FFmpeg {
		logging.Warn("dovi_tool is available but ffmpeg is not, RPU injection disabled")
	}
	if !a.DoviTool && !a.HDR10PlusTool {
		logging.Info("no metadata tools available, using built-in x265 HDR parameters only")
	}
	return a
}

func check(ctx context.Context, name string, c Checker, purpose string) bool {
	if c == nil {
		logging.Info("tool disabled in configuration", "tool", name)
		return false
	}
	ok := c.Available(ctx)
	if ok {
		logging.Info("tool available", "tool", name, "enables", purpose)
	} else {
		logging.Warn("tool not available", "tool", name, "disables", purpose)
	}
	return ok
}
