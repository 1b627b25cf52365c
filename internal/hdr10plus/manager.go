package hdr10plus

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/five82/hdrkit/internal/dolbyvision"
	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

// Tool is the subset of hdr10plus_tool the manager drives.
type Tool interface {
	Extract(ctx context.Context, input, jsonOut string) error
	Plot(ctx context.Context, jsonPath, image string) error
}

// Manager extracts HDR10+ metadata into owned temp files.
type Manager struct {
	tempDir string
	tool    Tool
}

// NewManager creates a Manager. Metadata files are written to tempDir, or
// next to the source when tempDir is empty. tool may be nil, in which case
// extraction is skipped.
func NewManager(tempDir string, tool Tool) *Manager {
	return &Manager{tempDir: tempDir, tool: tool}
}

func (m *Manager) metadataPath(input string) string {
	dir := m.tempDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, util.HDR10PlusFileName(input))
}

// Extract pulls dynamic metadata out of input. HDR10 sources are tried too,
// since their side data is not always labelled. A source without dynamic
// metadata yields (nil, nil). On any error no file is left behind.
func (m *Manager) Extract(ctx context.Context, input string, res hdr.AnalysisResult) (*Result, error) {
	format := res.Format()
	if format != hdr.FormatHDR10Plus && format != hdr.FormatHDR10 {
		logging.Debug("skipping HDR10+ extraction", "format", format)
		return nil, nil
	}
	if m.tool == nil {
		logging.Warn("hdr10plus_tool not configured, skipping HDR10+ extraction", "input", input)
		return nil, nil
	}

	file := util.NewTempFile(m.metadataPath(input))
	fail := func(err error) (*Result, error) {
		if rerr := file.Release(); rerr != nil {
			logging.Warn("failed to remove HDR10+ metadata file", "path", file.Path(), "error", rerr)
		}
		return nil, err
	}

	if err := m.tool.Extract(ctx, input, file.Path()); err != nil {
		if hkerrors.IsNoDynamicMetadata(err) {
			logging.Info("no HDR10+ dynamic metadata present", "input", input)
			return fail(nil)
		}
		return fail(err)
	}

	meta, err := Load(file.Path())
	if err != nil {
		return fail(err)
	}
	if err := meta.Validate(); err != nil {
		return fail(err)
	}
	size, err := util.NonEmptyFileSize(file.Path())
	if err != nil {
		return fail(hkerrors.NewIOError("HDR10+ metadata file unusable", err))
	}

	result := NewResult(file.Path(), meta, size)
	logging.Info("extracted HDR10+ metadata",
		"path", result.Path,
		"frames", result.FrameCount(),
		"scenes", result.SceneCount,
		"curves", result.CurveCount)
	return result, nil
}

// ExtractDualFormat extracts HDR10+ metadata from content that also carries
// Dolby Vision. Non-DV content is handled like Extract.
func (m *Manager) ExtractDualFormat(ctx context.Context, input string, dv dolbyvision.Info, res hdr.AnalysisResult) (*Result, error) {
	if !dv.IsDolbyVision() {
		return m.Extract(ctx, input, res)
	}

	logging.Info("extracting HDR10+ metadata from dual-format content", "input", input, "dv_profile", dv.Profile)
	result, err := m.Extract(ctx, input, res)
	switch {
	case err != nil:
		return nil, err
	case result == nil:
		logging.Warn("dual-format content yielded no HDR10+ metadata", "input", input, "dv_profile", dv.Profile)
	default:
		logging.Info("dual-format extraction complete", "dv_profile", dv.Profile, "frames", result.FrameCount())
	}
	return result, nil
}

// EncoderParams returns the x265 parameters that hand the metadata file to
// the encoder. Nil or unsuccessful results produce none.
func EncoderParams(r *Result) hdr.Params {
	if r == nil || !r.Extracted || r.Path == "" {
		return nil
	}
	return hdr.Params{{Key: "dhdr10-info", Value: r.Path}}
}

// ProcessingOverhead returns the encode-time multiplier for content of
// format. HDR10+ content whose metadata could not be extracted still pays
// the base overhead.
func ProcessingOverhead(format hdr.Format, r *Result) float64 {
	if format != hdr.FormatHDR10Plus {
		return 1.0
	}
	if r == nil {
		return 1.4
	}
	return r.ProcessingOverhead()
}

// ValidateWithPlot asks hdr10plus_tool to render the metadata. A file the
// tool cannot plot is reported as a validation error. The plot image is
// removed afterwards.
func (m *Manager) ValidateWithPlot(ctx context.Context, r *Result) error {
	if r == nil || !r.Extracted {
		return nil
	}
	if m.tool == nil {
		return hkerrors.NewValidationError("hdr10plus_tool not configured, cannot plot metadata")
	}

	image := util.NewTempFile(strings.TrimSuffix(r.Path, filepath.Ext(r.Path)) + "_plot.png")
	defer func() {
		if err := image.Release(); err != nil {
			logging.Debug("failed to remove HDR10+ plot", "path", image.Path(), "error", err)
		}
	}()

	if err := m.tool.Plot(ctx, r.Path, image.Path()); err != nil {
		return hkerrors.NewValidationErrorf("HDR10+ metadata failed plot check: %v", err)
	}
	logging.Debug("HDR10+ metadata plot check passed", "path", r.Path)
	return nil
}
