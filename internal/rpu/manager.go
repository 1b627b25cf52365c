package rpu

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/five82/hdrkit/internal/dolbyvision"
	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

// DoviTool is the subset of dovi_tool the manager drives.
type DoviTool interface {
	ExtractRPU(ctx context.Context, input, rpuOut string) error
	InjectRPU(ctx context.Context, hevcIn, rpu, out string) error
	Convert(ctx context.Context, input, out, targetProfile string) error
}

// Remuxer puts an elementary HEVC stream back into a container, taking
// every other track from reference.
type Remuxer interface {
	Remux(ctx context.Context, hevc, reference, out string, fps float64) error
}

// Demuxer copies the video track of a container into an Annex-B stream.
// It must also be able to remux, as the fallback when no dedicated
// Remuxer is configured.
type Demuxer interface {
	Remuxer
	ExtractAnnexB(ctx context.Context, container, hevcOut string) error
}

// Manager runs RPU extraction, conversion and injection.
type Manager struct {
	tempDir string
	dovi    DoviTool
	demuxer Demuxer
	remuxer Remuxer
}

// Options configures a Manager. Remuxer is optional; when nil the Demuxer
// also performs the final remux.
type Options struct {
	TempDir string
	Dovi    DoviTool
	Demuxer Demuxer
	Remuxer Remuxer
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		tempDir: opts.TempDir,
		dovi:    opts.Dovi,
		demuxer: opts.Demuxer,
		remuxer: opts.Remuxer,
	}
}

// workDir is where temp files for source are created.
func (m *Manager) workDir(source string) string {
	if m.tempDir != "" {
		return m.tempDir
	}
	return filepath.Dir(source)
}

func missingTool(name string) error {
	return hkerrors.NewToolError(&hkerrors.ToolError{Tool: name, Kind: hkerrors.ToolNotFound, Underlying: fmt.Errorf("%s not configured", name)})
}

// Extract writes the RPU of input to an owned temp file. Content that needs
// no RPU processing yields (nil, nil). A failed or empty extraction leaves
// no file behind.
func (m *Manager) Extract(ctx context.Context, input string, info dolbyvision.Info) (*Metadata, error) {
	if !info.NeedsRPUProcessing() {
		logging.Debug("no RPU processing needed", "input", input, "profile", info.Profile)
		return nil, nil
	}
	if m.dovi == nil {
		return nil, missingTool("dovi_tool")
	}

	file := util.NewTempFileIn(m.workDir(input), util.RPUFileName(input))
	logging.Info("extracting Dolby Vision RPU", "input", input, "profile", info.Profile, "rpu", file.Path())

	if err := m.dovi.ExtractRPU(ctx, input, file.Path()); err != nil {
		releaseQuietly(file)
		return nil, err
	}
	size, err := util.NonEmptyFileSize(file.Path())
	if err != nil {
		releaseQuietly(file)
		return nil, hkerrors.NewValidationErrorf("RPU extraction produced no usable file: %v", err)
	}

	logging.Info("extracted Dolby Vision RPU", "profile", info.Profile, "bytes", size)
	return NewMetadata(file.Path(), info.Profile, size), nil
}

// ConvertProfile rewrites rpu for target, returning the converted RPU. The
// source RPU is released on success and kept on failure.
func (m *Manager) ConvertProfile(ctx context.Context, rpu *Metadata, target dolbyvision.Profile) (*Metadata, error) {
	if !rpu.Usable() {
		return nil, hkerrors.NewValidationError("cannot convert an RPU that was not extracted")
	}
	if target == rpu.Profile {
		return rpu, nil
	}
	if target.X265Value() == "" {
		return nil, hkerrors.NewValidationErrorf("cannot convert RPU to profile %s", target)
	}
	if m.dovi == nil {
		return nil, missingTool("dovi_tool")
	}

	out := util.NewTempFileIn(filepath.Dir(rpu.Path()), util.ConvertedRPUFileName(rpu.Path()))
	logging.Info("converting Dolby Vision RPU", "from", rpu.Profile, "to", target)

	if err := m.dovi.Convert(ctx, rpu.Path(), out.Path(), target.String()); err != nil {
		releaseQuietly(out)
		return nil, err
	}
	size, err := util.NonEmptyFileSize(out.Path())
	if err != nil {
		releaseQuietly(out)
		return nil, hkerrors.NewValidationErrorf("RPU conversion produced no usable file: %v", err)
	}

	releaseQuietly(rpu.file)
	return NewMetadata(out.Path(), target, size), nil
}

// Inject merges rpu into the video of encoded and writes output:
//
//  1. copy the video of encoded to an Annex-B stream
//  2. inject the RPU into that stream
//  3. remux the result with every non-video track of encoded
//
// Each transitional file is deleted as soon as the next step has consumed
// it. On failure every transitional file and any partial output are
// removed; encoded is never touched.
func (m *Manager) Inject(ctx context.Context, encoded string, rpu *Metadata, output string, fps float64) error {
	if !rpu.Usable() {
		return hkerrors.NewValidationError("cannot inject RPU: no extracted RPU file")
	}
	if m.dovi == nil {
		return missingTool("dovi_tool")
	}
	if m.demuxer == nil {
		return missingTool("ffmpeg")
	}
	if fps <= 0 {
		return hkerrors.NewValidationErrorf("cannot remux elementary stream without a frame rate, got %g", fps)
	}

	dir := m.workDir(encoded)
	hevc := util.NewTempFileIn(dir, util.HEVCFileName())
	withRPU := util.NewTempFileIn(dir, util.HEVCWithRPUFileName())
	defer releaseQuietly(hevc)
	defer releaseQuietly(withRPU)

	logging.Info("injecting Dolby Vision RPU", "encoded", encoded, "profile", rpu.Profile, "output", output)

	logging.Info("step 1/3: extracting HEVC bitstream")
	if err := m.demuxer.ExtractAnnexB(ctx, encoded, hevc.Path()); err != nil {
		return fmt.Errorf("extract HEVC bitstream: %w", err)
	}

	logging.Info("step 2/3: injecting RPU into HEVC bitstream")
	err := m.dovi.InjectRPU(ctx, hevc.Path(), rpu.Path(), withRPU.Path())
	releaseQuietly(hevc)
	if err != nil {
		return fmt.Errorf("inject RPU: %w", err)
	}

	logging.Info("step 3/3: remuxing HEVC with RPU")
	err = m.remux(ctx, withRPU.Path(), encoded, output, fps)
	releaseQuietly(withRPU)
	if err != nil {
		if rerr := util.RemoveIfExists(output); rerr != nil {
			logging.Warn("failed to remove partial output", "path", output, "error", rerr)
		}
		return fmt.Errorf("remux HEVC with RPU: %w", err)
	}

	logging.Info("injected Dolby Vision RPU", "profile", rpu.Profile, "output", output)
	return nil
}

// remux prefers the dedicated remuxer and falls back to the demuxer.
func (m *Manager) remux(ctx context.Context, hevc, reference, output string, fps float64) error {
	if m.remuxer != nil {
		err := m.remuxer.Remux(ctx, hevc, reference, output, fps)
		if err == nil || ctx.Err() != nil {
			return err
		}
		logging.Warn("remux failed, retrying with ffmpeg", "error", err)
		if rerr := util.RemoveIfExists(output); rerr != nil {
			return rerr
		}
	}
	return m.demuxer.Remux(ctx, hevc, reference, output, fps)
}

func releaseQuietly(f *util.TempFile) {
	if err := f.Release(); err != nil {
		logging.Warn("failed to remove temp file", "path", f.Path(), "error", err)
	}
}
