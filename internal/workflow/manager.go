package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/content"
	"github.com/five82/hdrkit/internal/dolbyvision"
	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/hdr10plus"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/metrics"
	"github.com/five82/hdrkit/internal/rpu"
	"github.com/five82/hdrkit/internal/util"
)

// Options configures a Manager.
type Options struct {
	TempDir      string
	Availability ToolAvailability
	Resolver     *content.Resolver
	DolbyVision  config.DolbyVisionConfig
	RPU          *rpu.Manager
	HDR10Plus    *hdr10plus.Manager
	// ValidateWithPlot runs the hdr10plus_tool plot check on every
	// extracted HDR10+ file.
	ValidateWithPlot bool
	// NativeRPU hands the extracted RPU to x265 instead of injecting it
	// after the encode.
	NativeRPU bool
	Metrics   *metrics.Metrics
}

// Manager creates per-file Runs sharing one tool availability snapshot.
type Manager struct {
	tempDir          string
	avail            ToolAvailability
	resolver         *content.Resolver
	dv               *dolbyvision.Analyzer
	rpu              *rpu.Manager
	hdr10plus        *hdr10plus.Manager
	validateWithPlot bool
	nativeRPU        bool
	metrics          *metrics.Metrics
}

// NewManager creates a Manager. A nil Resolver gets a default one built
// from opts.DolbyVision.
func NewManager(opts Options) *Manager {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = content.NewResolver(opts.DolbyVision, nil)
	}
	return &Manager{
		tempDir:          opts.TempDir,
		avail:            opts.Availability,
		resolver:         resolver,
		dv:               dolbyvision.NewAnalyzer(opts.DolbyVision),
		rpu:              opts.RPU,
		hdr10plus:        opts.HDR10Plus,
		validateWithPlot: opts.ValidateWithPlot,
		nativeRPU:        opts.NativeRPU,
		metrics:          opts.Metrics,
	}
}

// Availability returns the tool snapshot the Manager was created with.
func (m *Manager) Availability() ToolAvailability {
	return m.avail
}

// TempOutputPath is where the encoder should write when the encode needs
// post-processing before it becomes final.
func (m *Manager) TempOutputPath(final string) string {
	dir := m.tempDir
	if dir == "" {
		dir = filepath.Dir(final)
	}
	return filepath.Join(dir, util.EncodeTempFileName(final))
}

// NewRun starts the workflow for one input file.
func (m *Manager) NewRun(input string) *Run {
	return &Run{
		m:         m,
		input:     input,
		state:     StateToolsProbed,
		extracted: ExtractedMetadata{TempDir: m.tempDir},
	}
}

// Run is the workflow of one file. It is not safe for concurrent use.
type Run struct {
	m         *Manager
	input     string
	state     State
	extracted ExtractedMetadata
}

// State returns the current state.
func (r *Run) State() State {
	return r.state
}

// Extracted returns the metadata owned by the run.
func (r *Run) Extracted() *ExtractedMetadata {
	return &r.extracted
}

func (r *Run) advance(from State, to State) error {
	if r.state != from {
		return hkerrors.NewValidationErrorf("workflow for %s cannot move to %s from %s", r.input, to, r.state)
	}
	logging.Debug("workflow state change", "input", r.input, "from", r.state, "to", to)
	r.state = to
	return nil
}

// Extract pulls the metadata the approach of analysis needs. Extraction
// problems never fail the run: they are logged and the encode continues
// with static parameters. When HDR10+ metadata was expected but none could
// be extracted the analysis is re-resolved as HDR10. Only cancellation is
// returned as an error.
func (r *Run) Extract(ctx context.Context, analysis content.Analysis) (content.Analysis, error) {
	if err := r.advance(StateToolsProbed, StateMetadataExtracted); err != nil {
		return analysis, err
	}

	switch a := analysis.Approach.(type) {
	case content.SDR:
		logging.Debug("SDR content, no metadata to extract", "input", r.input)
	case content.HDR:
		if a.Result.Format() == hdr.FormatHDR10Plus {
			r.extracted.HDR10Plus = r.extractHDR10Plus(ctx, a.Result, dolbyvision.None())
		}
	case content.DolbyVision:
		r.extracted.RPU = r.extractRPU(ctx, a.Info)
	case content.DolbyVisionWithHDR10Plus:
		r.extracted.RPU = r.extractRPU(ctx, a.Info)
		r.extracted.HDR10Plus = r.extractHDR10Plus(ctx, a.Result, a.Info)
	}

	if err := ctx.Err(); err != nil {
		return analysis, hkerrors.NewCancelledError()
	}

	if expectsDynamicMetadata(analysis.Approach) && r.extracted.HDR10Plus == nil {
		logging.Info("HDR10+ metadata unavailable, encoding with static HDR10 metadata", "input", r.input)
		degraded := analysis.HDR.WithoutDynamicMetadata()
		return r.m.resolver.Analyze(degraded, analysis.DolbyVision, nil), nil
	}
	analysis.HDR10Plus = r.extracted.HDR10Plus
	return analysis, nil
}

func expectsDynamicMetadata(a content.Approach) bool {
	switch a := a.(type) {
	case content.HDR:
		return a.Result.Format() == hdr.FormatHDR10Plus
	case content.DolbyVisionWithHDR10Plus:
		return true
	}
	return false
}

func (r *Run) extractRPU(ctx context.Context, info dolbyvision.Info) *rpu.Metadata {
	switch {
	case !info.RPUPresent:
		logging.Debug("no RPU present", "input", r.input, "profile", info.Profile)
		return nil
	case !r.m.avail.DoviTool || r.m.rpu == nil:
		logging.Info("skipping RPU extraction, dovi_tool not available; Dolby Vision will not be preserved",
			"input", r.input, "profile", info.Profile)
		r.m.metrics.ObserveExtraction("rpu", "skipped")
		return nil
	}

	md, err := r.m.rpu.Extract(ctx, r.input, info)
	if err != nil {
		logToolFailure("RPU extraction failed, continuing without Dolby Vision RPU", r.input, err)
		r.m.metrics.ObserveExtraction("rpu", "failed")
		return nil
	}
	if md == nil {
		return nil
	}
	r.m.metrics.ObserveExtraction("rpu", "ok")
	if info.Profile.IsDualLayer() {
		logging.Info("enhancement layer is not carried over, only the RPU is kept", "input", r.input, "profile", info.Profile)
	}

	target := r.m.dv.TargetProfile(info.Profile)
	if target == md.Profile {
		return md
	}
	converted, err := r.m.rpu.ConvertProfile(ctx, md, target)
	if err != nil {
		logToolFailure("RPU profile conversion failed, dropping RPU", r.input, err)
		if rerr := md.Release(); rerr != nil {
			logging.Warn("failed to remove RPU file", "path", md.Path(), "error", rerr)
		}
		return nil
	}
	return converted
}

func (r *Run) extractHDR10Plus(ctx context.Context, res hdr.AnalysisResult, dv dolbyvision.Info) *hdr10plus.Result {
	if !r.m.avail.HDR10PlusTool || r.m.hdr10plus == nil {
		logging.Info("skipping HDR10+ extraction, hdr10plus_tool not available", "input", r.input)
		r.m.metrics.ObserveExtraction("hdr10plus", "skipped")
		return nil
	}

	result, err := r.m.hdr10plus.ExtractDualFormat(ctx, r.input, dv, res)
	switch {
	case err != nil:
		logToolFailure("HDR10+ extraction failed, continuing with static metadata", r.input, err)
		r.m.metrics.ObserveExtraction("hdr10plus", "failed")
		return nil
	case result == nil:
		r.m.metrics.ObserveExtraction("hdr10plus", "no_metadata")
		return nil
	}

	if r.m.validateWithPlot {
		if err := r.m.hdr10plus.ValidateWithPlot(ctx, result); err != nil {
			logging.Warn("HDR10+ metadata failed plot check, discarding it", "input", r.input, "error", err)
			r.m.metrics.ObserveExtraction("hdr10plus", "invalid")
			if rerr := result.Release(); rerr != nil {
				logging.Warn("failed to remove HDR10+ metadata file", "path", result.Path, "error", rerr)
			}
			return nil
		}
	}
	r.m.metrics.ObserveExtraction("hdr10plus", "ok")
	return result
}

// logToolFailure logs err with whatever tool diagnostics it carries.
func logToolFailure(msg, input string, err error) {
	args := []any{"input", input, "error", err}
	var toolErr *hkerrors.ToolError
	if errors.As(err, &toolErr) {
		args = append(args, "tool", toolErr.Tool, "kind", toolErr.Kind.String(), "exit_code", toolErr.ExitCode)
		if toolErr.Stderr != "" {
			args = append(args, "stderr", toolErr.Stderr)
		}
	}
	logging.Warn(msg, args...)
}

// EncoderParams returns the parameters the encoder needs for the extracted
// metadata. The RPU is only included when x265 consumes it natively;
// otherwise it is injected after the encode.
func (r *Run) EncoderParams() (hdr.Params, error) {
	if err := r.advance(StateMetadataExtracted, StateParamsSupplied); err != nil {
		return nil, err
	}
	p := hdr10plus.EncoderParams(r.extracted.HDR10Plus)
	if len(p) > 0 {
		logging.Info("supplying HDR10+ metadata to encoder", "path", r.extracted.HDR10Plus.Path)
	}
	if r.encodesRPU() {
		rpuMeta := r.extracted.RPU
		p.Merge(content.DolbyVisionParams(rpuMeta.Profile, rpuMeta.Path()))
		logging.Info("supplying Dolby Vision RPU to encoder", "path", rpuMeta.Path(), "profile", rpuMeta.Profile)
	}
	return p, nil
}

// encodesRPU reports whether x265 embeds the RPU itself. Profile 7 has no
// x265 profile value and always goes through injection.
func (r *Run) encodesRPU() bool {
	rpuMeta := r.extracted.RPU
	return r.m.nativeRPU && rpuMeta.Usable() && rpuMeta.Profile.X265Value() != ""
}

// NeedsPostProcessing reports whether the encode must go through RPU
// injection, and therefore should be written to TempOutputPath.
func (r *Run) NeedsPostProcessing() bool {
	return !r.encodesRPU() && r.extracted.RPU.Usable() && r.m.avail.CanInjectRPU() && r.m.rpu != nil
}

// MarkEncoded records that the encoder finished successfully.
func (r *Run) MarkEncoded() error {
	return r.advance(StateParamsSupplied, StateEncoded)
}

// Inject turns the encode at encoded into the final file at final. With an
// RPU to inject it runs the injection pipeline and falls back to the plain
// encode when any step fails. The plain encode is never lost: the only
// errors are cancellation and failure to move it into place.
func (r *Run) Inject(ctx context.Context, encoded, final string, fps float64) (Outcome, error) {
	if r.state != StateEncoded {
		return OutcomePassthrough, hkerrors.NewValidationErrorf("workflow for %s cannot inject from %s", r.input, r.state)
	}

	if r.NeedsPostProcessing() {
		err := r.m.rpu.Inject(ctx, encoded, r.extracted.RPU, final, fps)
		if err == nil {
			if rerr := util.RemoveIfExists(encoded); rerr != nil {
				logging.Warn("failed to remove intermediate encode", "path", encoded, "error", rerr)
			}
			r.state = StateInjected
			r.m.metrics.ObservePostProcessing(OutcomeInjected.String())
			logging.Info("Dolby Vision RPU preserved", "output", final, "profile", r.extracted.RPU.Profile)
			return OutcomeInjected, nil
		}
		if ctx.Err() != nil {
			return OutcomeFallback, hkerrors.NewCancelledError()
		}
		logToolFailure("RPU injection failed, keeping encode without Dolby Vision", r.input, err)
		if err := r.place(encoded, final); err != nil {
			return OutcomeFallback, err
		}
		r.state = StateFallback
		r.m.metrics.ObservePostProcessing(OutcomeFallback.String())
		return OutcomeFallback, nil
	}

	if r.encodesRPU() {
		if err := r.place(encoded, final); err != nil {
			return OutcomeInjected, err
		}
		r.state = StateInjected
		r.m.metrics.ObservePostProcessing(OutcomeInjected.String())
		logging.Info("Dolby Vision RPU embedded by the encoder", "output", final, "profile", r.extracted.RPU.Profile)
		return OutcomeInjected, nil
	}

	if r.extracted.HDR10Plus != nil {
		logging.Debug("HDR10+ metadata was embedded during the encode", "input", r.input)
	}
	if err := r.place(encoded, final); err != nil {
		return OutcomePassthrough, err
	}
	r.state = StateFallback
	r.m.metrics.ObservePostProcessing(OutcomePassthrough.String())
	return OutcomePassthrough, nil
}

func (r *Run) place(encoded, final string) error {
	if encoded == final {
		return nil
	}
	if err := util.MoveFile(encoded, final); err != nil {
		return hkerrors.NewIOError(fmt.Sprintf("failed to move %s to %s", encoded, final), err)
	}
	return nil
}

// Cleanup releases every temp file of the run. It is safe to call on any
// path, more than once.
func (r *Run) Cleanup() error {
	err := r.extracted.Cleanup()
	if r.state != StateCleanedUp {
		logging.Debug("workflow state change", "input", r.input, "from", r.state, "to", StateCleanedUp)
		r.state = StateCleanedUp
	}
	if err != nil {
		logging.Warn("failed to remove workflow temp files", "input", r.input, "error", err)
	}
	return err
}
