// Package processing runs the per-file pipeline: probe and classify the
// source, extract its dynamic metadata, encode with libx265, restore the
// Dolby Vision RPU and validate the result.
package processing

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/content"
	"github.com/five82/hdrkit/internal/dolbyvision"
	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/ffmpeg"
	"github.com/five82/hdrkit/internal/ffprobe"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/journal"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/mediainfo"
	"github.com/five82/hdrkit/internal/metrics"
	"github.com/five82/hdrkit/internal/reporter"
	"github.com/five82/hdrkit/internal/util"
	"github.com/five82/hdrkit/internal/validation"
	"github.com/five82/hdrkit/internal/workflow"
)

// Encoder runs the libx265 encode.
type Encoder interface {
	Encode(ctx context.Context, params *ffmpeg.EncodeParams, callback ffmpeg.ProgressCallback) error
}

// Journal records finished files.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
}

// Deps holds the collaborators of a Processor. Prober, Workflow and
// Encoder are required; the rest may be nil.
type Deps struct {
	Config    *config.Config
	Prober    validation.Prober
	MediaInfo validation.MediaInfoSource
	Resolver  *content.Resolver
	Registry  *hdr.Registry
	Workflow  *workflow.Manager
	Encoder   Encoder
	// Validator inspects finished encodes. Nil skips validation.
	Validator validation.MediaAnalyzer
	Journal   Journal
	Metrics   *metrics.Metrics
	Reporter  reporter.Reporter
}

// Processor runs the pipeline. It is safe for concurrent use by the
// batch worker pool.
type Processor struct {
	cfg       *config.Config
	prober    validation.Prober
	mediainfo validation.MediaInfoSource
	detector  *hdr.Detector
	dv        *dolbyvision.Analyzer
	resolver  *content.Resolver
	registry  *hdr.Registry
	workflow  *workflow.Manager
	encoder   Encoder
	validator validation.MediaAnalyzer
	journal   Journal
	metrics   *metrics.Metrics
	rep       reporter.Reporter
}

// New creates a Processor.
func New(d Deps) *Processor {
	cfg := d.Config
	if cfg == nil {
		cfg = config.NewConfig("", "", "")
	}
	registry := d.Registry
	if registry == nil {
		registry = hdr.NewRegistry()
	}
	resolver := d.Resolver
	if resolver == nil {
		resolver = content.NewResolver(cfg.DolbyVision, registry)
	}
	rep := d.Reporter
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return &Processor{
		cfg:       cfg,
		prober:    d.Prober,
		mediainfo: d.MediaInfo,
		detector:  hdr.NewDetector(cfg.HDR.ExtraDynamicLabels...),
		dv:        dolbyvision.NewAnalyzer(cfg.DolbyVision),
		resolver:  resolver,
		registry:  registry,
		workflow:  d.Workflow,
		encoder:   d.Encoder,
		validator: d.Validator,
		journal:   d.Journal,
		metrics:   d.Metrics,
		rep:       rep,
	}
}

// FileAnalysis is the classification of one source file.
type FileAnalysis struct {
	Path          string
	Properties    *ffprobe.VideoProperties
	Analysis      content.Analysis
	TargetProfile dolbyvision.Profile
	AudioStreams  int
	// Hints is nil when MediaInfo was not consulted.
	Hints *mediainfo.Hints
}

// Analyze probes path and resolves its encoding approach without touching
// any external metadata tool.
func (p *Processor) Analyze(ctx context.Context, path string) (*FileAnalysis, error) {
	probe, err := p.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	props, err := probe.VideoProperties()
	if err != nil {
		return nil, err
	}

	res := hdr.AnalysisResult{Metadata: hdr.SDRMetadata(), EncodingComplexity: 1.0}
	res.Metadata.BitDepth = props.BitDepth
	if p.cfg.HDR.Enabled {
		if res, err = p.detector.Detect(probe); err != nil {
			return nil, err
		}
	}

	dv := dolbyvision.None()
	if p.cfg.DolbyVision.Enabled {
		dv = p.dv.Analyze(probe)
	}

	fa := &FileAnalysis{Path: path, Properties: props, AudioStreams: probe.AudioStreamCount()}
	if hints := p.mediaInfoHints(ctx, path); hints != nil {
		fa.Hints = hints
		if p.cfg.HDR.Enabled {
			res = hints.MergeHDR(res)
		}
		if p.cfg.DolbyVision.Enabled {
			dv = hints.MergeDolbyVision(dv)
		}
	}

	if !p.cfg.HDR10Plus.Enabled && res.Format() == hdr.FormatHDR10Plus {
		logging.Info("HDR10+ handling disabled, treating source as HDR10", "path", path)
		res = res.WithoutDynamicMetadata()
	}

	fa.Analysis = p.resolver.Analyze(res, dv, nil)
	if dv.IsDolbyVision() {
		fa.TargetProfile = p.dv.TargetProfile(dv.Profile)
	}
	return fa, nil
}

func (p *Processor) mediaInfoHints(ctx context.Context, path string) *mediainfo.Hints {
	if p.mediainfo == nil {
		return nil
	}
	data, err := p.mediainfo.JSON(ctx, path)
	if err != nil {
		logging.Debug("mediainfo unavailable for cross-check", "path", path, "error", err)
		return nil
	}
	resp, err := mediainfo.Parse(data)
	if err != nil {
		logging.Debug("mediainfo output not usable", "path", path, "error", err)
		return nil
	}
	hints := mediainfo.DetectHints(resp)
	return &hints
}

// FileResult is the outcome of processing one file.
type FileResult struct {
	Input       string
	Output      string
	Analysis    *FileAnalysis
	Encode      *ffmpeg.EncodeParams
	Outcome     workflow.Outcome
	HDR10Plus   bool
	InputBytes  uint64
	OutputBytes uint64
	Elapsed     time.Duration
	Validation  *validation.Result
	// Skipped is set when the output already existed.
	Skipped bool
	Err     error
}

// Succeeded reports whether the file was encoded.
func (r *FileResult) Succeeded() bool {
	return r != nil && r.Err == nil && !r.Skipped
}

// Process runs the whole pipeline for input, writing output. The returned
// FileResult is never nil; its Err matches the returned error.
func (p *Processor) Process(ctx context.Context, input, output string) (*FileResult, error) {
	start := time.Now()
	r := &FileResult{Input: input, Output: output}

	if util.FileExists(output) {
		p.rep.Warning(fmt.Sprintf("Output file already exists: %s. Skipping encode.", output))
		r.Skipped = true
		return r, nil
	}

	err := p.process(ctx, r)
	if err != nil && ctx.Err() != nil && !hkerrors.IsCancelled(err) {
		err = hkerrors.NewCancelledError()
	}
	r.Err = err
	r.Elapsed = time.Since(start)
	r.InputBytes, _ = util.GetFileSize(input)
	if err == nil {
		r.OutputBytes, _ = util.GetFileSize(output)
	}

	p.record(ctx, r)
	if err != nil && !hkerrors.IsCancelled(err) {
		p.rep.Error(reporter.ReporterError{
			Title:      "Processing Error",
			Message:    fmt.Sprintf("Could not process %s: %v", util.GetFilename(input), err),
			Context:    fmt.Sprintf("File: %s", input),
			Suggestion: suggestionFor(err),
		})
	}
	return r, err
}

func (p *Processor) process(ctx context.Context, r *FileResult) error {
	start := time.Now()
	fa, err := p.Analyze(ctx, r.Input)
	if err != nil {
		return err
	}
	r.Analysis = fa
	props := fa.Properties

	p.rep.Initialization(reporter.InitializationSummary{
		InputFile:    util.GetFilename(r.Input),
		OutputFile:   util.GetFilename(r.Output),
		Duration:     util.FormatDuration(props.DurationSecs),
		Resolution:   fmt.Sprintf("%dx%d", props.Width, props.Height),
		DynamicRange: fa.Analysis.HDR.Format().String(),
		AudioStreams: fa.AudioStreams,
	})
	p.rep.AnalysisComplete(fa.Summary())

	tempDir := p.cfg.GetTempDir()
	if tempDir == "" {
		tempDir = filepath.Dir(r.Output)
	}
	if err := util.EnsureDirectory(filepath.Dir(r.Output)); err != nil {
		return hkerrors.NewIOError("cannot create output directory", err)
	}
	util.CheckDiskSpace(tempDir, func(format string, args ...any) {
		p.rep.Warning(fmt.Sprintf(format, args...))
	})
	// Annex B copies of the encode are written next to it before injection.
	if content.PreservesDolbyVision(fa.Analysis.Approach) {
		if size, err := util.GetFileSize(r.Input); err == nil {
			if err := util.RequireSpace(tempDir, size); err != nil {
				return hkerrors.NewIOError("not enough space for Dolby Vision intermediates", err)
			}
		}
	}

	run := p.workflow.NewRun(r.Input)
	defer func() { _ = run.Cleanup() }()

	if _, sdr := fa.Analysis.Approach.(content.SDR); !sdr {
		p.rep.StageProgress(reporter.StageProgress{Stage: "metadata", Message: "Extracting dynamic metadata"})
	}
	analysis, err := run.Extract(ctx, fa.Analysis)
	if err != nil {
		return err
	}
	if analysis.Approach.String() != fa.Analysis.Approach.String() {
		p.rep.Warning(fmt.Sprintf("Encoding approach changed to %s", analysis.Approach))
	}
	fa.Analysis = analysis

	extra, err := run.EncoderParams()
	if err != nil {
		return err
	}
	extracted := run.Extracted()
	r.HDR10Plus = extracted.HDR10Plus != nil
	if extracted.HasMetadata() {
		p.rep.Verbose(fmt.Sprintf("Dynamic metadata extracted (RPU: %v, HDR10+: %v)", extracted.RPU != nil, r.HDR10Plus))
	}
	target := fa.TargetProfile
	if extracted.RPU != nil {
		target = extracted.RPU.Profile
	}

	encodedPath := r.Output
	if run.NeedsPostProcessing() {
		encodedPath = p.workflow.TempOutputPath(r.Output)
	}
	params, err := ffmpeg.BuildEncodeParams(r.Input, encodedPath, p.cfg.Encoding, ffmpeg.Plan{
		Analysis:      analysis,
		TargetProfile: target,
		Extra:         extra,
	}, p.registry)
	if err != nil {
		return err
	}
	params.Duration = props.DurationSecs
	params.TotalFrames = props.TotalFrames
	r.Encode = params

	p.rep.EncodingConfig(reporter.EncodingConfigSummary{
		Encoder:     "x265 (libx265)",
		Preset:      params.Preset,
		Quality:     describeQuality(params),
		PixelFormat: params.PixelFormat,
		X265Params:  params.X265Params.String(),
	})
	p.rep.EncodingStarted(props.TotalFrames)
	err = p.encoder.Encode(ctx, params, func(pr ffmpeg.Progress) {
		p.rep.EncodingProgress(reporter.ProgressSnapshot{
			CurrentFrame: pr.CurrentFrame,
			TotalFrames:  pr.TotalFrames,
			Percent:      pr.Percent,
			Speed:        pr.Speed,
			FPS:          pr.FPS,
			ETA:          pr.ETA,
			Bitrate:      pr.Bitrate,
		})
	})
	if err != nil {
		return err
	}
	if err := run.MarkEncoded(); err != nil {
		return err
	}

	if run.NeedsPostProcessing() {
		p.rep.StageProgress(reporter.StageProgress{Stage: "post-processing", Message: "Injecting Dolby Vision RPU"})
	}
	outcome, err := run.Inject(ctx, encodedPath, r.Output, props.FrameRate)
	r.Outcome = outcome
	if err != nil {
		return err
	}
	if outcome == workflow.OutcomeFallback {
		p.rep.Warning("Dolby Vision RPU could not be injected; output keeps static HDR metadata only")
	}

	if p.validator != nil {
		r.Validation = p.validate(ctx, r, target)
	}

	inSize, _ := util.GetFileSize(r.Input)
	outSize, _ := util.GetFileSize(r.Output)
	p.rep.EncodingComplete(reporter.EncodingOutcome{
		InputFile:    util.GetFilename(r.Input),
		OutputFile:   util.GetFilename(r.Output),
		OriginalSize: inSize,
		EncodedSize:  outSize,
		VideoStream:  fmt.Sprintf("HEVC (libx265), %dx%d, %s", props.Width, props.Height, params.PixelFormat),
		Metadata:     describeMetadata(r),
		TotalTime:    time.Since(start),
		OutputPath:   r.Output,
	})
	return nil
}

func (p *Processor) validate(ctx context.Context, r *FileResult, target dolbyvision.Profile) *validation.Result {
	props := r.Analysis.Properties
	analysis := r.Analysis.Analysis

	expected := analysis.HDR.Format()
	if content.PreservesDolbyVision(analysis.Approach) && !expected.IsHDR() && target.IsHDR10Compatible() {
		expected = hdr.FormatHDR10
	}
	if _, sdr := analysis.Approach.(content.SDR); sdr {
		expected = hdr.FormatNone
	}
	dims := [2]uint32{props.Width, props.Height}
	duration := props.DurationSecs
	opts := validation.Options{
		ExpectedDimensions: &dims,
		ExpectedFormat:     &expected,
		ExpectHDR10Plus:    r.HDR10Plus,
	}
	if duration > 0 {
		opts.ExpectedDuration = &duration
	}
	if r.Outcome == workflow.OutcomeInjected {
		opts.ExpectedDVProfile = target
	}

	res, err := validation.Validate(ctx, p.validator, r.Output, opts)
	if err != nil {
		p.rep.ValidationComplete(reporter.ValidationSummary{
			Steps: []reporter.ValidationStep{{Name: "Validation", Details: err.Error()}},
		})
		logging.Warn("output validation could not run", "output", r.Output, "error", err)
		return nil
	}

	summary := reporter.ValidationSummary{Passed: res.IsValid()}
	for _, s := range res.GetValidationSteps() {
		summary.Steps = append(summary.Steps, reporter.ValidationStep{Name: s.Name, Passed: s.Passed, Details: s.Details})
	}
	p.rep.ValidationComplete(summary)
	if !summary.Passed {
		logging.Warn("output validation failed", "output", r.Output, "failures", res.GetFailures())
	}
	return res
}

// record stores the result in the journal and metrics. It runs even when
// ctx is cancelled so interrupted files are still accounted for.
func (p *Processor) record(ctx context.Context, r *FileResult) {
	approach := "unknown"
	entry := journal.Entry{
		Input:       r.Input,
		Output:      r.Output,
		Outcome:     r.Outcome.String(),
		Success:     r.Err == nil,
		InputBytes:  r.InputBytes,
		OutputBytes: r.OutputBytes,
		Duration:    r.Elapsed,
		FinishedAt:  time.Now(),
	}
	if r.Err != nil {
		entry.Error = r.Err.Error()
		entry.Outcome = "failed"
	}
	if fa := r.Analysis; fa != nil {
		approach = fa.Analysis.Approach.Kind()
		entry.Approach = fa.Analysis.Approach.String()
		entry.HDRFormat = fa.Analysis.HDR.Format().String()
		if fa.Analysis.DolbyVision.IsDolbyVision() {
			entry.DVProfile = fa.Analysis.DolbyVision.Profile.String()
		}
	}

	status := "ok"
	switch {
	case hkerrors.IsCancelled(r.Err):
		status = "cancelled"
	case r.Err != nil:
		status = "failed"
	}
	p.metrics.ObserveFile(approach, status, r.Elapsed, r.InputBytes, r.OutputBytes)

	if p.journal == nil {
		return
	}
	if _, err := p.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.Warn("failed to record run in journal", "input", r.Input, "error", err)
	}
}

// Summary converts fa for reporting.
func (fa *FileAnalysis) Summary() reporter.AnalysisSummary {
	a := fa.Analysis
	s := reporter.AnalysisSummary{
		Approach:          a.Approach.String(),
		HDRFormat:         a.HDR.Format().String(),
		Confidence:        a.HDR.Confidence,
		HDR10Plus:         a.HDR.Format() == hdr.FormatHDR10Plus,
		CRFAdjustment:     a.Adjustments.CRFAdjustment,
		BitrateMultiplier: a.Adjustments.BitrateMultiplier,
		RequiresVBV:       a.Adjustments.RequiresVBV,
	}
	if a.DolbyVision.IsDolbyVision() {
		s.DolbyVision = a.DolbyVision.Profile.String()
		s.TargetProfile = fa.TargetProfile.String()
	}
	return s
}

func describeQuality(p *ffmpeg.EncodeParams) string {
	if p.Mode == config.ModeCRF {
		return fmt.Sprintf("CRF %.1f", p.CRF)
	}
	return fmt.Sprintf("%s %d kbps", p.Mode, p.BitrateKbps)
}

func describeMetadata(r *FileResult) string {
	a := r.Analysis.Analysis
	desc := a.HDR.Format().String()
	if r.HDR10Plus {
		desc += " with dynamic metadata"
	}
	switch r.Outcome {
	case workflow.OutcomeInjected:
		desc += ", Dolby Vision RPU injected"
	case workflow.OutcomeFallback:
		desc += ", Dolby Vision dropped"
	}
	return desc
}

func suggestionFor(err error) string {
	if hkerrors.IsToolTimeout(err) {
		return "Increase tools.timeout_secs for large sources"
	}
	if kind, ok := hkerrors.ToolKind(err); ok {
		if kind == hkerrors.ToolNotFound {
			return "Install the missing tool or set its path in the configuration"
		}
		return "Re-run with --verbose for the tool's stderr output"
	}
	if hkerrors.IsKind(err, hkerrors.KindParse) {
		return "Check that the file is a valid video container"
	}
	if hkerrors.IsKind(err, hkerrors.KindValidation) {
		return "The source's HDR metadata is out of range; check it with ffprobe"
	}
	return ""
}
