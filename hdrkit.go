// Package hdrkit provides a Go library for HDR-preserving HEVC encodes.
//
// hdrkit classifies a source as SDR, HDR10, HDR10+, HLG or Dolby Vision,
// extracts its dynamic metadata with dovi_tool and hdr10plus_tool, encodes
// with libx265 and restores the Dolby Vision RPU afterwards. Every step that
// depends on an external tool degrades to a static HDR10 encode when the
// tool is missing or fails.
//
// Basic usage:
//
//	engine, err := hdrkit.New(
//	    hdrkit.WithTargetProfile("8.1"),
//	    hdrkit.WithWorkers(2),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := engine.Process(ctx, "input.mkv", "output/input.mkv", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Encoded %s (%s)\n", result.Output, result.Outcome)
package hdrkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/content"
	"github.com/five82/hdrkit/internal/discovery"
	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/ffmpeg"
	"github.com/five82/hdrkit/internal/ffprobe"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/hdr10plus"
	"github.com/five82/hdrkit/internal/journal"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/metrics"
	"github.com/five82/hdrkit/internal/processing"
	"github.com/five82/hdrkit/internal/reporter"
	"github.com/five82/hdrkit/internal/rpu"
	"github.com/five82/hdrkit/internal/tools"
	"github.com/five82/hdrkit/internal/util"
	"github.com/five82/hdrkit/internal/validation"
	"github.com/five82/hdrkit/internal/workflow"
)

// Version is the library and CLI version.
const Version = "0.1.0"

// staleTempAge is how old an intermediate file must be before a sweep
// removes it. Younger files may belong to a concurrent run.
const staleTempAge = 6 * time.Hour

// Re-exported types.
type (
	Config           = config.Config
	Reporter         = reporter.Reporter
	Analysis         = processing.FileAnalysis
	Result           = processing.FileResult
	BatchResult      = processing.BatchResult
	Report           = reporter.Report
	ToolAvailability = workflow.ToolAvailability
)

// Engine is the main entry point for HDR-preserving encodes.
type Engine struct {
	config  *config.Config
	metrics *metrics.Metrics

	// Tool availability is probed once per Engine; a probe cut short by a
	// cancelled context is not kept.
	toolsMu sync.Mutex
	avail   *workflow.ToolAvailability
	probe   func(context.Context, workflow.Toolset) workflow.ToolAvailability
}

// Option configures the engine.
type Option func(*config.Config)

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	cfg := config.NewConfig(".", ".", ".")

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{config: cfg, metrics: metrics.New(), probe: workflow.ProbeTools}, nil
}

// WithConfig replaces the defaults with cfg. Options after it still apply.
func WithConfig(cfg *Config) Option {
	return func(c *config.Config) {
		if cfg != nil {
			*c = *cfg
		}
	}
}

// WithWorkers sets how many files are encoded concurrently.
func WithWorkers(n int) Option {
	return func(c *config.Config) {
		c.Workers = n
	}
}

// WithTempDir sets where extracted metadata and intermediate encodes live.
func WithTempDir(dir string) Option {
	return func(c *config.Config) {
		c.TempDir = dir
	}
}

// WithDolbyVision enables or disables Dolby Vision preservation.
func WithDolbyVision(enabled bool) Option {
	return func(c *config.Config) {
		c.DolbyVision.Enabled = enabled
	}
}

// WithTargetProfile sets the single-layer profile Profile 7 sources are
// converted to ("8.1", "8.2" or "8.4").
func WithTargetProfile(profile string) Option {
	return func(c *config.Config) {
		c.DolbyVision.TargetProfile = profile
	}
}

// WithHDR10Plus enables or disables HDR10+ dynamic metadata handling.
func WithHDR10Plus(enabled bool) Option {
	return func(c *config.Config) {
		c.HDR10Plus.Enabled = enabled
	}
}

// WithNativeRPU lets x265 embed the Dolby Vision RPU during the encode
// instead of injecting it afterwards.
func WithNativeRPU() Option {
	return func(c *config.Config) {
		c.Encoding.NativeDVRPU = true
	}
}

// WithCRF sets the base CRF before content adjustments.
func WithCRF(crf float64) Option {
	return func(c *config.Config) {
		c.Encoding.Mode = config.ModeCRF
		c.Encoding.BaseCRF = crf
	}
}

// WithPreset sets the x265 preset.
func WithPreset(preset string) Option {
	return func(c *config.Config) {
		c.Encoding.Preset = preset
	}
}

// WithJournal records every processed file in the SQLite journal at path.
func WithJournal(path string) Option {
	return func(c *config.Config) {
		c.JournalPath = path
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return *e.config
}

// Analyze classifies input without encoding it. Only ffprobe and, when
// installed, MediaInfo are run.
func (e *Engine) Analyze(ctx context.Context, input string) (*Analysis, error) {
	p, err := e.open(ctx, e.config, nil, false)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.proc.Analyze(ctx, input)
}

// Process encodes a single file to output.
func (e *Engine) Process(ctx context.Context, input, output string, rep Reporter) (*Result, error) {
	p, err := e.open(ctx, e.config, rep, true)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	res, err := p.proc.Process(ctx, input, output)
	e.flushMetrics()
	return res, err
}

// ProcessBatch encodes inputs into outputDir.
func (e *Engine) ProcessBatch(ctx context.Context, inputs []string, outputDir string, rep Reporter) (*BatchResult, error) {
	return e.processBatch(ctx, inputs, outputDir, "", rep)
}

// ProcessInput discovers the video files at input, which may be a file or
// a directory, and encodes them. For a single file, output may name the
// target file instead of a directory.
func (e *Engine) ProcessInput(ctx context.Context, input, output string, rep Reporter) (*BatchResult, error) {
	found, err := discovery.Discover(input)
	if err != nil {
		return nil, err
	}
	outputDir, override := output, ""
	if len(found.Files) == 1 && !util.DirectoryExists(input) {
		info, err := util.ResolveOutputArg(found.Files[0], output)
		if err != nil {
			return nil, err
		}
		outputDir, override = info.OutputDir, info.FilenameOverride
	}
	return e.processBatch(ctx, found.Files, outputDir, override, rep)
}

func (e *Engine) processBatch(ctx context.Context, inputs []string, outputDir, override string, rep Reporter) (*BatchResult, error) {
	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	cfg := *e.config
	cfg.OutputDir = outputDir
	p, err := e.open(ctx, &cfg, rep, true)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	res, err := p.proc.ProcessBatch(ctx, inputs, outputDir, override)
	e.flushMetrics()
	return res, err
}

// Tools reports which external tools are usable. The first call probes
// them; later calls return the cached result.
func (e *Engine) Tools(ctx context.Context) ToolAvailability {
	ts := newToolset(e.config, tools.NewExecRunner(e.metrics))
	return e.toolAvailability(ctx, ts)
}

func (e *Engine) toolAvailability(ctx context.Context, ts toolset) ToolAvailability {
	e.toolsMu.Lock()
	defer e.toolsMu.Unlock()
	if e.avail != nil {
		return *e.avail
	}
	a := e.probe(ctx, ts.set())
	if ctx.Err() == nil {
		e.avail = &a
	}
	return a
}

// Sweep deletes leftover intermediate files in the temp directory.
func (e *Engine) Sweep() (int, error) {
	return workflow.Sweep(e.config.GetTempDir(), staleTempAge)
}

// WriteMetrics writes the Prometheus metrics collected so far to path in
// the node_exporter textfile format.
func (e *Engine) WriteMetrics(path string) error {
	return e.metrics.WriteToTextfile(path)
}

func (e *Engine) flushMetrics() {
	if e.config.MetricsFile == "" {
		return
	}
	if err := e.WriteMetrics(e.config.MetricsFile); err != nil {
		logging.Warn("failed to write metrics file", "path", e.config.MetricsFile, "error", err)
	}
}

// FindVideos finds video files in a directory.
func FindVideos(dir string) ([]string, error) {
	return discovery.FindVideoFiles(dir)
}

// toolset holds the external tool wrappers of one configuration.
type toolset struct {
	mediainfo *tools.MediaInfo
	dovi      *tools.DoviTool
	hdr10plus *tools.HDR10PlusTool
	mkvmerge  *tools.MKVMerge
	ffmpeg    *tools.FFmpeg
}

func newToolset(cfg *config.Config, runner tools.Runner) toolset {
	timeout := cfg.Tools.Timeout()
	return toolset{
		mediainfo: tools.NewMediaInfo(runner, cfg.Tools.MediaInfo, timeout),
		dovi:      tools.NewDoviTool(runner, cfg.Tools.DoviTool, timeout),
		hdr10plus: tools.NewHDR10PlusTool(runner, cfg.Tools.HDR10PlusTool, timeout),
		mkvmerge:  tools.NewMKVMerge(runner, cfg.Tools.MKVMerge, timeout),
		ffmpeg:    tools.NewFFmpeg(runner, cfg.Tools.FFmpeg, timeout),
	}
}

func (t toolset) set() workflow.Toolset {
	return workflow.Toolset{
		DoviTool:      t.dovi,
		HDR10PlusTool: t.hdr10plus,
		MKVMerge:      t.mkvmerge,
		FFmpeg:        t.ffmpeg,
	}
}

// pipeline is a wired Processor plus the resources it owns.
type pipeline struct {
	proc    *processing.Processor
	journal *journal.Journal
}

func (p *pipeline) Close() {
	if p.journal == nil {
		return
	}
	if err := p.journal.Close(); err != nil {
		logging.Warn("failed to close journal", "error", err)
	}
}

// open wires a Processor for cfg. Without encode only the analysis
// collaborators are created and no tool other than MediaInfo is probed.
func (e *Engine) open(ctx context.Context, cfg *config.Config, rep reporter.Reporter, encode bool) (*pipeline, error) {
	runner := tools.NewExecRunner(e.metrics)
	ts := newToolset(cfg, runner)
	prober := ffprobe.NewProber(cfg.Tools.FFprobe, cfg.Tools.Timeout())
	registry := hdr.NewRegistry()
	resolver := content.NewResolver(cfg.DolbyVision, registry)

	deps := processing.Deps{
		Config:   cfg,
		Prober:   prober,
		Resolver: resolver,
		Registry: registry,
		Metrics:  e.metrics,
		Reporter: rep,
	}
	if ts.mediainfo.Available(ctx) {
		deps.MediaInfo = ts.mediainfo
	} else {
		logging.Debug("mediainfo not available, skipping cross-check")
	}

	p := &pipeline{}
	if !encode {
		p.proc = processing.New(deps)
		return p, nil
	}

	avail := e.toolAvailability(ctx, ts)
	if !avail.FFmpeg {
		return nil, errors.New("ffmpeg is required for encoding but was not found")
	}

	tempDir := cfg.GetTempDir()
	if tempDir != "" {
		if err := util.EnsureDirectory(tempDir); err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
		if err := util.EnsureDirectoryWritable(tempDir); err != nil {
			return nil, err
		}
		if n, err := workflow.Sweep(tempDir, staleTempAge); err != nil {
			logging.Warn("temp sweep failed", "dir", tempDir, "error", err)
		} else if n > 0 {
			logging.Info("removed stale intermediate files", "dir", tempDir, "count", n)
		}
	}

	rpuOpts := rpu.Options{TempDir: tempDir, Dovi: ts.dovi, Demuxer: ts.ffmpeg}
	if avail.MKVMerge {
		rpuOpts.Remuxer = ts.mkvmerge
	}
	deps.Workflow = workflow.NewManager(workflow.Options{
		TempDir:          tempDir,
		Availability:     avail,
		Resolver:         resolver,
		DolbyVision:      cfg.DolbyVision,
		RPU:              rpu.NewManager(rpuOpts),
		HDR10Plus:        hdr10plus.NewManager(tempDir, ts.hdr10plus),
		ValidateWithPlot: cfg.HDR10Plus.ValidateWithPlot,
		NativeRPU:        cfg.Encoding.NativeDVRPU,
		Metrics:          e.metrics,
	})
	deps.Encoder = ffmpeg.NewEncoder(cfg.Tools.FFmpeg)
	deps.Validator = validation.NewDefaultAnalyzer(
		prober,
		hdr.NewDetector(cfg.HDR.ExtraDynamicLabels...),
		dolbyvision.NewAnalyzer(cfg.DolbyVision),
		deps.MediaInfo,
	)

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		p.journal = j
		deps.Journal = j
	}

	p.proc = processing.New(deps)
	return p, nil
}
