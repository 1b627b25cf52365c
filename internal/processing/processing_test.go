package processing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/dolbyvision"
	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/ffmpeg"
	"github.com/five82/hdrkit/internal/ffprobe"
	"github.com/five82/hdrkit/internal/hdr"
	"github.com/five82/hdrkit/internal/hdr10plus"
	"github.com/five82/hdrkit/internal/journal"
	"github.com/five82/hdrkit/internal/rpu"
	"github.com/five82/hdrkit/internal/validation"
	"github.com/five82/hdrkit/internal/workflow"
)

// fakeProber serves ffprobe fixtures keyed by input file name.
type fakeProber map[string]string

func (f fakeProber) Probe(_ context.Context, path string) (*ffprobe.Probe, error) {
	name, ok := f[filepath.Base(path)]
	if !ok {
		return nil, hkerrors.NewParseError("unreadable container", nil)
	}
	data, err := os.ReadFile(filepath.Join("..", "ffprobe", "testdata", name))
	if err != nil {
		return nil, err
	}
	return ffprobe.ParseProbeJSON(data)
}

type fakeEncoder struct {
	mu     sync.Mutex
	params []*ffmpeg.EncodeParams
	err    error
}

func (f *fakeEncoder) Encode(_ context.Context, p *ffmpeg.EncodeParams, cb ffmpeg.ProgressCallback) error {
	f.mu.Lock()
	f.params = append(f.params, p)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if cb != nil {
		cb(ffmpeg.Progress{CurrentFrame: p.TotalFrames, TotalFrames: p.TotalFrames, Percent: 100})
	}
	return os.WriteFile(p.Output, []byte("encoded"), 0o644)
}

// fakeValidator reports info for every output.
type fakeValidator struct{ info validation.OutputInfo }

func (f fakeValidator) Analyze(context.Context, string) (*validation.OutputInfo, error) {
	info := f.info
	return &info, nil
}

type fakeDovi struct{ injected int }

func (f *fakeDovi) ExtractRPU(_ context.Context, _, out string) error {
	return os.WriteFile(out, []byte("rpu"), 0o644)
}

func (f *fakeDovi) InjectRPU(_ context.Context, _, _, out string) error {
	f.injected++
	return os.WriteFile(out, []byte("hevc+rpu"), 0o644)
}

func (f *fakeDovi) Convert(_ context.Context, _, out, profile string) error {
	return os.WriteFile(out, []byte("rpu-"+profile), 0o644)
}

type fakeFFmpeg struct{}

func (fakeFFmpeg) ExtractAnnexB(_ context.Context, _, out string) error {
	return os.WriteFile(out, []byte("hevc"), 0o644)
}

func (fakeFFmpeg) Remux(_ context.Context, _, _, out string, _ float64) error {
	return os.WriteFile(out, []byte("remuxed-with-rpu"), 0o644)
}

type harness struct {
	cfg      *config.Config
	inDir    string
	outDir   string
	encoder  *fakeEncoder
	dovi     *fakeDovi
	journal  *journal.Journal
	workflow *workflow.Manager
}

func newHarness(t *testing.T, avail workflow.ToolAvailability) *harness {
	t.Helper()
	h := &harness{
		inDir:   t.TempDir(),
		outDir:  t.TempDir(),
		encoder: &fakeEncoder{},
		dovi:    &fakeDovi{},
	}
	h.cfg = config.NewConfig(h.inDir, h.outDir, "")
	tempDir := t.TempDir()
	h.cfg.TempDir = tempDir

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	h.journal = j

	h.workflow = workflow.NewManager(workflow.Options{
		TempDir:      tempDir,
		Availability: avail,
		DolbyVision:  h.cfg.DolbyVision,
		RPU:          rpu.NewManager(rpu.Options{TempDir: tempDir, Dovi: h.dovi, Demuxer: fakeFFmpeg{}}),
		HDR10Plus:    hdr10plus.NewManager(tempDir, nil),
	})
	return h
}

func (h *harness) input(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(h.inDir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 4096)), 0o644))
	return path
}

func (h *harness) processor(prober fakeProber, validator validation.MediaAnalyzer) *Processor {
	return New(Deps{
		Config:    h.cfg,
		Prober:    prober,
		Workflow:  h.workflow,
		Encoder:   h.encoder,
		Validator: validator,
		Journal:   h.journal,
	})
}

func sdrOutput() validation.OutputInfo {
	return validation.OutputInfo{
		CodecName:    "hevc",
		Width:        1920,
		Height:       1080,
		DurationSecs: 120.5,
		BitDepth:     10,
		HDR:          hdr.AnalysisResult{Metadata: hdr.SDRMetadata()},
		DolbyVision:  dolbyvision.None(),
	}
}

func TestAnalyzeClassifiesSources(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	p := h.processor(fakeProber{
		"sdr.mkv":     "video_1080p_sdr.json",
		"hdr10.mkv":   "video_4k_hdr10.json",
		"dv.mkv":      "video_dv_p81.json",
		"dynamic.mkv": "video_4k_hdr10plus.json",
	}, nil)

	tests := []struct {
		file     string
		approach string
		dv       bool
	}{
		{"sdr.mkv", "SDR", false},
		{"hdr10.mkv", "HDR (HDR10)", false},
		{"dynamic.mkv", "HDR (HDR10+)", false},
		{"dv.mkv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			fa, err := p.Analyze(context.Background(), filepath.Join(h.inDir, tt.file))
			require.NoError(t, err)
			require.NotNil(t, fa.Properties)
			if tt.dv {
				assert.True(t, fa.Analysis.DolbyVision.IsDolbyVision())
				assert.Equal(t, dolbyvision.Profile81, fa.TargetProfile)
				return
			}
			assert.Equal(t, tt.approach, fa.Analysis.Approach.String())
		})
	}
}

func TestAnalyzeHDR10PlusDisabled(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	h.cfg.HDR10Plus.Enabled = false
	p := h.processor(fakeProber{"dynamic.mkv": "video_4k_hdr10plus.json"}, nil)

	fa, err := p.Analyze(context.Background(), filepath.Join(h.inDir, "dynamic.mkv"))
	require.NoError(t, err)
	assert.Equal(t, hdr.FormatHDR10, fa.Analysis.HDR.Format())
}

func TestProcessSDRPassthrough(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	p := h.processor(fakeProber{"Movie.mkv": "video_1080p_sdr.json"}, fakeValidator{info: sdrOutput()})
	input := h.input(t, "Movie.mkv")
	output := filepath.Join(h.outDir, "Movie.mkv")

	res, err := p.Process(context.Background(), input, output)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, workflow.OutcomePassthrough, res.Outcome)
	assert.FileExists(t, output)
	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.IsValid(), res.Validation.GetFailures())

	require.Len(t, h.encoder.params, 1)
	assert.Equal(t, output, h.encoder.params[0].Output)
	assert.Equal(t, uint64(2890), h.encoder.params[0].TotalFrames)

	entries, err := h.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.Equal(t, "SDR", entries[0].Approach)
	assert.Equal(t, "passthrough", entries[0].Outcome)

	report := res.Report()
	assert.Equal(t, "passthrough", report.Outcome)
	assert.True(t, report.Validation.Passed)
}

func TestProcessDolbyVisionInjectsRPU(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{DoviTool: true, FFmpeg: true})
	out := validation.OutputInfo{
		CodecName:    "hevc",
		Width:        3840,
		Height:       2160,
		DurationSecs: 5400,
		BitDepth:     10,
		HDR:          hdr.AnalysisResult{Metadata: hdr.HDR10Metadata()},
		DolbyVision:  dolbyvision.Info{Profile: dolbyvision.Profile81, RPUPresent: true},
	}
	p := h.processor(fakeProber{"Movie.mkv": "video_dv_p81.json"}, fakeValidator{info: out})
	input := h.input(t, "Movie.mkv")
	output := filepath.Join(h.outDir, "Movie.mkv")

	res, err := p.Process(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeInjected, res.Outcome)
	assert.Equal(t, 1, h.dovi.injected)

	require.Len(t, h.encoder.params, 1)
	encoded := h.encoder.params[0]
	assert.NotEqual(t, output, encoded.Output)
	assert.False(t, encoded.X265Params.Has("dolby-vision-rpu"))
	assert.NoFileExists(t, encoded.Output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "remuxed-with-rpu", string(data))

	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.IsValid(), res.Validation.GetFailures())
	report := res.Report()
	assert.Equal(t, "8.1", report.DolbyVision)
	assert.Equal(t, "injected", report.Outcome)
}

func TestProcessDolbyVisionWithoutToolsFallsBack(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	p := h.processor(fakeProber{"Movie.mkv": "video_dv_p81.json"}, nil)
	input := h.input(t, "Movie.mkv")
	output := filepath.Join(h.outDir, "Movie.mkv")

	res, err := p.Process(context.Background(), input, output)
	require.NoError(t, err)
	assert.NotEqual(t, workflow.OutcomeInjected, res.Outcome)
	assert.Zero(t, h.dovi.injected)
	assert.FileExists(t, output)
	assert.Nil(t, res.Validation)
}

func TestProcessSkipsExistingOutput(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	p := h.processor(fakeProber{"Movie.mkv": "video_1080p_sdr.json"}, nil)
	input := h.input(t, "Movie.mkv")
	output := filepath.Join(h.outDir, "Movie.mkv")
	require.NoError(t, os.WriteFile(output, []byte("old"), 0o644))

	res, err := p.Process(context.Background(), input, output)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Succeeded())
	assert.Empty(t, h.encoder.params)
	assert.Equal(t, "skipped", res.Report().Outcome)
}

func TestProcessEncoderFailureIsRecorded(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	h.encoder.err = hkerrors.NewToolFailedError("ffmpeg", 1, "x265 [error]: bad params")
	p := h.processor(fakeProber{"Movie.mkv": "video_4k_hdr10.json"}, nil)
	input := h.input(t, "Movie.mkv")

	res, err := p.Process(context.Background(), input, filepath.Join(h.outDir, "Movie.mkv"))
	require.Error(t, err)
	assert.Equal(t, err, res.Err)

	entries, err := h.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "failed", entries[0].Outcome)
	assert.Contains(t, entries[0].Error, "ffmpeg")
	assert.Equal(t, "failed", res.Report().Outcome)
}

func TestProcessBatch(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	h.cfg.Workers = 2
	p := h.processor(fakeProber{
		"a.mkv": "video_1080p_sdr.json",
		"b.mkv": "video_1080p_sdr.json",
	}, fakeValidator{info: sdrOutput()})
	inputs := []string{h.input(t, "a.mkv"), h.input(t, "b.mkv"), h.input(t, "broken.mkv")}

	res, err := p.ProcessBatch(context.Background(), inputs, h.outDir, "")
	require.NoError(t, err)
	require.Len(t, res.Files, 3)
	assert.Equal(t, 2, res.Summary.SuccessfulCount)
	assert.Equal(t, 3, res.Summary.TotalFiles)
	assert.Equal(t, 2, res.Summary.ValidationPassedCount)

	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, inputs[2], failed[0].Input)
	assert.True(t, hkerrors.IsKind(failed[0].Err, hkerrors.KindParse))

	assert.FileExists(t, filepath.Join(h.outDir, "a.mkv"))
	assert.FileExists(t, filepath.Join(h.outDir, "b.mkv"))

	report := res.Report("test")
	require.Len(t, report.Files, 3)
	assert.Equal(t, "failed", report.Files[2].Outcome)
	assert.Equal(t, 2, report.Summary.SuccessfulCount)
}

func TestProcessBatchSingleFileOverride(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	p := h.processor(fakeProber{"a.mkv": "video_1080p_sdr.json"}, nil)

	_, err := p.ProcessBatch(context.Background(), []string{h.input(t, "a.mkv")}, h.outDir, "renamed.mkv")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(h.outDir, "renamed.mkv"))
}

func TestProcessBatchCancelled(t *testing.T) {
	h := newHarness(t, workflow.ToolAvailability{})
	p := h.processor(fakeProber{"a.mkv": "video_1080p_sdr.json"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.ProcessBatch(ctx, []string{h.input(t, "a.mkv")}, h.outDir, "")
	require.Error(t, err)
	assert.True(t, hkerrors.IsCancelled(err))
	require.Len(t, res.Files, 1)
	assert.True(t, hkerrors.IsCancelled(res.Files[0].Err))
	assert.Empty(t, h.encoder.params)
}
