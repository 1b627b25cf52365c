package rpu

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/hdrkit/internal/dolbyvision"
	hkerrors "github.com/five82/hdrkit/internal/errors"
)

// fakeDovi writes small placeholder outputs and records each call.
type fakeDovi struct {
	calls      []string
	extractErr error
	injectErr  error
	convertErr error
	emptyRPU   bool
	// injectInputExisted records whether the Annex-B input was present.
	injectInputExisted bool
}

func (f *fakeDovi) ExtractRPU(_ context.Context, input, out string) error {
	f.calls = append(f.calls, "extract-rpu")
	if f.extractErr != nil {
		return f.extractErr
	}
	data := []byte("rpu")
	if f.emptyRPU {
		data = nil
	}
	return os.WriteFile(out, data, 0o644)
}

func (f *fakeDovi) InjectRPU(_ context.Context, hevcIn, rpu, out string) error {
	f.calls = append(f.calls, "inject-rpu")
	_, err := os.Stat(hevcIn)
	f.injectInputExisted = err == nil
	if f.injectErr != nil {
		return f.injectErr
	}
	return os.WriteFile(out, []byte("hevc+rpu"), 0o644)
}

func (f *fakeDovi) Convert(_ context.Context, input, out, profile string) error {
	f.calls = append(f.calls, "convert:"+profile)
	if f.convertErr != nil {
		return f.convertErr
	}
	return os.WriteFile(out, []byte("converted"), 0o644)
}

type fakeFFmpeg struct {
	calls      []string
	extractErr error
	remuxErr   error
	remuxFPS   float64
}

func (f *fakeFFmpeg) ExtractAnnexB(_ context.Context, container, out string) error {
	f.calls = append(f.calls, "annexb")
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(out, []byte("hevc"), 0o644)
}

func (f *fakeFFmpeg) Remux(_ context.Context, hevc, reference, out string, fps float64) error {
	f.calls = append(f.calls, "ffmpeg-remux")
	f.remuxFPS = fps
	if f.remuxErr != nil {
		_ = os.WriteFile(out, []byte("partial"), 0o644)
		return f.remuxErr
	}
	return os.WriteFile(out, []byte("final"), 0o644)
}

type fakeMKVMerge struct {
	calls int
	err   error
}

func (f *fakeMKVMerge) Remux(_ context.Context, hevc, reference, out string, fps float64) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(out, []byte("final-mkvmerge"), 0o644)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var p81 = dolbyvision.Info{Profile: dolbyvision.Profile81, RPUPresent: true}

func TestExtract(t *testing.T) {
	tmp := t.TempDir()
	m := NewManager(Options{TempDir: tmp, Dovi: &fakeDovi{}})

	md, err := m.Extract(context.Background(), "/media/Film.mkv", p81)
	require.NoError(t, err)
	require.NotNil(t, md)

	assert.Equal(t, dolbyvision.Profile81, md.Profile)
	assert.True(t, md.Extracted)
	assert.EqualValues(t, 3, md.Size)
	assert.Equal(t, tmp, filepath.Dir(md.Path()))
	assert.True(t, strings.HasPrefix(filepath.Base(md.Path()), "Film_rpu_"))
	assert.True(t, md.Usable())

	require.NoError(t, md.Release())
	assert.NoFileExists(t, md.Path())
	assert.False(t, md.Usable())
	require.NoError(t, md.Release())
}

func TestExtractSkipsWithoutRPU(t *testing.T) {
	dovi := &fakeDovi{}
	m := NewManager(Options{TempDir: t.TempDir(), Dovi: dovi})

	md, err := m.Extract(context.Background(), "in.mkv", dolbyvision.None())
	assert.NoError(t, err)
	assert.Nil(t, md)
	assert.Empty(t, dovi.calls)
}

func TestExtractWithoutTool(t *testing.T) {
	m := NewManager(Options{TempDir: t.TempDir()})
	_, err := m.Extract(context.Background(), "in.mkv", p81)
	kind, ok := hkerrors.ToolKind(err)
	require.True(t, ok)
	assert.Equal(t, hkerrors.ToolNotFound, kind)
}

func TestExtractFailureLeavesNoFile(t *testing.T) {
	tests := []struct {
		name string
		dovi *fakeDovi
	}{
		{"tool error", &fakeDovi{extractErr: hkerrors.NewToolFailedError("dovi_tool", 1, "bad")}},
		{"empty rpu", &fakeDovi{emptyRPU: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			m := NewManager(Options{TempDir: tmp, Dovi: tt.dovi})
			md, err := m.Extract(context.Background(), "in.mkv", p81)
			require.Error(t, err)
			assert.Nil(t, md)
			assert.Empty(t, listDir(t, tmp))
		})
	}
}

func extracted(t *testing.T, m *Manager) *Metadata {
	t.Helper()
	md, err := m.Extract(context.Background(), "source.mkv", p81)
	require.NoError(t, err)
	return md
}

func TestInjectPrefersMKVMerge(t *testing.T) {
	tmp := t.TempDir()
	dovi, ff, mkv := &fakeDovi{}, &fakeFFmpeg{}, &fakeMKVMerge{}
	m := NewManager(Options{TempDir: tmp, Dovi: dovi, Demuxer: ff, Remuxer: mkv})
	md := extracted(t, m)
	defer md.Release()

	encoded := filepath.Join(tmp, "temp_encode_out.mkv")
	require.NoError(t, os.WriteFile(encoded, []byte("encoded"), 0o644))
	output := filepath.Join(t.TempDir(), "out.mkv")

	require.NoError(t, m.Inject(context.Background(), encoded, md, output, 23.976))

	assert.Equal(t, []string{"annexb"}, ff.calls)
	assert.Equal(t, 1, mkv.calls)
	assert.True(t, dovi.injectInputExisted)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "final-mkvmerge", string(data))

	// Only the encode and the RPU remain: both transitional streams are gone.
	assert.ElementsMatch(t, []string{"temp_encode_out.mkv", filepath.Base(md.Path())}, listDir(t, tmp))
}

func TestInjectFallsBackToFFmpegRemux(t *testing.T) {
	tmp := t.TempDir()
	ff := &fakeFFmpeg{}
	m := NewManager(Options{TempDir: tmp, Dovi: &fakeDovi{}, Demuxer: ff})
	md := extracted(t, m)
	defer md.Release()

	output := filepath.Join(t.TempDir(), "out.mkv")
	require.NoError(t, m.Inject(context.Background(), "encoded.mkv", md, output, 25))
	assert.Equal(t, []string{"annexb", "ffmpeg-remux"}, ff.calls)
	assert.Equal(t, 25.0, ff.remuxFPS)
}

func TestInjectRetriesFailedMKVMergeWithFFmpeg(t *testing.T) {
	ff := &fakeFFmpeg{}
	mkv := &fakeMKVMerge{err: errors.New("mkvmerge exploded")}
	m := NewManager(Options{TempDir: t.TempDir(), Dovi: &fakeDovi{}, Demuxer: ff, Remuxer: mkv})
	md := extracted(t, m)
	defer md.Release()

	output := filepath.Join(t.TempDir(), "out.mkv")
	require.NoError(t, m.Inject(context.Background(), "encoded.mkv", md, output, 24))
	assert.Equal(t, 1, mkv.calls)
	assert.Equal(t, []string{"annexb", "ffmpeg-remux"}, ff.calls)
}

func TestInjectFailureCleansUp(t *testing.T) {
	toolErr := hkerrors.NewToolFailedError("fake", 1, "boom")
	tests := []struct {
		name string
		dovi *fakeDovi
		ff   *fakeFFmpeg
		step string
	}{
		{"annexb", &fakeDovi{}, &fakeFFmpeg{extractErr: toolErr}, "extract HEVC bitstream"},
		{"inject", &fakeDovi{injectErr: toolErr}, &fakeFFmpeg{}, "inject RPU"},
		{"remux", &fakeDovi{}, &fakeFFmpeg{remuxErr: toolErr}, "remux HEVC with RPU"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			m := NewManager(Options{TempDir: tmp, Dovi: tt.dovi, Demuxer: tt.ff})
			md := extracted(t, m)
			defer md.Release()

			outDir := t.TempDir()
			err := m.Inject(context.Background(), "encoded.mkv", md, filepath.Join(outDir, "out.mkv"), 24)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.step)
			assert.True(t, hkerrors.IsKind(err, hkerrors.KindTool))

			assert.Equal(t, []string{filepath.Base(md.Path())}, listDir(t, tmp))
			assert.Empty(t, listDir(t, outDir))
		})
	}
}

func TestInjectRejectsUnusableInput(t *testing.T) {
	m := NewManager(Options{TempDir: t.TempDir(), Dovi: &fakeDovi{}, Demuxer: &fakeFFmpeg{}})

	assert.Error(t, m.Inject(context.Background(), "e.mkv", nil, "o.mkv", 24))

	md := extracted(t, m)
	assert.Error(t, m.Inject(context.Background(), "e.mkv", md, "o.mkv", 0))

	require.NoError(t, md.Release())
	assert.Error(t, m.Inject(context.Background(), "e.mkv", md, "o.mkv", 24))
}

func TestConvertProfile(t *testing.T) {
	tmp := t.TempDir()
	dovi := &fakeDovi{}
	m := NewManager(Options{TempDir: tmp, Dovi: dovi})
	p7 := dolbyvision.Info{Profile: dolbyvision.Profile7, RPUPresent: true, ELPresent: true}

	src, err := m.Extract(context.Background(), "in.mkv", p7)
	require.NoError(t, err)

	converted, err := m.ConvertProfile(context.Background(), src, dolbyvision.Profile81)
	require.NoError(t, err)
	defer converted.Release()

	assert.Equal(t, dolbyvision.Profile81, converted.Profile)
	assert.Contains(t, dovi.calls, "convert:8.1")
	assert.NoFileExists(t, src.Path())
	assert.FileExists(t, converted.Path())
	name := filepath.Base(converted.Path())
	assert.True(t, strings.HasPrefix(name, "in_rpu_"), name)
	assert.Equal(t, 1, strings.Count(name, "_rpu_"), name)

	same, err := m.ConvertProfile(context.Background(), converted, dolbyvision.Profile81)
	require.NoError(t, err)
	assert.Same(t, converted, same)

	_, err = m.ConvertProfile(context.Background(), converted, dolbyvision.Profile7)
	assert.Error(t, err)
}

func TestConvertProfileFailureKeepsSource(t *testing.T) {
	tmp := t.TempDir()
	m := NewManager(Options{TempDir: tmp, Dovi: &fakeDovi{convertErr: errors.New("nope")}})
	src, err := m.Extract(context.Background(), "in.mkv", dolbyvision.Info{Profile: dolbyvision.Profile7, RPUPresent: true})
	require.NoError(t, err)
	defer src.Release()

	_, err = m.ConvertProfile(context.Background(), src, dolbyvision.Profile81)
	require.Error(t, err)
	assert.FileExists(t, src.Path())
	assert.Equal(t, []string{filepath.Base(src.Path())}, listDir(t, tmp))
}
