package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hkerrors "github.com/five82/hdrkit/internal/errors"
)

// fakeRunner records invocations and replies from a script of responses.
type fakeRunner struct {
	calls   []Invocation
	respond func(inv Invocation) (Output, error)
}

func (f *fakeRunner) Run(_ context.Context, inv Invocation) (Output, error) {
	f.calls = append(f.calls, inv)
	if f.respond == nil {
		return Output{}, nil
	}
	return f.respond(inv)
}

func (f *fakeRunner) last(t *testing.T) Invocation {
	t.Helper()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

func stdout(s string) func(Invocation) (Output, error) {
	return func(Invocation) (Output, error) { return Output{Stdout: s}, nil }
}

func TestDoviToolAvailable(t *testing.T) {
	tests := []struct {
		name string
		help string
		want bool
	}{
		{"both subcommands", "USAGE:\n  extract-rpu\n  inject-rpu\n  convert\n", true},
		{"extract only", "USAGE:\n  extract-rpu\n", false},
		{"unrelated binary", "usage: something else", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{respond: stdout(tt.help)}
			d := NewDoviTool(r, "", time.Minute)
			assert.Equal(t, tt.want, d.Available(context.Background()))
			assert.Equal(t, []string{"--help"}, r.last(t).Args)
			assert.Equal(t, "dovi_tool", r.last(t).Path)
		})
	}
}

func TestDoviToolAvailableRunFailure(t *testing.T) {
	r := &fakeRunner{respond: func(Invocation) (Output, error) {
		return Output{}, hkerrors.NewToolFailedError("dovi_tool", 2, "boom")
	}}
	assert.False(t, NewDoviTool(r, "/opt/dovi_tool", time.Minute).Available(context.Background()))
}

func TestDoviToolCommands(t *testing.T) {
	r := &fakeRunner{}
	d := NewDoviTool(r, "/usr/bin/dovi_tool", time.Minute)
	ctx := context.Background()

	require.NoError(t, d.ExtractRPU(ctx, "in.mkv", "rpu.bin"))
	inv := r.last(t)
	assert.Equal(t, []string{"extract-rpu", "in.mkv", "-o", "rpu.bin"}, inv.Args)
	assert.Equal(t, "rpu.bin", inv.ExpectOutput)
	assert.Equal(t, time.Minute, inv.Timeout)

	require.NoError(t, d.InjectRPU(ctx, "video.hevc", "rpu.bin", "out.hevc"))
	assert.Equal(t, []string{"inject-rpu", "-i", "video.hevc", "--rpu-in", "rpu.bin", "-o", "out.hevc"}, r.last(t).Args)

	require.NoError(t, d.Convert(ctx, "rpu.bin", "rpu81.bin", "8.1"))
	inv = r.last(t)
	assert.Equal(t, []string{"convert", "rpu.bin", "-o", "rpu81.bin", "--profile", "8.1"}, inv.Args)
	assert.Equal(t, 2*time.Minute, inv.Timeout)
}

func TestDoviToolVersion(t *testing.T) {
	r := &fakeRunner{respond: stdout("dovi_tool 2.1.2\n")}
	v, err := NewDoviTool(r, "", time.Minute).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dovi_tool 2.1.2", v)
}

func TestHDR10PlusToolCommands(t *testing.T) {
	r := &fakeRunner{}
	h := NewHDR10PlusTool(r, "", time.Minute)
	ctx := context.Background()

	require.NoError(t, h.Extract(ctx, "in.mkv", "meta.json"))
	assert.Equal(t, []string{"extract", "in.mkv", "-o", "meta.json"}, r.last(t).Args)

	require.NoError(t, h.Inject(ctx, "in.hevc", "meta.json", "out.hevc"))
	assert.Equal(t, []string{"inject", "-i", "in.hevc", "-j", "meta.json", "-o", "out.hevc"}, r.last(t).Args)

	require.NoError(t, h.Remove(ctx, "in.hevc", "clean.hevc"))
	assert.Equal(t, []string{"remove", "-i", "in.hevc", "-o", "clean.hevc"}, r.last(t).Args)

	require.NoError(t, h.Plot(ctx, "meta.json", "plot.png"))
	assert.Equal(t, []string{"plot", "meta.json", "-o", "plot.png"}, r.last(t).Args)
	assert.Equal(t, "plot.png", r.last(t).ExpectOutput)
}

func TestHDR10PlusToolExtractNoMetadata(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		noMetadata bool
	}{
		{"silent exit 1", hkerrors.NewToolFailedError("hdr10plus_tool", 1, ""), true},
		{"whitespace stderr", hkerrors.NewToolFailedError("hdr10plus_tool", 1, " \n"), true},
		{"exit 1 with message", hkerrors.NewToolFailedError("hdr10plus_tool", 1, "invalid input"), false},
		{"exit 2", hkerrors.NewToolFailedError("hdr10plus_tool", 2, ""), false},
		{"timeout", hkerrors.NewToolError(&hkerrors.ToolError{Tool: "hdr10plus_tool", Kind: hkerrors.ToolTimeout}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{respond: func(Invocation) (Output, error) { return Output{}, tt.err }}
			err := NewHDR10PlusTool(r, "", time.Minute).Extract(context.Background(), "in.mkv", "meta.json")
			require.Error(t, err)
			assert.Equal(t, tt.noMetadata, hkerrors.IsNoDynamicMetadata(err))
		})
	}
}

func TestHDR10PlusToolExtractScript(t *testing.T) {
	script := writeScript(t, `exit 1`)
	h := NewHDR10PlusTool(NewExecRunner(nil), script, 5*time.Second)
	err := h.Extract(context.Background(), "in.mkv", filepath.Join(t.TempDir(), "meta.json"))
	assert.True(t, hkerrors.IsNoDynamicMetadata(err), "got %v", err)
}

func TestHDR10PlusToolAvailable(t *testing.T) {
	r := &fakeRunner{respond: stdout("Commands:\n  extract\n  inject\n")}
	assert.True(t, NewHDR10PlusTool(r, "", time.Minute).Available(context.Background()))
}

func TestMKVMergeRemux(t *testing.T) {
	r := &fakeRunner{}
	m := NewMKVMerge(r, "", time.Minute)
	require.NoError(t, m.Remux(context.Background(), "video.hevc", "source.mkv", "out.mkv", 24000.0/1001.0))

	inv := r.last(t)
	assert.Equal(t, "mkvmerge", inv.Path)
	assert.Equal(t, []string{
		"-o", "out.mkv",
		"--default-duration", "0:23.976fps",
		"--no-audio", "--no-subtitles", "--no-chapters",
		"video.hevc",
		"-D",
		"source.mkv",
	}, inv.Args)
	assert.Equal(t, "out.mkv", inv.ExpectOutput)
}

func TestMKVMergeAvailable(t *testing.T) {
	r := &fakeRunner{respond: stdout("mkvmerge v80.0 ('Roundabout') 64-bit\n")}
	m := NewMKVMerge(r, "", time.Minute)
	assert.True(t, m.Available(context.Background()))
	assert.Equal(t, []string{"--version"}, r.last(t).Args)
}

func TestFFmpegCommands(t *testing.T) {
	r := &fakeRunner{}
	f := NewFFmpeg(r, "/usr/local/bin/ffmpeg", time.Minute)
	ctx := context.Background()

	require.NoError(t, f.ExtractAnnexB(ctx, "in.mkv", "video.hevc"))
	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "in.mkv", "-c:v", "copy", "-bsf:v", "hevc_mp4toannexb", "-f", "hevc", "-y", "video.hevc",
	}, r.last(t).Args)

	require.NoError(t, f.Remux(ctx, "video.hevc", "in.mkv", "out.mkv", 25))
	args := r.last(t).Args
	assert.Contains(t, args, "+genpts")
	assert.Subset(t, args, []string{"0:v:0", "1:a?", "1:s?", "1:t?", "1:d?", "-map_chapters"})
	assert.Equal(t, "out.mkv", args[len(args)-1])
	assert.Equal(t, "/usr/local/bin/ffmpeg", f.Path())
}

func TestDoviToolScriptEndToEnd(t *testing.T) {
	// The fake writes the file named after -o.
	script := writeScript(t, `while [ $# -gt 0 ]; do if [ "$1" = "-o" ]; then shift; echo rpu > "$1"; fi; shift; done`)
	out := filepath.Join(t.TempDir(), "rpu.bin")

	d := NewDoviTool(NewExecRunner(nil), script, 5*time.Second)
	require.NoError(t, d.ExtractRPU(context.Background(), "in.mkv", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "rpu\n", string(data))
}

func TestMediaInfo(t *testing.T) {
	r := &fakeRunner{respond: stdout("MediaInfo Command line,\nMediaInfoLib - v24.06\n")}
	m := NewMediaInfo(r, "", time.Minute)
	assert.True(t, m.Available(context.Background()))
	assert.Equal(t, []string{"--Version"}, r.last(t).Args)

	r.respond = stdout(`{"media":{"track":[]}}`)
	data, err := m.JSON(context.Background(), "/in/movie.mkv")
	require.NoError(t, err)
	assert.JSONEq(t, `{"media":{"track":[]}}`, string(data))
	assert.Equal(t, []string{"--Output=JSON", "/in/movie.mkv"}, r.last(t).Args)
	assert.Equal(t, "mediainfo", r.last(t).Name)
}
