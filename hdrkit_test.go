package hdrkit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/hdrkit/internal/config"
	"github.com/five82/hdrkit/internal/workflow"
)

func TestNewAppliesOptions(t *testing.T) {
	e, err := New(
		WithWorkers(3),
		WithTargetProfile("8.4"),
		WithHDR10Plus(false),
		WithNativeRPU(),
		WithCRF(18),
		WithPreset("medium"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg := e.Config()
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.DolbyVision.TargetProfile != "8.4" {
		t.Errorf("TargetProfile = %q, want 8.4", cfg.DolbyVision.TargetProfile)
	}
	if cfg.HDR10Plus.Enabled {
		t.Error("HDR10+ should be disabled")
	}
	if !cfg.Encoding.NativeDVRPU {
		t.Error("NativeDVRPU should be enabled")
	}
	if cfg.Encoding.BaseCRF != 18 || cfg.Encoding.Preset != "medium" {
		t.Errorf("Encoding = %+v", cfg.Encoding)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"crf over max", WithCRF(60), config.ErrInvalidCRF},
		{"unknown target profile", WithTargetProfile("5"), config.ErrInvalidTargetProfile},
		{"zero workers", WithWorkers(0), config.ErrInvalidWorkers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWithConfigKeepsLaterOptions(t *testing.T) {
	base := config.NewConfig("in", "out", "logs")
	base.Workers = 4
	e, err := New(WithConfig(base), WithWorkers(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg := e.Config()
	if cfg.InputDir != "in" || cfg.Workers != 2 {
		t.Errorf("config = %+v", cfg)
	}
	if base.Workers != 4 {
		t.Error("WithConfig must not modify the caller's config")
	}
}

func TestFindVideos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mkv", "a.mp4", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := FindVideos(dir)
	if err != nil {
		t.Fatalf("FindVideos() error = %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.mp4" {
		t.Errorf("FindVideos() = %v", files)
	}
}

func TestToolsProbedOncePerEngine(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	calls := 0
	e.probe = func(context.Context, workflow.Toolset) workflow.ToolAvailability {
		calls++
		return workflow.ToolAvailability{FFmpeg: true, DoviTool: true}
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	e.Tools(cancelled)
	if calls != 1 {
		t.Fatalf("probe calls = %d, want 1", calls)
	}

	for i := 0; i < 3; i++ {
		got := e.Tools(context.Background())
		if !got.FFmpeg || !got.DoviTool {
			t.Errorf("Tools() = %+v, want ffmpeg and dovi_tool available", got)
		}
	}
	if calls != 2 {
		t.Errorf("probe calls = %d, want 2 (cancelled probe is not cached)", calls)
	}
}
