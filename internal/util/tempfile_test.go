package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnsureDirectoryWritable(t *testing.T) {
	tmpDir := t.TempDir()
	if err := EnsureDirectoryWritable(tmpDir); err != nil {
		t.Errorf("Expected no error for writable dir, got %v", err)
	}

	if err := EnsureDirectoryWritable("/nonexistent/directory/path"); err == nil {
		t.Error("Expected error for non-existent directory")
	}

	tmpFile := filepath.Join(tmpDir, "testfile")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDirectoryWritable(tmpFile); err == nil {
		t.Error("Expected error for file instead of directory")
	}

	entries, _ := os.ReadDir(tmpDir)
	if len(entries) != 1 {
		t.Errorf("probe file left behind: %v", entries)
	}
}

func TestTempFileNames(t *testing.T) {
	tests := []struct {
		name   string
		got    string
		prefix string
		suffix string
	}{
		{"rpu", RPUFileName("/media/Movie.2023.mkv"), "Movie.2023_rpu_", ".bin"},
		{"hdr10plus", HDR10PlusFileName("/media/Movie.mkv"), "Movie_hdr10plus_metadata_", ".json"},
		{"hevc", HEVCFileName(), "temp_hevc_", ".hevc"},
		{"hevc with rpu", HEVCWithRPUFileName(), "temp_hevc_rpu_", ".hevc"},
		{"encode", EncodeTempFileName("/out/Movie.mkv"), "temp_encode_Movie.mkv", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasPrefix(tt.got, tt.prefix) || !strings.HasSuffix(tt.got, tt.suffix) {
				t.Errorf("name = %q, want %q...%q", tt.got, tt.prefix, tt.suffix)
			}
			if !IsTempFileName(tt.got) {
				t.Errorf("IsTempFileName(%q) = false", tt.got)
			}
		})
	}

	if RPUFileName("a.mkv") == RPUFileName("a.mkv") {
		t.Error("RPU names should be unique per call")
	}
}

func TestIsTempFileNameRejectsUserFiles(t *testing.T) {
	for _, name := range []string{
		"Movie.mkv",
		"Movie_rpu.bin",
		"temp_hevc_notauuid.hevc",
		"notes_hdr10plus_metadata_.json",
	} {
		if IsTempFileName(name) {
			t.Errorf("IsTempFileName(%q) = true, want false", name)
		}
	}
}

func TestSweepTempFiles(t *testing.T) {
	dir := t.TempDir()

	stale := []string{RPUFileName("a.mkv"), HEVCFileName(), EncodeTempFileName("b.mkv")}
	keep := []string{"a.mkv", "notes.txt"}
	for _, name := range append(append([]string{}, stale...), keep...) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := SweepTempFiles(dir, 0)
	if err != nil {
		t.Fatalf("SweepTempFiles() error = %v", err)
	}
	if n != len(stale) {
		t.Errorf("removed %d files, want %d", n, len(stale))
	}
	for _, name := range keep {
		if !FileExists(filepath.Join(dir, name)) {
			t.Errorf("%s should not be removed", name)
		}
	}
}

func TestSweepTempFilesRespectsAge(t *testing.T) {
	dir := t.TempDir()
	fresh := filepath.Join(dir, HDR10PlusFileName("a.mkv"))
	if err := os.WriteFile(fresh, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := SweepTempFiles(dir, time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("SweepTempFiles() = %d, %v; want 0, nil", n, err)
	}

	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(fresh, old, old); err != nil {
		t.Fatal(err)
	}
	n, err = SweepTempFiles(dir, time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("SweepTempFiles() = %d, %v; want 1, nil", n, err)
	}
}

func TestSweepTempFilesMissingDir(t *testing.T) {
	n, err := SweepTempFiles("/nonexistent/hdrkit/dir", 0)
	if err != nil || n != 0 {
		t.Errorf("SweepTempFiles(missing) = %d, %v; want 0, nil", n, err)
	}
}

func TestTempFileRelease(t *testing.T) {
	dir := t.TempDir()
	tf := NewTempFileIn(dir, RPUFileName("a.mkv"))
	if tf.Exists() {
		t.Fatal("temp file should not exist before it is written")
	}
	if err := os.WriteFile(tf.Path(), []byte("rpu"), 0644); err != nil {
		t.Fatal(err)
	}
	if !tf.Exists() {
		t.Fatal("temp file should exist after write")
	}

	if err := tf.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if tf.Exists() || !tf.Released() {
		t.Error("file should be gone and marked released")
	}
	if err := tf.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}

	var nilFile *TempFile
	if err := nilFile.Release(); err != nil || nilFile.Path() != "" {
		t.Error("nil TempFile should be inert")
	}
}

func TestTempFileReleaseRetriesAfterFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), HEVCFileName())
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}
	inner := filepath.Join(path, "x")
	if err := os.WriteFile(inner, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tf := NewTempFile(path)
	if err := tf.Release(); err == nil {
		t.Fatal("Release() of a non-empty directory should fail")
	}
	if tf.Released() {
		t.Error("failed Release() must not mark the file released")
	}

	if err := os.Remove(inner); err != nil {
		t.Fatal(err)
	}
	if err := tf.Release(); err != nil {
		t.Fatalf("retried Release() error = %v", err)
	}
	if !tf.Released() || tf.Exists() {
		t.Error("file should be gone and marked released after retry")
	}
}

func TestConvertedRPUFileName(t *testing.T) {
	first := RPUFileName("/videos/Movie.2020.mkv")
	converted := ConvertedRPUFileName(filepath.Join("/tmp", first))

	if !strings.HasPrefix(converted, "Movie.2020_rpu_") || !strings.HasSuffix(converted, ".bin") {
		t.Errorf("ConvertedRPUFileName() = %q, want Movie.2020_rpu_<uuid>.bin", converted)
	}
	if n := strings.Count(converted, "_rpu_"); n != 1 {
		t.Errorf("ConvertedRPUFileName() = %q has %d _rpu_ suffixes, want 1", converted, n)
	}
	if converted == first {
		t.Error("converted RPU must get a fresh name")
	}
	if !IsTempFileName(converted) {
		t.Errorf("IsTempFileName(%q) = false", converted)
	}

	if got := ConvertedRPUFileName("/tmp/custom_rpu_notauuid.bin"); !strings.HasPrefix(got, "custom_rpu_notauuid_rpu_") {
		t.Errorf("ConvertedRPUFileName(non-uuid suffix) = %q", got)
	}
}
