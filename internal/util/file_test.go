package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFileStem(t *testing.T) {
	tests := map[string]string{
		"/media/Movie.2023.mkv": "Movie.2023",
		"clip.hevc":             "clip",
		"noext":                 "noext",
	}
	for in, want := range tests {
		if got := GetFileStem(in); got != want {
			t.Errorf("GetFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsVideoFile(t *testing.T) {
	dir := t.TempDir()
	mkv := filepath.Join(dir, "a.MKV")
	txt := filepath.Join(dir, "a.txt")
	for _, p := range []string{mkv, txt} {
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	if !IsVideoFile(mkv) {
		t.Error("upper-case .MKV should be a video file")
	}
	if IsVideoFile(txt) {
		t.Error(".txt should not be a video file")
	}
	if IsVideoFile(dir) {
		t.Error("directories are not video files")
	}
}

func TestNonEmptyFileSize(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.bin")
	full := filepath.Join(dir, "full.bin")
	_ = os.WriteFile(empty, nil, 0644)
	_ = os.WriteFile(full, []byte("abcd"), 0644)

	if _, err := NonEmptyFileSize(empty); err == nil {
		t.Error("empty file should fail")
	}
	if _, err := NonEmptyFileSize(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing file should fail")
	}
	if n, err := NonEmptyFileSize(full); err != nil || n != 4 {
		t.Errorf("NonEmptyFileSize(full) = %d, %v", n, err)
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x")
	_ = os.WriteFile(p, nil, 0644)

	if err := RemoveIfExists(p); err != nil {
		t.Fatalf("RemoveIfExists() error = %v", err)
	}
	if err := RemoveIfExists(p); err != nil {
		t.Errorf("RemoveIfExists(missing) error = %v", err)
	}
	if err := RemoveIfExists(""); err != nil {
		t.Errorf("RemoveIfExists(\"\") error = %v", err)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mkv")
	dst := filepath.Join(dir, "sub", "dst.mkv")
	_ = os.WriteFile(src, []byte("video"), 0644)
	_ = os.MkdirAll(filepath.Dir(dst), 0755)

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile() error = %v", err)
	}
	if FileExists(src) {
		t.Error("source should be gone")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "video" {
		t.Errorf("dst = %q, %v", data, err)
	}
}

func TestResolveOutputArg(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.mkv")
	_ = os.WriteFile(input, nil, 0644)

	info, err := ResolveOutputArg(input, "/out/custom.mkv")
	if err != nil {
		t.Fatal(err)
	}
	if info.OutputDir != "/out" || info.FilenameOverride != "custom.mkv" {
		t.Errorf("got %+v", info)
	}

	if _, err := ResolveOutputArg(input, "/out/custom.mp4"); err == nil {
		t.Error("non-mkv output file should fail")
	}

	info, err = ResolveOutputArg(dir, "/out")
	if err != nil || info.OutputDir != "/out" || info.FilenameOverride != "" {
		t.Errorf("directory input: %+v, %v", info, err)
	}

	if got := ResolveOutputPath(input, "/out", ""); got != "/out/in.mkv" {
		t.Errorf("ResolveOutputPath() = %s", got)
	}
}
