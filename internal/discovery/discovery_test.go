package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	hkerrors "github.com/five82/hdrkit/internal/errors"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFindVideoFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b_movie.mkv")
	touch(t, dir, "A_Movie.mp4")
	touch(t, dir, "notes.txt")
	touch(t, dir, ".hidden.mkv")
	touch(t, dir, "temp_encode_b_movie.mkv")
	touch(t, dir, "temp_hevc_0b8f5a4e-3c3d-4f5e-9a1b-2c3d4e5f6a7b.hevc")
	if err := os.Mkdir(filepath.Join(dir, "sub.mkv"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := FindVideoFiles(dir)
	if err != nil {
		t.Fatalf("FindVideoFiles() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "A_Movie.mp4"),
		filepath.Join(dir, "b_movie.mkv"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("FindVideoFiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverCounts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "movie.mkv")
	touch(t, dir, "cover.jpg")
	touch(t, dir, "temp_encode_movie.mkv")

	res, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(res.Files) != 1 {
		t.Errorf("Files = %v, want 1 entry", res.Files)
	}
	if res.SkippedCount != 1 {
		t.Errorf("SkippedCount = %d, want 1", res.SkippedCount)
	}
	if res.TempCount != 1 {
		t.Errorf("TempCount = %d, want 1", res.TempCount)
	}
}

func TestDiscoverSingleFile(t *testing.T) {
	dir := t.TempDir()
	p := touch(t, dir, "movie.m2ts")

	res, err := Discover(p)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(res.Files) != 1 || res.Files[0] != p {
		t.Errorf("Files = %v, want [%s]", res.Files, p)
	}

	txt := touch(t, dir, "readme.txt")
	if _, err := Discover(txt); !hkerrors.IsKind(err, hkerrors.KindPath) {
		t.Errorf("Discover(non-video) error = %v, want path error", err)
	}
}

func TestDiscoverErrors(t *testing.T) {
	empty := t.TempDir()
	touch(t, empty, "notes.txt")

	if _, err := Discover(empty); !hkerrors.IsNoFilesFound(err) {
		t.Errorf("Discover(empty) error = %v, want no-files-found", err)
	}
	if _, err := Discover(filepath.Join(empty, "missing")); !hkerrors.IsKind(err, hkerrors.KindPath) {
		t.Errorf("Discover(missing) error = %v, want path error", err)
	}
	if _, err := FindVideoFiles(touch(t, empty, "file.mkv")); !hkerrors.IsKind(err, hkerrors.KindPath) {
		t.Errorf("FindVideoFiles(file) error = %v, want path error", err)
	}
}
