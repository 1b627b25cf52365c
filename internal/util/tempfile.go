package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Temp-file naming. Every name carries a random UUID so concurrent runs
// sharing a temp directory never collide.
const (
	rpuSuffix        = "_rpu_"
	hdr10PlusSuffix  = "_hdr10plus_metadata_"
	hevcPrefix       = "temp_hevc_"
	hevcWithRPUPrefx = "temp_hevc_rpu_"
	encodePrefix     = "temp_encode_"
)

// RPUFileName returns "<stem>_rpu_<uuid>.bin".
func RPUFileName(sourcePath string) string {
	return GetFileStem(sourcePath) + rpuSuffix + uuid.NewString() + ".bin"
}

// ConvertedRPUFileName names a converted copy of the RPU at rpuPath after
// the same source stem, so "<stem>_rpu_<uuid>.bin" gets a fresh uuid rather
// than a second suffix.
func ConvertedRPUFileName(rpuPath string) string {
	stem := GetFileStem(rpuPath)
	if i := strings.LastIndex(stem, rpuSuffix); i >= 0 {
		if _, err := uuid.Parse(stem[i+len(rpuSuffix):]); err == nil {
			stem = stem[:i]
		}
	}
	return stem + rpuSuffix + uuid.NewString() + ".bin"
}

// HDR10PlusFileName returns "<stem>_hdr10plus_metadata_<uuid>.json".
func HDR10PlusFileName(sourcePath string) string {
	return GetFileStem(sourcePath) + hdr10PlusSuffix + uuid.NewString() + ".json"
}

// HEVCFileName returns "temp_hevc_<uuid>.hevc".
func HEVCFileName() string {
	return hevcPrefix + uuid.NewString() + ".hevc"
}

// HEVCWithRPUFileName returns "temp_hevc_rpu_<uuid>.hevc".
func HEVCWithRPUFileName() string {
	return hevcWithRPUPrefx + uuid.NewString() + ".hevc"
}

// EncodeTempFileName returns "temp_encode_<filename>".
func EncodeTempFileName(finalPath string) string {
	return encodePrefix + filepath.Base(finalPath)
}

const uuidPattern = `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`

// TempFilePatterns match every temp name produced above.
var TempFilePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^.+_rpu_` + uuidPattern + `\.bin$`),
	regexp.MustCompile(`^.+_hdr10plus_metadata_` + uuidPattern + `\.json$`),
	regexp.MustCompile(`^temp_hevc_(rpu_)?` + uuidPattern + `\.hevc$`),
	regexp.MustCompile(`^temp_encode_.+$`),
}

// IsTempFileName reports whether name matches a known temp-name pattern.
func IsTempFileName(name string) bool {
	for _, re := range TempFilePatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// SweepTempFiles removes files in dir whose names match TempFilePatterns
// and that are at least minAge old. A missing directory is not an error.
// Returns the number of files removed.
func SweepTempFiles(dir string, minAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-minAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !IsTempFileName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if minAge > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// TempFile is an owned temporary file. Release deletes it; once a delete
// has succeeded further calls are no-ops, while a failed delete is retried.
type TempFile struct {
	path     string
	mu       sync.Mutex
	released bool
}

// NewTempFile takes ownership of path. The file need not exist yet.
func NewTempFile(path string) *TempFile {
	return &TempFile{path: path}
}

// NewTempFileIn returns an owned temp path named by name inside dir.
func NewTempFileIn(dir, name string) *TempFile {
	return NewTempFile(filepath.Join(dir, name))
}

// Path returns the file path.
func (t *TempFile) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Exists reports whether the file is present on disk.
func (t *TempFile) Exists() bool {
	return t != nil && FileExists(t.path)
}

// Release deletes the file. Missing files are not an error.
func (t *TempFile) Release() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return nil
	}
	if err := RemoveIfExists(t.path); err != nil {
		return err
	}
	t.released = true
	return nil
}

// Released reports whether the file has been deleted.
func (t *TempFile) Released() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// EnsureDirectoryWritable checks that path is an existing, writable
// directory by creating and removing a probe file.
func EnsureDirectoryWritable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	probe := filepath.Join(path, ".hdrkit_write_test_"+strings.ReplaceAll(uuid.NewString(), "-", ""))
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", path, err)
	}
	_ = f.Close()
	return os.Remove(probe)
}
