// Package discovery finds the video files a batch run should process.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

// Result contains the discovered files and what was passed over.
type Result struct {
	Files        []string
	SkippedCount int
	TempCount    int
}

// FindVideoFiles returns the video files in inputDir sorted by filename,
// ignoring hidden files and leftovers from interrupted runs.
func FindVideoFiles(inputDir string) ([]string, error) {
	res, err := scan(inputDir)
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}

// Discover accepts either a single video file or a directory. For a
// directory it logs the first few files found plus a count summary.
func Discover(input string) (*Result, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, hkerrors.NewPathError("input does not exist: " + input)
	}

	if !info.IsDir() {
		if !util.IsVideoFile(input) {
			return nil, hkerrors.NewPathError(input + " is not a supported video file")
		}
		return &Result{Files: []string{input}}, nil
	}

	res, err := scan(input)
	if err != nil {
		return nil, err
	}
	logDiscoveredFiles(res)
	return res, nil
}

func scan(inputDir string) (*Result, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, hkerrors.NewPathError("directory does not exist: " + inputDir)
	}
	if !info.IsDir() {
		return nil, hkerrors.NewPathError(inputDir + " is not a directory")
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, hkerrors.NewIOError("cannot read directory "+inputDir, err)
	}

	res := &Result{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if util.IsTempFileName(name) {
			res.TempCount++
			continue
		}

		fullPath := filepath.Join(inputDir, name)
		if util.IsVideoFile(fullPath) {
			res.Files = append(res.Files, fullPath)
		} else {
			res.SkippedCount++
		}
	}

	if len(res.Files) == 0 {
		return nil, hkerrors.NewNoFilesFoundError(inputDir)
	}

	sort.Slice(res.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(res.Files[i])) < strings.ToLower(filepath.Base(res.Files[j]))
	})
	return res, nil
}

func logDiscoveredFiles(res *Result) {
	logging.Info("found video files", "count", len(res.Files), "skipped", res.SkippedCount)
	if res.TempCount > 0 {
		logging.Warn("ignoring leftover temp files", "count", res.TempCount)
	}

	maxToLog := min(5, len(res.Files))
	for i := 0; i < maxToLog; i++ {
		logging.Debug("discovered", "file", filepath.Base(res.Files[i]))
	}
	if len(res.Files) > 5 {
		logging.Debug("more files not listed", "count", len(res.Files)-5)
	}
}
