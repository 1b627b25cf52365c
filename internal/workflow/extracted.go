package workflow

import (
	"errors"

	"github.com/five82/hdrkit/internal/hdr10plus"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/rpu"
)

// ExtractedMetadata holds the temp files one run owns.
type ExtractedMetadata struct {
	RPU       *rpu.Metadata
	HDR10Plus *hdr10plus.Result
	TempDir   string
}

// HasMetadata reports whether anything was extracted.
func (e *ExtractedMetadata) HasMetadata() bool {
	return e.RPU != nil || e.HDR10Plus != nil
}

// Cleanup deletes every owned file. It may be called more than once and
// reports all failures.
func (e *ExtractedMetadata) Cleanup() error {
	var errs []error
	if e.RPU != nil {
		if err := e.RPU.Release(); err != nil {
			errs = append(errs, err)
		} else {
			logging.Debug("removed RPU file", "path", e.RPU.Path())
		}
	}
	if e.HDR10Plus != nil {
		if err := e.HDR10Plus.Release(); err != nil {
			errs = append(errs, err)
		} else {
			logging.Debug("removed HDR10+ metadata file", "path", e.HDR10Plus.Path)
		}
	}
	return errors.Join(errs...)
}
