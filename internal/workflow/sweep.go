package workflow

import (
	"time"

	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/util"
)

// Sweep removes temp files left in dir by interrupted runs. Files younger
// than minAge are kept so that a concurrently running process is not
// disturbed.
func Sweep(dir string, minAge time.Duration) (int, error) {
	if dir == "" {
		return 0, nil
	}
	n, err := util.SweepTempFiles(dir, minAge)
	if err != nil {
		logging.Warn("temp file sweep failed", "dir", dir, "error", err)
		return n, err
	}
	if n > 0 {
		logging.Info("removed orphaned temp files", "dir", dir, "count", n)
	}
	return n, nil
}
