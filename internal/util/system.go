package util

import (
	"fmt"
	"os"
	"runtime"
)

// SystemInfo contains information about the host system.
type SystemInfo struct {
	Hostname string
	NumCPU   int
	OS       string
	Arch     string
}

// GetSystemInfo collects system information.
func GetSystemInfo() SystemInfo {
	hostname, _ := os.Hostname()
	return SystemInfo{
		Hostname: hostname,
		NumCPU:   runtime.NumCPU(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	}
}

// LogicalCores returns the number of logical CPU cores (includes hyperthreads).
func LogicalCores() int {
	return runtime.NumCPU()
}

// MinFreeSpaceBytes is the free space below which CheckDiskSpace warns.
// RPU-injected HEVC streams and remux outputs roughly double the size of
// the encode while they coexist.
const MinFreeSpaceBytes uint64 = 20 * GiB

// CheckDiskSpace reports whether path has at least MinFreeSpaceBytes free.
// When it does not, or the value cannot be determined, a warning is passed
// to warn (which may be nil).
func CheckDiskSpace(path string, warn func(format string, args ...any)) bool {
	free := GetAvailableSpace(path)
	if free == 0 {
		if warn != nil {
			warn("could not determine free space for %s", path)
		}
		return false
	}
	if free < MinFreeSpaceBytes {
		if warn != nil {
			warn("low disk space on %s: %s free", path, FormatBytes(free))
		}
		return false
	}
	return true
}

// RequireSpace fails when path has less than need bytes free. An unknown
// free-space value passes.
func RequireSpace(path string, need uint64) error {
	free := GetAvailableSpace(path)
	if free == 0 || free >= need {
		return nil
	}
	return fmt.Errorf("insufficient space on %s: need %s, have %s", path, FormatBytes(need), FormatBytes(free))
}
