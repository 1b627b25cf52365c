//go:build !unix

package util

// GetAvailableSpace is unsupported on this platform and always returns 0.
func GetAvailableSpace(path string) uint64 {
	return 0
}
