// Package config provides configuration types and defaults for hdrkit.
package config

import "errors"

// Sentinel errors for configuration validation.
var (
	// ErrInvalidCRF indicates a CRF value outside the valid 0-51 range.
	ErrInvalidCRF = errors.New("CRF value out of range")

	// ErrInvalidMode indicates an unknown rate-control mode.
	ErrInvalidMode = errors.New("invalid encoding mode")

	// ErrInvalidTargetProfile indicates a Dolby Vision conversion target
	// other than 8.1, 8.2 or 8.4.
	ErrInvalidTargetProfile = errors.New("invalid Dolby Vision target profile")

	// ErrInvalidTimeout indicates a non-positive tool timeout.
	ErrInvalidTimeout = errors.New("tool timeout must be positive")

	// ErrInvalidWorkers indicates a non-positive worker count.
	ErrInvalidWorkers = errors.New("worker count must be positive")

	// ErrInvalidMultiplier indicates a non-positive bitrate multiplier.
	ErrInvalidMultiplier = errors.New("bitrate multiplier must be positive")
)
