// Package rpu extracts Dolby Vision RPU metadata before encoding and puts
// it back into the encoded bitstream afterwards.
package rpu

import (
	"github.com/five82/hdrkit/internal/dolbyvision"
	"github.com/five82/hdrkit/internal/util"
)

// Metadata is an extracted RPU file owned by one workflow run.
type Metadata struct {
	Profile   dolbyvision.Profile
	Extracted bool
	Size      uint64

	file *util.TempFile
}

// NewMetadata takes ownership of the RPU file at path.
func NewMetadata(path string, profile dolbyvision.Profile, size uint64) *Metadata {
	return &Metadata{
		Profile:   profile,
		Extracted: true,
		Size:      size,
		file:      util.NewTempFile(path),
	}
}

// Path returns the RPU file path.
func (m *Metadata) Path() string {
	if m == nil {
		return ""
	}
	return m.file.Path()
}

// Usable reports whether the RPU can still be injected.
func (m *Metadata) Usable() bool {
	return m != nil && m.Extracted && !m.file.Released() && m.file.Exists()
}

// Release deletes the RPU file. It is safe to call more than once.
func (m *Metadata) Release() error {
	if m == nil {
		return nil
	}
	return m.file.Release()
}
