package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

// FileReport is the analysis and outcome of one processed file.
type FileReport struct {
	Input           string             `json:"input"`
	Output          string             `json:"output,omitempty"`
	Approach        string             `json:"approach"`
	HDRFormat       string             `json:"hdr_format"`
	Confidence      float64            `json:"confidence"`
	DolbyVision     string             `json:"dolby_vision,omitempty"`
	TargetProfile   string             `json:"target_profile,omitempty"`
	HDR10Plus       bool               `json:"hdr10plus"`
	HDR10PlusCurves int                `json:"hdr10plus_curves,omitempty"`
	HDR10PlusScenes int                `json:"hdr10plus_scenes,omitempty"`
	CRF             float64            `json:"crf,omitempty"`
	BitrateKbps     uint32             `json:"bitrate_kbps,omitempty"`
	X265Params      string             `json:"x265_params,omitempty"`
	Outcome         string             `json:"outcome,omitempty"`
	InputBytes      uint64             `json:"input_bytes,omitempty"`
	OutputBytes     uint64             `json:"output_bytes,omitempty"`
	DurationSeconds float64            `json:"duration_seconds,omitempty"`
	Validation      *ValidationSummary `json:"validation,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// Report collects the per-file reports of one run.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Version     string        `json:"version"`
	Files       []FileReport  `json:"files"`
	Summary     *BatchSummary `json:"summary,omitempty"`
}

// WriteReport writes r as indented JSON to path. The file is replaced
// atomically so readers never observe a partial report.
func WriteReport(path string, r Report) error {
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
