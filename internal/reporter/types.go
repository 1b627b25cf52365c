// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains host and external tool information.
type HardwareSummary struct {
	Hostname string
	Cores    int
	Tools    []ToolStatus
}

// ToolStatus reports whether one external tool can be used.
type ToolStatus struct {
	Name      string
	Available bool
}

// InitializationSummary describes the current file before analysis.
type InitializationSummary struct {
	InputFile    string
	OutputFile   string
	Duration     string
	Resolution   string
	DynamicRange string
	AudioStreams int
}

// AnalysisSummary contains the content analysis of one file.
type AnalysisSummary struct {
	Approach          string
	HDRFormat         string
	Confidence        float64
	DolbyVision       string
	TargetProfile     string
	HDR10Plus         bool
	CRFAdjustment     float64
	BitrateMultiplier float64
	RequiresVBV       bool
}

// EncodingConfigSummary contains encoding configuration.
type EncodingConfigSummary struct {
	Encoder     string
	Preset      string
	Quality     string
	PixelFormat string
	X265Params  string
}

// ProgressSnapshot contains encoding progress information.
type ProgressSnapshot struct {
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	Speed        float32
	FPS          float32
	ETA          time.Duration
	Bitrate      string
}

// ValidationSummary contains validation results.
type ValidationSummary struct {
	Passed bool             `json:"passed"`
	Steps  []ValidationStep `json:"steps"`
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// EncodingOutcome contains final results for one file.
type EncodingOutcome struct {
	InputFile    string
	OutputFile   string
	OriginalSize uint64
	EncodedSize  uint64
	VideoStream  string
	Metadata     string
	TotalTime    time.Duration
	AverageSpeed float32
	OutputPath   string
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	TotalFiles int
	FileList   []string
	OutputDir  string
	Workers    int
}

// FileProgressContext contains current file index within a batch.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
	Filename    string
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	SuccessfulCount       int           `json:"successful_count"`
	TotalFiles            int           `json:"total_files"`
	TotalOriginalSize     uint64        `json:"total_original_size"`
	TotalEncodedSize      uint64        `json:"total_encoded_size"`
	TotalDuration         time.Duration `json:"total_duration_ns"`
	InjectedCount         int           `json:"injected_count"`
	FallbackCount         int           `json:"fallback_count"`
	FileResults           []FileResult  `json:"file_results"`
	ValidationPassedCount int           `json:"validation_passed_count"`
	ValidationFailedCount int           `json:"validation_failed_count"`
}

// FileResult contains per-file encoding result.
type FileResult struct {
	Filename  string  `json:"filename"`
	Reduction float64 `json:"reduction_percent"`
	Outcome   string  `json:"outcome"`
}

// StageProgress represents a generic stage update.
type StageProgress struct {
	Stage   string
	Percent float32
	Message string
	ETA     *time.Duration
}
