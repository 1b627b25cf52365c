package config

import (
	"fmt"
	"strings"
	"time"
)

// Default constants
const (
	// DefaultToolTimeoutSecs bounds each extraction/injection tool call.
	DefaultToolTimeoutSecs = 300

	// DefaultBaseCRF is the x265 CRF before content adjustments.
	DefaultBaseCRF = 22.0

	// DefaultBaseBitrateKbps is the ABR/CBR target before content adjustments.
	DefaultBaseBitrateKbps uint32 = 10000

	// DefaultPreset is the x265 preset used when no format recommends one.
	DefaultPreset = "slow"

	// DefaultDVCRFAdjustment is added to the base CRF for Dolby Vision.
	DefaultDVCRFAdjustment = 1.0

	// DefaultDVBitrateMultiplier scales the bitrate for Dolby Vision.
	DefaultDVBitrateMultiplier = 1.8

	// DefaultDVVBVKbps is the VBV buffer size and max rate for Dolby Vision
	// in CRF mode.
	DefaultDVVBVKbps uint32 = 160000

	// DefaultDVTargetProfile is the Profile 7 conversion target.
	DefaultDVTargetProfile = "8.1"

	// DefaultWorkers is the number of files processed concurrently.
	DefaultWorkers = 1

	// MaxCRF is the maximum valid x265 CRF value.
	MaxCRF = 51.0
)

// Mode is the encoder rate-control mode.
type Mode string

const (
	ModeCRF Mode = "crf"
	ModeABR Mode = "abr"
	ModeCBR Mode = "cbr"
)

// ParseMode parses a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crf":
		return ModeCRF, nil
	case "abr":
		return ModeABR, nil
	case "cbr":
		return ModeCBR, nil
	default:
		return "", fmt.Errorf("%w: '%s', valid options: crf, abr, cbr", ErrInvalidMode, s)
	}
}

// HDRConfig controls HDR detection.
type HDRConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// ExtraDynamicLabels extends the side-data labels recognised as HDR10+
	// dynamic metadata.
	ExtraDynamicLabels []string `mapstructure:"extra_dynamic_labels" yaml:"extra_dynamic_labels"`
}

// DolbyVisionConfig controls Dolby Vision detection and preservation.
type DolbyVisionConfig struct {
	Enabled                    bool    `mapstructure:"enabled" yaml:"enabled"`
	PreserveProfile7           bool    `mapstructure:"preserve_profile_7" yaml:"preserve_profile_7"`
	AutoProfileConversion      bool    `mapstructure:"auto_profile_conversion" yaml:"auto_profile_conversion"`
	TargetProfile              string  `mapstructure:"target_profile" yaml:"target_profile"`
	RequireDoviTool            bool    `mapstructure:"require_dovi_tool" yaml:"require_dovi_tool"`
	ProfileSpecificAdjustments bool    `mapstructure:"profile_specific_adjustments" yaml:"profile_specific_adjustments"`
	CRFAdjustment              float64 `mapstructure:"crf_adjustment" yaml:"crf_adjustment"`
	BitrateMultiplier          float64 `mapstructure:"bitrate_multiplier" yaml:"bitrate_multiplier"`
	VBVBufsize                 uint32  `mapstructure:"vbv_bufsize" yaml:"vbv_bufsize"`
	VBVMaxrate                 uint32  `mapstructure:"vbv_maxrate" yaml:"vbv_maxrate"`
}

// HDR10PlusConfig controls HDR10+ dynamic metadata handling.
type HDR10PlusConfig struct {
	Enabled          bool `mapstructure:"enabled" yaml:"enabled"`
	ValidateWithPlot bool `mapstructure:"validate_with_plot" yaml:"validate_with_plot"`
}

// ToolsConfig holds external tool paths and timeouts.
type ToolsConfig struct {
	FFprobe       string `mapstructure:"ffprobe" yaml:"ffprobe"`
	FFmpeg        string `mapstructure:"ffmpeg" yaml:"ffmpeg"`
	DoviTool      string `mapstructure:"dovi_tool" yaml:"dovi_tool"`
	HDR10PlusTool string `mapstructure:"hdr10plus_tool" yaml:"hdr10plus_tool"`
	MKVMerge      string `mapstructure:"mkvmerge" yaml:"mkvmerge"`
	MediaInfo     string `mapstructure:"mediainfo" yaml:"mediainfo"`
	TimeoutSecs   int    `mapstructure:"timeout_secs" yaml:"timeout_secs"`
}

// Timeout returns the per-call tool timeout.
func (t ToolsConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSecs) * time.Second
}

// EncodingConfig holds the base encoder settings adjusted per file.
type EncodingConfig struct {
	Mode            Mode    `mapstructure:"mode" yaml:"mode"`
	BaseCRF         float64 `mapstructure:"base_crf" yaml:"base_crf"`
	BaseBitrateKbps uint32  `mapstructure:"base_bitrate_kbps" yaml:"base_bitrate_kbps"`
	Preset          string  `mapstructure:"preset" yaml:"preset"`
	// NativeDVRPU passes the extracted RPU to x265 directly instead of
	// injecting it after the encode.
	NativeDVRPU bool `mapstructure:"native_dv_rpu" yaml:"native_dv_rpu"`
}

// Config holds all configuration for a run.
type Config struct {
	InputDir  string `mapstructure:"input_dir" yaml:"input_dir,omitempty"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir,omitempty"`
	LogDir    string `mapstructure:"log_dir" yaml:"log_dir,omitempty"`
	TempDir   string `mapstructure:"temp_dir" yaml:"temp_dir,omitempty"` // Optional, defaults to OutputDir

	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	Workers     int    `mapstructure:"workers" yaml:"workers"`
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path,omitempty"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file,omitempty"`

	HDR         HDRConfig         `mapstructure:"hdr" yaml:"hdr"`
	DolbyVision DolbyVisionConfig `mapstructure:"dolby_vision" yaml:"dolby_vision"`
	HDR10Plus   HDR10PlusConfig   `mapstructure:"hdr10plus" yaml:"hdr10plus"`
	Tools       ToolsConfig       `mapstructure:"tools" yaml:"tools"`
	Encoding    EncodingConfig    `mapstructure:"encoding" yaml:"encoding"`
}

// NewConfig creates a new Config with default values.
func NewConfig(inputDir, outputDir, logDir string) *Config {
	return &Config{
		InputDir:  inputDir,
		OutputDir: outputDir,
		LogDir:    logDir,
		LogLevel:  "info",
		Workers:   DefaultWorkers,
		HDR: HDRConfig{
			Enabled: true,
		},
		DolbyVision: DefaultDolbyVision(),
		HDR10Plus: HDR10PlusConfig{
			Enabled: true,
		},
		Tools: ToolsConfig{
			FFprobe:       "ffprobe",
			FFmpeg:        "ffmpeg",
			DoviTool:      "dovi_tool",
			HDR10PlusTool: "hdr10plus_tool",
			MKVMerge:      "mkvmerge",
			MediaInfo:     "mediainfo",
			TimeoutSecs:   DefaultToolTimeoutSecs,
		},
		Encoding: EncodingConfig{
			Mode:            ModeCRF,
			BaseCRF:         DefaultBaseCRF,
			BaseBitrateKbps: DefaultBaseBitrateKbps,
			Preset:          DefaultPreset,
		},
	}
}

// DefaultDolbyVision returns the default Dolby Vision settings.
func DefaultDolbyVision() DolbyVisionConfig {
	return DolbyVisionConfig{
		Enabled:                    true,
		PreserveProfile7:           true,
		AutoProfileConversion:      true,
		TargetProfile:              DefaultDVTargetProfile,
		ProfileSpecificAdjustments: true,
		CRFAdjustment:              DefaultDVCRFAdjustment,
		BitrateMultiplier:          DefaultDVBitrateMultiplier,
		VBVBufsize:                 DefaultDVVBVKbps,
		VBVMaxrate:                 DefaultDVVBVKbps,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Encoding.BaseCRF < 0 || c.Encoding.BaseCRF > MaxCRF {
		return fmt.Errorf("%w: base_crf must be 0-%g, got %g", ErrInvalidCRF, MaxCRF, c.Encoding.BaseCRF)
	}

	if _, err := ParseMode(string(c.Encoding.Mode)); err != nil {
		return err
	}

	switch c.DolbyVision.TargetProfile {
	case "8.1", "8.2", "8.4":
	default:
		return fmt.Errorf("%w: '%s', valid options: 8.1, 8.2, 8.4", ErrInvalidTargetProfile, c.DolbyVision.TargetProfile)
	}

	if c.DolbyVision.BitrateMultiplier <= 0 {
		return fmt.Errorf("%w: dolby_vision.bitrate_multiplier=%g", ErrInvalidMultiplier, c.DolbyVision.BitrateMultiplier)
	}

	if c.Tools.TimeoutSecs <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTimeout, c.Tools.TimeoutSecs)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.Workers)
	}

	return nil
}

// GetTempDir returns the temp directory, falling back to OutputDir if not set.
func (c *Config) GetTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return c.OutputDir
}
