package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides
// (e.g. HDRKIT_DOLBY_VISION_ENABLED=false).
const EnvPrefix = "HDRKIT"

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
// An empty configPath searches ./hdrkit.yaml and $HOME/.config/hdrkit/.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v, NewConfig("", "", ""))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("hdrkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/hdrkit")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every default so env overrides work for keys that
// are absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("temp_dir", d.TempDir)
	v.SetDefault("journal_path", d.JournalPath)
	v.SetDefault("metrics_file", d.MetricsFile)

	v.SetDefault("hdr.enabled", d.HDR.Enabled)
	v.SetDefault("hdr.extra_dynamic_labels", d.HDR.ExtraDynamicLabels)

	v.SetDefault("dolby_vision.enabled", d.DolbyVision.Enabled)
	v.SetDefault("dolby_vision.preserve_profile_7", d.DolbyVision.PreserveProfile7)
	v.SetDefault("dolby_vision.auto_profile_conversion", d.DolbyVision.AutoProfileConversion)
	v.SetDefault("dolby_vision.target_profile", d.DolbyVision.TargetProfile)
	v.SetDefault("dolby_vision.require_dovi_tool", d.DolbyVision.RequireDoviTool)
	v.SetDefault("dolby_vision.profile_specific_adjustments", d.DolbyVision.ProfileSpecificAdjustments)
	v.SetDefault("dolby_vision.crf_adjustment", d.DolbyVision.CRFAdjustment)
	v.SetDefault("dolby_vision.bitrate_multiplier", d.DolbyVision.BitrateMultiplier)
	v.SetDefault("dolby_vision.vbv_bufsize", d.DolbyVision.VBVBufsize)
	v.SetDefault("dolby_vision.vbv_maxrate", d.DolbyVision.VBVMaxrate)

	v.SetDefault("hdr10plus.enabled", d.HDR10Plus.Enabled)
	v.SetDefault("hdr10plus.validate_with_plot", d.HDR10Plus.ValidateWithPlot)

	v.SetDefault("tools.ffprobe", d.Tools.FFprobe)
	v.SetDefault("tools.ffmpeg", d.Tools.FFmpeg)
	v.SetDefault("tools.dovi_tool", d.Tools.DoviTool)
	v.SetDefault("tools.hdr10plus_tool", d.Tools.HDR10PlusTool)
	v.SetDefault("tools.mkvmerge", d.Tools.MKVMerge)
	v.SetDefault("tools.mediainfo", d.Tools.MediaInfo)
	v.SetDefault("tools.timeout_secs", d.Tools.TimeoutSecs)

	v.SetDefault("encoding.mode", string(d.Encoding.Mode))
	v.SetDefault("encoding.base_crf", d.Encoding.BaseCRF)
	v.SetDefault("encoding.base_bitrate_kbps", d.Encoding.BaseBitrateKbps)
	v.SetDefault("encoding.preset", d.Encoding.Preset)
	v.SetDefault("encoding.native_dv_rpu", d.Encoding.NativeDVRPU)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile atomically writes the configuration as YAML to path.
// Existing files are left untouched unless overwrite is set.
func (c *Config) WriteFile(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
