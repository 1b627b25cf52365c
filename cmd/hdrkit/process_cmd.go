package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/five82/hdrkit"
	"github.com/five82/hdrkit/internal/config"
	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/reporter"
	"github.com/five82/hdrkit/internal/util"
)

// processArgs holds the parsed arguments for the process command.
type processArgs struct {
	inputPath     string
	outputPath    string
	logDir        string
	tempDir       string
	noLog         bool
	workers       int
	crf           float64
	preset        string
	targetProfile string
	noDolbyVision bool
	noHDR10Plus   bool
	nativeRPU     bool
	reportPath    string
	metricsFile   string
	journalPath   string
}

func newProcessCmd(gf *globalFlags) *cobra.Command {
	var pa processArgs
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Encode video files while preserving HDR metadata",
		Long: `Encode one file or every video file in a directory with libx265.

Dolby Vision RPUs and HDR10+ dynamic metadata are extracted before the encode
and restored afterwards. When a required tool is missing the file is encoded
with static HDR10 metadata instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProcess(cmd, gf, pa)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&pa.inputPath, "input", "i", "", "Input video file or directory containing video files")
	f.StringVarP(&pa.outputPath, "output", "o", "", "Output directory (or filename if input is a single file)")
	f.StringVarP(&pa.logDir, "log-dir", "l", "", "Log directory (defaults to OUTPUT/logs)")
	f.StringVar(&pa.tempDir, "temp-dir", "", "Directory for extracted metadata and intermediate encodes")
	f.BoolVar(&pa.noLog, "no-log", false, "Disable log file creation")
	f.IntVar(&pa.workers, "workers", 0, "Number of files encoded concurrently")
	f.Float64Var(&pa.crf, "crf", 0, fmt.Sprintf("Base CRF before content adjustments (default %.0f)", config.DefaultBaseCRF))
	f.StringVar(&pa.preset, "preset", "", fmt.Sprintf("x265 preset (default %s)", config.DefaultPreset))
	f.StringVar(&pa.targetProfile, "target-profile", "", "Dolby Vision profile for Profile 7 conversion (8.1, 8.2, 8.4)")
	f.BoolVar(&pa.noDolbyVision, "no-dolby-vision", false, "Do not preserve Dolby Vision")
	f.BoolVar(&pa.noHDR10Plus, "no-hdr10plus", false, "Do not preserve HDR10+ dynamic metadata")
	f.BoolVar(&pa.nativeRPU, "native-rpu", false, "Let x265 embed the RPU instead of injecting it after the encode")
	f.StringVar(&pa.reportPath, "report", "", "Write a JSON report of every processed file to this path")
	f.StringVar(&pa.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	f.StringVar(&pa.journalPath, "journal", "", "Record processed files in this SQLite journal")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runProcess(cmd *cobra.Command, gf *globalFlags, pa processArgs) error {
	inputPath, err := filepath.Abs(pa.inputPath)
	if err != nil {
		return hkerrors.NewPathError(fmt.Sprintf("invalid input path: %v", err))
	}
	if _, err := os.Stat(inputPath); err != nil {
		return hkerrors.NewPathError("input path does not exist: " + inputPath)
	}
	outputPath, err := filepath.Abs(pa.outputPath)
	if err != nil {
		return hkerrors.NewPathError(fmt.Sprintf("invalid output path: %v", err))
	}

	cfg, err := loadConfig(gf)
	if err != nil {
		return err
	}
	applyProcessArgs(cfg, cmd, pa)
	cfg.InputDir = inputPath

	target, err := util.ResolveOutputArg(inputPath, outputPath)
	if err != nil {
		return hkerrors.NewPathError(err.Error())
	}
	outputDir := target.OutputDir
	cfg.OutputDir = outputDir

	logDir := pa.logDir
	if logDir == "" {
		logDir = filepath.Join(outputDir, "logs")
	}
	cfg.LogDir = logDir

	runLog, err := logging.Setup(logDir, gf.verbose, pa.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = runLog.Close() }()
	initLogging(gf, cfg, runLog)

	engine, err := hdrkit.New(hdrkit.WithConfig(cfg))
	if err != nil {
		return hkerrors.NewConfigError(err.Error())
	}

	runLog.Info("Input: %s", inputPath)
	runLog.Info("Output: %s", outputPath)
	runLog.Info("Encoding: mode=%s base_crf=%g preset=%s", cfg.Encoding.Mode, cfg.Encoding.BaseCRF, cfg.Encoding.Preset)
	runLog.Info("Dolby Vision: enabled=%v target=%s native_rpu=%v", cfg.DolbyVision.Enabled, cfg.DolbyVision.TargetProfile, cfg.Encoding.NativeDVRPU)
	runLog.Info("HDR10+: enabled=%v", cfg.HDR10Plus.Enabled)
	runLog.Info("Workers: %d", cfg.Workers)

	rep := reporter.NewCompositeReporter(newReporter(gf), runLogReporter{log: runLog})
	result, err := engine.ProcessInput(cmd.Context(), inputPath, outputPath, rep)
	if result != nil && pa.reportPath != "" {
		if werr := reporter.WriteReport(pa.reportPath, result.Report(hdrkit.Version)); werr != nil {
			runLog.Error("Failed to write report: %v", werr)
			rep.Warning(fmt.Sprintf("Could not write report: %v", werr))
		} else {
			runLog.Info("Report written to %s", pa.reportPath)
		}
	}
	if err != nil {
		runLog.Error("Run ended: %v", err)
		return err
	}

	if failed := result.Failed(); len(failed) > 0 {
		for _, f := range failed {
			runLog.Error("Failed: %s: %v", f.Input, f.Err)
		}
		return fmt.Errorf("%d of %d files failed", len(failed), len(result.Files))
	}
	return nil
}

// applyProcessArgs overrides cfg with the flags that were set explicitly.
func applyProcessArgs(cfg *config.Config, cmd *cobra.Command, pa processArgs) {
	f := cmd.Flags()
	if f.Changed("temp-dir") {
		cfg.TempDir = pa.tempDir
	}
	if f.Changed("workers") {
		cfg.Workers = pa.workers
	}
	if f.Changed("crf") {
		cfg.Encoding.Mode = config.ModeCRF
		cfg.Encoding.BaseCRF = pa.crf
	}
	if f.Changed("preset") {
		cfg.Encoding.Preset = pa.preset
	}
	if f.Changed("target-profile") {
		cfg.DolbyVision.TargetProfile = pa.targetProfile
	}
	if pa.noDolbyVision {
		cfg.DolbyVision.Enabled = false
	}
	if pa.noHDR10Plus {
		cfg.HDR10Plus.Enabled = false
	}
	if pa.nativeRPU {
		cfg.Encoding.NativeDVRPU = true
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = pa.metricsFile
	}
	if f.Changed("journal") {
		cfg.JournalPath = pa.journalPath
	}
}
