// Package main provides the CLI entry point for hdrkit.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/hdrkit"
	"github.com/five82/hdrkit/internal/config"
	hkerrors "github.com/five82/hdrkit/internal/errors"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/reporter"
)

const appName = "hdrkit"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	jsonOutput bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case hkerrors.IsCancelled(err):
		return 130
	case hkerrors.IsKind(err, hkerrors.KindConfig), hkerrors.IsKind(err, hkerrors.KindPath), hkerrors.IsNoFilesFound(err):
		return 2
	default:
		return 1
	}
}

func newRootCmd() *cobra.Command {
	gf := &globalFlags{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "HDR, HDR10+ and Dolby Vision preserving HEVC encoder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "", "Config file (default ./hdrkit.yaml or ~/.config/hdrkit/hdrkit.yaml)")
	root.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false, "Enable verbose output for troubleshooting")
	root.PersistentFlags().BoolVar(&gf.jsonOutput, "json", false, "Emit newline-delimited JSON events instead of terminal output")

	root.AddCommand(
		newProcessCmd(gf),
		newAnalyzeCmd(gf),
		newToolsCmd(gf),
		newSweepCmd(gf),
		newHistoryCmd(gf),
		newConfigCmd(gf),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file and environment, then validates.
func loadConfig(gf *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return nil, hkerrors.NewConfigError(err.Error())
	}
	if gf.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// initLogging sends structured logs to the run log, and to stderr as well
// in verbose mode.
func initLogging(gf *globalFlags, cfg *config.Config, run *logging.RunLog) {
	writers := []io.Writer{run.Writer()}
	if gf.verbose {
		writers = append(writers, os.Stderr)
	}
	logging.Init(logging.ParseLevel(cfg.LogLevel), writers...)
}

func newReporter(gf *globalFlags) reporter.Reporter {
	if gf.jsonOutput {
		return reporter.NewJSONReporter()
	}
	return reporter.NewTerminalReporter(gf.verbose)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, hdrkit.Version)
		},
	}
}
