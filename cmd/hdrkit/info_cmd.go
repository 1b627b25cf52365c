package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/five82/hdrkit"
	"github.com/five82/hdrkit/internal/discovery"
	"github.com/five82/hdrkit/internal/logging"
	"github.com/five82/hdrkit/internal/reporter"
	"github.com/five82/hdrkit/internal/util"
)

func newAnalyzeCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file-or-dir>...",
		Short: "Classify sources and show the encoding approach without encoding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			initLogging(gf, cfg, nil)
			engine, err := hdrkit.New(hdrkit.WithConfig(cfg))
			if err != nil {
				return err
			}

			var inputs []string
			for _, arg := range args {
				found, err := discovery.Discover(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, found.Files...)
			}

			rep := newReporter(gf)
			failed := 0
			for _, input := range inputs {
				fa, err := engine.Analyze(cmd.Context(), input)
				if err != nil {
					failed++
					logging.Error("analysis failed", "input", input, "error", err)
					rep.Error(reporter.ReporterError{
						Title:      "Analysis Error",
						Message:    fmt.Sprintf("Could not analyze %s: %v", util.GetFilename(input), err),
						Context:    fmt.Sprintf("File: %s", input),
						Suggestion: "Check if the file is a valid video format",
					})
					continue
				}
				props := fa.Properties
				rep.Initialization(reporter.InitializationSummary{
					InputFile:    filepath.Base(input),
					Duration:     util.FormatDuration(props.DurationSecs),
					Resolution:   fmt.Sprintf("%dx%d", props.Width, props.Height),
					DynamicRange: fa.Analysis.HDR.Format().String(),
				})
				rep.AnalysisComplete(fa.Summary())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be analyzed", failed, len(inputs))
			}
			return nil
		},
	}
}

func newToolsCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Check which external tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			initLogging(gf, cfg, nil)
			engine, err := hdrkit.New(hdrkit.WithConfig(cfg))
			if err != nil {
				return err
			}

			avail := engine.Tools(cmd.Context())
			out := cmd.OutOrStdout()
			if gf.jsonOutput {
				enc := json.NewEncoder(out)
				return enc.Encode(avail)
			}
			rows := []struct {
				name string
				ok   bool
				use  string
			}{
				{"ffmpeg", avail.FFmpeg, "encoding (required)"},
				{"dovi_tool", avail.DoviTool, "Dolby Vision RPU extraction and injection"},
				{"hdr10plus_tool", avail.HDR10PlusTool, "HDR10+ metadata extraction"},
				{"mkvmerge", avail.MKVMerge, "final remux (ffmpeg is used otherwise)"},
			}
			for _, r := range rows {
				mark := "✗"
				if r.ok {
					mark = "✓"
				}
				fmt.Fprintf(out, "  %s %-15s %s\n", mark, r.name, r.use)
			}
			if !avail.CanInjectRPU() {
				fmt.Fprintln(out, "\nDolby Vision sources will be encoded as HDR10.")
			}
			return nil
		},
	}
}
