package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/five82/hdrkit/internal/journal"
	"github.com/five82/hdrkit/internal/util"
)

func newHistoryCmd(gf *globalFlags) *cobra.Command {
	var (
		path  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed files from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				cfg, err := loadConfig(gf)
				if err != nil {
					return err
				}
				path = cfg.JournalPath
			}
			if path == "" {
				return fmt.Errorf("no journal configured; pass --journal or set journal_path")
			}
			if !util.FileExists(path) {
				return fmt.Errorf("journal %s does not exist", path)
			}

			j, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			summary, err := j.Summarize(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if gf.jsonOutput {
				return json.NewEncoder(out).Encode(map[string]any{
					"entries": entries,
					"summary": summary,
				})
			}

			for _, e := range entries {
				status := e.Outcome
				if !e.Success {
					status = "failed: " + e.Error
				}
				profile := ""
				if e.DVProfile != "" {
					profile = " DV " + e.DVProfile
				}
				fmt.Fprintf(out, "%s  %-40s %-8s%s  %s -> %s  %s\n",
					e.FinishedAt.Local().Format("2006-01-02 15:04"),
					filepath.Base(e.Input),
					e.HDRFormat,
					profile,
					util.FormatBytes(e.InputBytes),
					util.FormatBytes(e.OutputBytes),
					status)
			}
			saved := uint64(0)
			if summary.BytesSaved > 0 {
				saved = uint64(summary.BytesSaved)
			}
			fmt.Fprintf(out, "\n%d files, %d succeeded, %d with Dolby Vision injected, %s saved\n",
				summary.Files, summary.Succeeded, summary.Injected, util.FormatBytes(saved))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "journal", "", "Journal path (defaults to journal_path from the config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}
