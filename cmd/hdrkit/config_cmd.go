package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/hdrkit"
	"github.com/five82/hdrkit/internal/config"
)

func newConfigCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "hdrkit.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.NewConfig("", "", "").WriteFile(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func newSweepCmd(gf *globalFlags) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove leftover intermediate files from interrupted runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.TempDir = dir
			}
			if cfg.GetTempDir() == "" {
				return fmt.Errorf("no temp directory configured; pass --temp-dir")
			}
			initLogging(gf, cfg, nil)
			engine, err := hdrkit.New(hdrkit.WithConfig(cfg))
			if err != nil {
				return err
			}
			n, err := engine.Sweep()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale files from %s\n", n, cfg.GetTempDir())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "temp-dir", "", "Directory to sweep (defaults to temp_dir from the config)")
	return cmd
}
