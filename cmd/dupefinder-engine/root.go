package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dupefinder/internal/engine"
	"dupefinder/internal/logging"
)

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		minSize        int64
		followSymlinks bool
		jsonOutput     bool
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:           "dupefinder-engine [flags] <directory>",
		Short:         "Find files with identical content under a directory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			// stdout carries the report, so diagnostics only go to stderr.
			logger, err := logging.New(logging.Options{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
			if err != nil {
				return err
			}

			report, err := engine.Scan(cmd.Context(), args[0], engine.Options{
				MinSize:        minSize,
				FollowSymlinks: followSymlinks,
				Logger:         logger,
			})
			if err != nil {
				return fmt.Errorf("Error scanning directory: %w", err)
			}
			if jsonOutput {
				return engine.WriteJSON(stdout, report)
			}
			return engine.WriteLegacy(stdout, report)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.Int64Var(&minSize, "minsize", 0, "Minimum file size to consider (in bytes)")
	flags.BoolVar(&followSymlinks, "follow-symlinks", false, "Follow symlinks when scanning")
	flags.BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log walk and hashing diagnostics to stderr")
	return cmd
}
