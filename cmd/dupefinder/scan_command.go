package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dupefinder/internal/config"
	"dupefinder/internal/logging"
	"dupefinder/internal/scanresult"
	"dupefinder/internal/services"
	"dupefinder/internal/session"
	"dupefinder/internal/settings"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		dirFlag        string
		minSizeFlag    string
		followSymlinks bool
		jsonOutput     bool
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory for duplicate files",
		Long: "Scan a directory for files with identical content. Without a directory argument the\n" +
			"last scanned directory is used. Press Ctrl-C to stop a running scan.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, err := ctx.openSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			bg := commandCtx(cmd)
			prefs, err := store.Load(bg, settings.Defaults(cfg))
			if err != nil {
				return err
			}

			requested := dirFlag
			if len(args) == 1 {
				requested = args[0]
			}
			directory, err := selectDirectory(requested, prefs.LastDirectory)
			if err != nil {
				return err
			}

			opts := session.ScanOptions{
				Directory:      directory,
				MinSize:        prefs.MinSize,
				FollowSymlinks: prefs.FollowSymlinks,
			}
			if cmd.Flags().Changed("min-size") {
				if opts.MinSize, err = parseSize(minSizeFlag); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("follow-symlinks") {
				opts.FollowSymlinks = followSymlinks
			}

			release, err := ctx.acquireScanLock()
			defer release()
			if err != nil {
				return err
			}

			coord, err := ctx.newCoordinator(store)
			if err != nil {
				return err
			}

			sigCtx, stopSignals := signal.NotifyContext(bg, os.Interrupt, syscall.SIGTERM)
			defer stopSignals()
			watchDone := make(chan struct{})
			defer close(watchDone)
			go func() {
				select {
				case <-sigCtx.Done():
					if bg.Err() == nil {
						fmt.Fprintln(cmd.ErrOrStderr(), "Stopping scan...")
					}
					coord.Stop()
				case <-watchDone:
				}
			}()

			progress := newScanProgress(cmd.ErrOrStderr(), !quiet && !jsonOutput && shouldColorize(cmd.ErrOrStderr()))
			result, err := coord.Scan(bg, opts, progress.add)
			progress.finish()
			if err != nil {
				if errors.Is(err, services.ErrCancelled) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Scan cancelled; previous results were kept")
					return context.Canceled
				}
				return fmt.Errorf("scan %s: %w", directory, err)
			}

			if err := store.Set(bg, settings.KeyLastDirectory, directory); err != nil {
				logging.WarnWithContext(logger, "failed to remember scanned directory", "settings_write_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "the next scan needs an explicit directory"),
				)
			}
			saved := savedResult{
				SessionID:   coord.SessionID(),
				Directory:   directory,
				CompletedAt: time.Now().UTC(),
				Result:      coord.Store().Snapshot(),
			}
			if err := writeSavedResult(cfg.LastResultPath(), saved); err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, saved)
			}
			if quiet {
				return nil
			}
			return printScanResult(cmd, directory, result)
		},
	}

	cmd.Flags().StringVarP(&dirFlag, "dir", "d", "", "Directory to scan (alternative to the positional argument)")
	cmd.Flags().StringVar(&minSizeFlag, "min-size", "", "Ignore files smaller than this size (e.g. 4096, 10MB)")
	cmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Follow symbolic links while scanning")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress and the result table")
	return cmd
}

// selectDirectory resolves the directory to scan: the requested one, else the
// last scanned directory.
func selectDirectory(requested, last string) (string, error) {
	dir := strings.TrimSpace(requested)
	if dir == "" {
		dir = strings.TrimSpace(last)
	}
	if dir == "" {
		return "", services.Wrap(services.ErrValidation, "cli", "select directory",
			"no directory given and no previous scan to reuse", nil)
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return abs, nil
}

func printScanResult(cmd *cobra.Command, directory string, result scanresult.Result) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range scanSummaryLines(directory, result, colorize) {
		fmt.Fprintln(out, line)
	}
	if result.GroupCount() == 0 {
		fmt.Fprintln(out, "No duplicate files found.")
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderGroupTable(result))
	fmt.Fprintln(out, "Delete a copy with `dupefinder delete <group> <member>`.")
	return nil
}
