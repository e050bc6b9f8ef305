package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dupefinder/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change saved scan preferences",
	}
	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))
	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show saved scan preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			prefs, err := store.Load(commandCtx(cmd), settings.Defaults(cfg))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, prefs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSettingsTable(prefs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print settings as JSON")
	return cmd
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var (
		minSize        string
		followSymlinks bool
		lastDir        string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change saved scan preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("min-size") && !flags.Changed("follow-symlinks") && !flags.Changed("last-dir") {
				return errors.New("nothing to change; pass --min-size, --follow-symlinks or --last-dir")
			}
			cfg, err := ctx.ensureConfig()
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
			if flags.Changed("min-size") {
				if prefs.MinSize, err = parseSize(minSize); err != nil {
					return err
				}
			}
			if flags.Changed("follow-symlinks") {
				prefs.FollowSymlinks = followSymlinks
			}
			if flags.Changed("last-dir") {
				if lastDir == "" {
					prefs.LastDirectory = ""
				} else if prefs.LastDirectory, err = selectDirectory(lastDir, ""); err != nil {
					return err
				}
			}
			if err := store.Save(bg, prefs); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSettingsTable(prefs))
			return nil
		},
	}
	cmd.Flags().StringVar(&minSize, "min-size", "", "Minimum file size to consider (e.g. 0, 4096, 10MB)")
	cmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "Follow symbolic links by default")
	cmd.Flags().StringVar(&lastDir, "last-dir", "", "Directory reused when scan is run without one (empty clears it)")
	return cmd
}

func renderSettingsTable(prefs settings.Settings) string {
	lastDir := prefs.LastDirectory
	if lastDir == "" {
		lastDir = "-"
	}
	rows := [][]string{
		{settings.KeyMinSize, fmt.Sprintf("%s (%s bytes)", formatSize(prefs.MinSize), strconv.FormatInt(prefs.MinSize, 10))},
		{settings.KeyFollowSymlinks, yesNo(prefs.FollowSymlinks)},
		{settings.KeyLastDirectory, lastDir},
	}
	return renderTable([]string{"Setting", "Value"}, rows, nil)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
