package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dupefinder/internal/locator"
)

func newEngineCommand(ctx *commandContext) *cobra.Command {
	engineCmd := &cobra.Command{
		Use:   "engine",
		Short: "Inspect or build the scanning engine",
	}
	engineCmd.AddCommand(newEngineStatusCommand(ctx))
	engineCmd.AddCommand(newEngineBuildCommand(ctx))
	return engineCmd
}

func newEngineStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the engine is expected and whether it is ready",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := ctx.newLocator()
			if err != nil {
				return err
			}
			mode, err := ctx.engineMode()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			statuses := []locator.Status{loc.Status(locator.ModePackaged), loc.Status(locator.ModeDevelopment)}
			for _, line := range renderSectionHeader("Engine", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range engineStatusLines(statuses, mode, colorize) {
				fmt.Fprintln(out, line)
			}
			if _, _, err := loc.Locate(mode); err != nil {
				return err
			}
			return nil
		},
	}
}

func newEngineBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the development engine now",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := ctx.newLocator()
			if err != nil {
				return err
			}
			path, err := loc.Build(commandCtx(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Engine built at %s\n", path)
			return nil
		},
	}
}
