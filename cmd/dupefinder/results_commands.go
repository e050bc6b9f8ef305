package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dupefinder/internal/groupstore"
	"dupefinder/internal/services"
)

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show duplicate groups from the last completed scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			saved, err := loadSavedResult(cfg.LastResultPath())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, saved)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scan %s of %s at %s\n", shortID(saved.SessionID), saved.Directory, formatWhen(saved.CompletedAt))
			return printScanResult(cmd, saved.Directory, saved.Result)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the stored result as JSON")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var pathFlag string

	cmd := &cobra.Command{
		Use:   "delete [<group> <member>]",
		Short: "Delete one duplicate from the last completed scan",
		Long: "Delete a file listed by `dupefinder groups`, addressed by its 1-based group and member\n" +
			"numbers or by --path. The stored result is updated only when the file was removed.",
		Args: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(pathFlag) != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			release, err := ctx.acquireScanLock()
			defer release()
			if err != nil {
				return err
			}

			saved, err := loadSavedResult(cfg.LastResultPath())
			if err != nil {
				return err
			}
			coord, err := ctx.newCoordinator(nil)
			if err != nil {
				return err
			}
			coord.Store().Load(saved.Result)

			bg := commandCtx(cmd)
			var outcome groupstore.MutationOutcome
			if path := strings.TrimSpace(pathFlag); path != "" {
				outcome, err = coord.DeleteFile(bg, path)
			} else {
				g, m, perr := parseMemberRef(args[0], args[1])
				if perr != nil {
					return perr
				}
				outcome, err = coord.DeleteMember(bg, g, m)
			}
			if err != nil {
				return err
			}

			saved.Result = coord.Store().Snapshot()
			if err := writeSavedResult(cfg.LastResultPath(), saved); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted %s\n", outcome.Path)
			if outcome.GroupRemoved {
				fmt.Fprintln(out, "Group resolved: no duplicates remain for this content.")
			}
			fmt.Fprintf(out, "%s duplicate groups remain\n", formatCount(outcome.RemainingGroups))
			return nil
		},
	}
	cmd.Flags().StringVar(&pathFlag, "path", "", "Delete this path instead of addressing it by number")
	return cmd
}

// parseMemberRef converts 1-based CLI numbers to store indices.
func parseMemberRef(groupArg, memberArg string) (int, int, error) {
	g, err := strconv.Atoi(strings.TrimSpace(groupArg))
	if err != nil || g < 1 {
		return 0, 0, services.Wrap(services.ErrIndexOutOfRange, "cli", "delete",
			fmt.Sprintf("invalid group number %q", groupArg), nil)
	}
	m, err := strconv.Atoi(strings.TrimSpace(memberArg))
	if err != nil || m < 1 {
		return 0, 0, services.Wrap(services.ErrIndexOutOfRange, "cli", "delete",
			fmt.Sprintf("invalid member number %q", memberArg), nil)
	}
	return g - 1, m - 1, nil
}
