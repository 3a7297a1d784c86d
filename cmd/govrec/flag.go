package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardworks/govrec/internal/types"
)

var flagCmd = &cobra.Command{
	Use:   "flag",
	Short: "Track compliance review flags",
	Long: `Review flags are follow-ups raised against any document or event. They move
OPEN → IN_PROGRESS → RESOLVED or DISMISSED, and a closed flag can be reopened.`,
}

func today() types.Date {
	return types.DateOf(time.Now())
}

var flagAddCmd = &cobra.Command{
	Use:   "add <type:id> <title>",
	Short: "Raise a review flag against a target",
	Long: `Raise a review flag. Example:

  govrec flag add policy:travel-2024 "Confirm insurance coverage" \
    --type INSURANCE_REVIEW --due 2024-07-01`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		targetType, targetID, err := parseTarget(args[0])
		if err != nil {
			fail(err)
		}
		flagType, _ := cmd.Flags().GetString("type")
		notes, _ := cmd.Flags().GetString("notes")
		dueStr, _ := cmd.Flags().GetString("due")

		input := &types.ReviewFlag{
			TargetType: targetType,
			TargetID:   targetID,
			FlagType:   types.FlagType(strings.ToUpper(flagType)),
			Title:      args[1],
			Notes:      notes,
		}
		if dueStr != "" {
			if input.DueDate, err = types.ParseDate(dueStr); err != nil {
				fail(err)
			}
		}
		f, err := svc.CreateFlag(cmd.Context(), input, currentActor())
		if err != nil {
			fail(err)
		}
		emit(f, func() {
			done("Raised flag %s", f.ID)
			printFlag(f, today())
		})
	},
}

func printFlags(flags []*types.ReviewFlag, empty string) {
	if len(flags) == 0 {
		fmt.Printf("%s\n", yellow(empty))
		return
	}
	now := today()
	for _, f := range flags {
		printFlag(f, now)
	}
}

var flagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review flags, soonest due first",
	Run: func(cmd *cobra.Command, args []string) {
		var filter types.FlagFilter
		if target, _ := cmd.Flags().GetString("target"); target != "" {
			t, id, err := parseTarget(target)
			if err != nil {
				fail(err)
			}
			filter.TargetType, filter.TargetID = t, id
		}
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			status := types.FlagStatus(strings.ToUpper(s))
			filter.Status = &status
		}
		if s, _ := cmd.Flags().GetString("type"); s != "" {
			ft := types.FlagType(strings.ToUpper(s))
			filter.FlagType = &ft
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		flags, err := svc.ListFlags(cmd.Context(), filter)
		if err != nil {
			fail(err)
		}
		emit(flags, func() { printFlags(flags, "No review flags found") })
	},
}

var flagOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List open flags past their due date",
	Run: func(cmd *cobra.Command, args []string) {
		asOf := today()
		if s, _ := cmd.Flags().GetString("as-of"); s != "" {
			var err error
			if asOf, err = types.ParseDate(s); err != nil {
				fail(err)
			}
		}
		flags, err := svc.GetOverdueFlags(cmd.Context(), asOf)
		if err != nil {
			fail(err)
		}
		emit(flags, func() { printFlags(flags, "No overdue flags") })
	},
}

var flagShowCmd = &cobra.Command{
	Use:   "show <flag-id>",
	Short: "Show a review flag",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := svc.GetFlag(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		emit(f, func() {
			printFlag(f, today())
			if f.Notes != "" {
				fmt.Printf("  Notes: %s\n", f.Notes)
			}
		})
	},
}

var flagUpdateCmd = &cobra.Command{
	Use:   "update <flag-id>",
	Short: "Edit a flag's title, notes or due date",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var update types.FlagUpdate
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			update.Title = &v
		}
		if cmd.Flags().Changed("notes") {
			v, _ := cmd.Flags().GetString("notes")
			update.Notes = &v
		}
		if cmd.Flags().Changed("due") {
			v, _ := cmd.Flags().GetString("due")
			if v == "" {
				update.ClearDueDate = true
			} else {
				d, err := types.ParseDate(v)
				if err != nil {
					fail(err)
				}
				update.DueDate = &d
			}
		}
		f, err := svc.UpdateFlag(cmd.Context(), args[0], update, currentActor())
		if err != nil {
			fail(err)
		}
		emit(f, func() {
			done("Updated flag %s", f.ID)
			printFlag(f, today())
		})
	},
}

// flagTransitionCmd builds a command that moves a flag along its workflow.
func flagTransitionCmd(use, short string, needsResolution bool, apply func(cmd *cobra.Command, id, resolution, actor string) (*types.ReviewFlag, error)) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " <flag-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			resolution := ""
			if needsResolution {
				resolution, _ = cmd.Flags().GetString("resolution")
			}
			f, err := apply(cmd, args[0], resolution, currentActor())
			if err != nil {
				fail(err)
			}
			emit(f, func() {
				done("Flag %s → %s", f.ID, flagStatusColor(f.Status))
			})
		},
	}
	if needsResolution {
		c.Flags().StringP("resolution", "r", "", "How the flag was concluded (required)")
		_ = c.MarkFlagRequired("resolution")
	}
	return c
}

var flagStartCmd = flagTransitionCmd("start", "Begin work on an open flag", false,
	func(cmd *cobra.Command, id, _, actor string) (*types.ReviewFlag, error) {
		return svc.StartFlag(cmd.Context(), id, actor)
	})

var flagResolveCmd = flagTransitionCmd("resolve", "Resolve a flag in progress", true,
	func(cmd *cobra.Command, id, resolution, actor string) (*types.ReviewFlag, error) {
		return svc.ResolveFlag(cmd.Context(), id, resolution, actor)
	})

var flagDismissCmd = flagTransitionCmd("dismiss", "Dismiss a flag in progress", true,
	func(cmd *cobra.Command, id, resolution, actor string) (*types.ReviewFlag, error) {
		return svc.DismissFlag(cmd.Context(), id, resolution, actor)
	})

var flagReopenCmd = flagTransitionCmd("reopen", "Reopen a resolved or dismissed flag", false,
	func(cmd *cobra.Command, id, _, actor string) (*types.ReviewFlag, error) {
		return svc.ReopenFlag(cmd.Context(), id, actor)
	})

var flagDeleteCmd = &cobra.Command{
	Use:   "delete <flag-id>",
	Short: "Delete a review flag",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.DeleteFlag(cmd.Context(), args[0], currentActor()); err != nil {
			fail(err)
		}
		done("Deleted flag %s", args[0])
	},
}

func init() {
	flagAddCmd.Flags().String("type", string(types.FlagGeneral), "INSURANCE_REVIEW, LEGAL_REVIEW, POLICY_REVIEW, COMPLIANCE_CHECK or GENERAL")
	flagAddCmd.Flags().String("notes", "", "Details for the reviewer")
	flagAddCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")

	flagListCmd.Flags().String("target", "", "Filter by target (type:id)")
	flagListCmd.Flags().String("status", "", "Filter by status")
	flagListCmd.Flags().String("type", "", "Filter by flag type")
	flagListCmd.Flags().IntP("limit", "n", 0, "Maximum flags to show")

	flagOverdueCmd.Flags().String("as-of", "", "Evaluate as of this date (default: today)")

	flagUpdateCmd.Flags().String("title", "", "Title")
	flagUpdateCmd.Flags().String("notes", "", "Notes")
	flagUpdateCmd.Flags().String("due", "", "Due date (YYYY-MM-DD, empty to clear)")

	flagCmd.AddCommand(
		flagAddCmd,
		flagListCmd,
		flagOverdueCmd,
		flagShowCmd,
		flagUpdateCmd,
		flagStartCmd,
		flagResolveCmd,
		flagDismissCmd,
		flagReopenCmd,
		flagDeleteCmd,
	)
	rootCmd.AddCommand(flagCmd)
}
