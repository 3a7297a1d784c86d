package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boardworks/govrec/internal/types"
)

var motionCmd = &cobra.Command{
	Use:   "motion",
	Short: "Record motions and their votes",
}

var motionAddCmd = &cobra.Command{
	Use:   "add <meeting-id> <text>",
	Short: "Add a motion to a meeting",
	Long: `Add a motion to a meeting. Motions are numbered 1, 2, 3... within each
meeting in the order they are added.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		movedBy, _ := cmd.Flags().GetString("moved-by")
		secondedBy, _ := cmd.Flags().GetString("seconded-by")

		m, err := svc.CreateMotion(cmd.Context(), args[0], &types.Motion{
			MotionText: args[1],
			MovedBy:    movedBy,
			SecondedBy: secondedBy,
		}, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Added motion #%d", m.MotionNumber)
			printMotion(m)
		})
	},
}

var motionListCmd = &cobra.Command{
	Use:   "list <meeting-id>",
	Short: "List a meeting's motions in order",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		motions, err := svc.ListMotions(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		emit(motions, func() {
			if len(motions) == 0 {
				fmt.Printf("%s\n", yellow("No motions recorded for this meeting"))
				return
			}
			for _, m := range motions {
				printMotion(m)
			}
		})
	},
}

var motionShowCmd = &cobra.Command{
	Use:   "show <motion-id>",
	Short: "Show a motion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := svc.GetMotion(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		emit(m, func() { printMotion(m) })
	},
}

var motionUpdateCmd = &cobra.Command{
	Use:   "update <motion-id>",
	Short: "Edit a motion's text or movers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var update types.MotionUpdate
		if cmd.Flags().Changed("text") {
			v, _ := cmd.Flags().GetString("text")
			update.MotionText = &v
		}
		if cmd.Flags().Changed("moved-by") {
			v, _ := cmd.Flags().GetString("moved-by")
			update.MovedBy = &v
		}
		if cmd.Flags().Changed("seconded-by") {
			v, _ := cmd.Flags().GetString("seconded-by")
			update.SecondedBy = &v
		}
		m, err := svc.UpdateMotion(cmd.Context(), args[0], update, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Updated motion #%d", m.MotionNumber)
			printMotion(m)
		})
	},
}

var motionVoteCmd = &cobra.Command{
	Use:   "vote <motion-id>",
	Short: "Record the vote and outcome of a motion",
	Long: `Record the complete outcome of a motion in one step.

Example:
  govrec motion vote <id> --yes 5 --no 1 --abstain 1 --result PASSED`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetInt("yes")
		no, _ := cmd.Flags().GetInt("no")
		abstain, _ := cmd.Flags().GetInt("abstain")
		result, _ := cmd.Flags().GetString("result")
		notes, _ := cmd.Flags().GetString("notes")

		m, err := svc.RecordVote(cmd.Context(), args[0], types.Vote{
			Yes:     yes,
			No:      no,
			Abstain: abstain,
			Result:  types.MotionResult(strings.ToUpper(result)),
			Notes:   notes,
		}, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Recorded vote on motion #%d", m.MotionNumber)
			printMotion(m)
		})
	},
}

var motionWithdrawCmd = &cobra.Command{
	Use:   "withdraw <motion-id>",
	Short: "Mark a motion as withdrawn",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withdrawn := types.ResultWithdrawn
		m, err := svc.UpdateMotion(cmd.Context(), args[0], types.MotionUpdate{Result: &withdrawn}, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Withdrew motion #%d", m.MotionNumber)
		})
	},
}

var motionDeleteCmd = &cobra.Command{
	Use:   "delete <motion-id>",
	Short: "Delete a motion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.DeleteMotion(cmd.Context(), args[0], currentActor()); err != nil {
			fail(err)
		}
		done("Deleted motion %s", args[0])
	},
}

var motionStatsCmd = &cobra.Command{
	Use:   "stats <meeting-id>",
	Short: "Summarize a meeting's motions by outcome",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		stats, err := svc.GetMeetingMotionStats(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		emit(stats, func() {
			fmt.Printf("%s %d motions\n", bold("Total:"), stats.Total)
			fmt.Printf("  Passed:    %s\n", green(stats.Passed))
			fmt.Printf("  Failed:    %s\n", red(stats.Failed))
			fmt.Printf("  Tabled:    %s\n", yellow(stats.Tabled))
			fmt.Printf("  Withdrawn: %s\n", gray(stats.Withdrawn))
			fmt.Printf("  Pending:   %d\n", stats.Pending)
		})
	},
}

func init() {
	motionAddCmd.Flags().String("moved-by", "", "Director who moved")
	motionAddCmd.Flags().String("seconded-by", "", "Director who seconded")

	motionUpdateCmd.Flags().String("text", "", "Motion text")
	motionUpdateCmd.Flags().String("moved-by", "", "Director who moved")
	motionUpdateCmd.Flags().String("seconded-by", "", "Director who seconded")

	motionVoteCmd.Flags().Int("yes", 0, "Votes in favor")
	motionVoteCmd.Flags().Int("no", 0, "Votes against")
	motionVoteCmd.Flags().Int("abstain", 0, "Abstentions")
	motionVoteCmd.Flags().String("result", "", "PASSED, FAILED, TABLED or WITHDRAWN")
	motionVoteCmd.Flags().String("notes", "", "Notes on the outcome")
	_ = motionVoteCmd.MarkFlagRequired("result")

	motionCmd.AddCommand(
		motionAddCmd,
		motionListCmd,
		motionShowCmd,
		motionUpdateCmd,
		motionVoteCmd,
		motionWithdrawCmd,
		motionDeleteCmd,
		motionStatsCmd,
	)
	rootCmd.AddCommand(motionCmd)
}
