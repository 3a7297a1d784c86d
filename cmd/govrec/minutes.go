package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boardworks/govrec/internal/types"
)

var minutesCmd = &cobra.Command{
	Use:   "minutes",
	Short: "Draft, review and publish meeting minutes",
	Long: `Minutes move through DRAFT → SUBMITTED → APPROVED → PUBLISHED → ARCHIVED.
A reviewer may send SUBMITTED minutes back with request-revision, which
creates a new REVISED version carrying the review notes.`,
}

var minutesCreateCmd = &cobra.Command{
	Use:   "create <meeting-id>",
	Short: "Create the first draft of a meeting's minutes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inline, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("content-file")
		summary, _ := cmd.Flags().GetString("summary")

		content, err := readContent(inline, file)
		if err != nil {
			fail(err)
		}
		m, err := svc.CreateMinutes(cmd.Context(), args[0], content, summary, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Created minutes v%d for meeting %s", m.Version, args[0])
			printMinutes(m)
		})
	},
}

var minutesShowCmd = &cobra.Command{
	Use:   "show <minutes-id>",
	Short: "Show one version of a meeting's minutes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := svc.GetMinutes(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		showContent, _ := cmd.Flags().GetBool("content")
		emit(m, func() {
			printMinutes(m)
			if showContent && len(m.Content) > 0 {
				fmt.Printf("\n%s\n", string(m.Content))
			}
		})
	},
}

var minutesCurrentCmd = &cobra.Command{
	Use:   "current <meeting-id>",
	Short: "Show the current version of a meeting's minutes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := svc.GetCurrentMinutes(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		emit(m, func() { printMinutes(m) })
	},
}

var minutesHistoryCmd = &cobra.Command{
	Use:   "history <meeting-id>",
	Short: "List every minutes version for a meeting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		versions, err := svc.ListMinutesVersions(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		emit(versions, func() {
			if len(versions) == 0 {
				fmt.Printf("%s\n", yellow("No minutes recorded for this meeting"))
				return
			}
			for _, m := range versions {
				marker := " "
				if !m.IsSuperseded() {
					marker = green("*")
				}
				fmt.Printf("%s v%-3d %-10s %s  %s\n", marker, m.Version, minutesStatusColor(m.Status), m.LastEditedBy, gray(m.ID))
			}
		})
	},
}

var minutesEditCmd = &cobra.Command{
	Use:   "edit <minutes-id>",
	Short: "Replace the content or summary of a draft",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inline, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("content-file")

		var update types.MinutesUpdate
		content, err := readContent(inline, file)
		if err != nil {
			fail(err)
		}
		update.Content = content
		if cmd.Flags().Changed("summary") {
			v, _ := cmd.Flags().GetString("summary")
			update.Summary = &v
		}
		m, err := svc.UpdateMinutes(cmd.Context(), args[0], update, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Updated minutes v%d", m.Version)
		})
	},
}

// minutesTransitionCmd builds a command that moves one minutes version to
// the next state.
func minutesTransitionCmd(use, short, verb string, apply func(cmd *cobra.Command, id, actor string) (*types.Minutes, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <minutes-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			m, err := apply(cmd, args[0], currentActor())
			if err != nil {
				fail(err)
			}
			emit(m, func() {
				done("%s minutes v%d → %s", verb, m.Version, minutesStatusColor(m.Status))
			})
		},
	}
}

var minutesSubmitCmd = minutesTransitionCmd("submit", "Submit a draft for approval", "Submitted",
	func(cmd *cobra.Command, id, actor string) (*types.Minutes, error) {
		return svc.SubmitMinutes(cmd.Context(), id, actor)
	})

var minutesApproveCmd = minutesTransitionCmd("approve", "Approve submitted minutes", "Approved",
	func(cmd *cobra.Command, id, actor string) (*types.Minutes, error) {
		notes, _ := cmd.Flags().GetString("notes")
		return svc.ApproveMinutes(cmd.Context(), id, actor, notes)
	})

var minutesRequestRevisionCmd = minutesTransitionCmd("request-revision", "Send submitted minutes back with review notes", "Requested revision of",
	func(cmd *cobra.Command, id, actor string) (*types.Minutes, error) {
		notes, _ := cmd.Flags().GetString("notes")
		return svc.RequestRevision(cmd.Context(), id, actor, notes)
	})

var minutesPublishCmd = minutesTransitionCmd("publish", "Publish approved minutes", "Published",
	func(cmd *cobra.Command, id, actor string) (*types.Minutes, error) {
		return svc.PublishMinutes(cmd.Context(), id, actor)
	})

var minutesArchiveCmd = minutesTransitionCmd("archive", "Archive published minutes", "Archived",
	func(cmd *cobra.Command, id, actor string) (*types.Minutes, error) {
		return svc.ArchiveMinutes(cmd.Context(), id, actor)
	})

var minutesReviseCmd = &cobra.Command{
	Use:   "revise <meeting-id>",
	Short: "Start a new draft from the current revised, published or archived version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		from, _ := cmd.Flags().GetString("from")
		inline, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("content-file")

		content, err := readContent(inline, file)
		if err != nil {
			fail(err)
		}
		if from == "" {
			current, err := svc.GetCurrentMinutes(cmd.Context(), args[0])
			if err != nil {
				fail(err)
			}
			from = current.ID
		}
		m, err := svc.CreateMinutesRevision(cmd.Context(), args[0], from, content, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Created draft v%d from %s", m.Version, from)
			printMinutes(m)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{minutesCreateCmd, minutesEditCmd, minutesReviseCmd} {
		c.Flags().String("content", "", "Minutes content as JSON")
		c.Flags().String("content-file", "", "Read JSON content from a file (- for stdin)")
	}
	minutesCreateCmd.Flags().String("summary", "", "Short summary")
	minutesEditCmd.Flags().String("summary", "", "Short summary")
	minutesShowCmd.Flags().Bool("content", false, "Print the content document")
	minutesApproveCmd.Flags().String("notes", "", "Approval notes")
	minutesRequestRevisionCmd.Flags().String("notes", "", "What needs to change (required)")
	_ = minutesRequestRevisionCmd.MarkFlagRequired("notes")
	minutesReviseCmd.Flags().String("from", "", "Version to revise (default: current version)")

	minutesCmd.AddCommand(
		minutesCreateCmd,
		minutesShowCmd,
		minutesCurrentCmd,
		minutesHistoryCmd,
		minutesEditCmd,
		minutesSubmitCmd,
		minutesApproveCmd,
		minutesRequestRevisionCmd,
		minutesPublishCmd,
		minutesArchiveCmd,
		minutesReviseCmd,
	)
	rootCmd.AddCommand(minutesCmd)
}
