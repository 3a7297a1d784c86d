package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boardworks/govrec/internal/types"
)

var meetingCmd = &cobra.Command{
	Use:   "meeting",
	Short: "Record and list board meetings",
}

var meetingCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a meeting",
	Long: `Record that a meeting took place. At most one meeting of each type may be
held on a date.

Example:
  govrec meeting create --date 2024-05-14 --type BOARD --title "May board meeting"`,
	Run: func(cmd *cobra.Command, args []string) {
		dateStr, _ := cmd.Flags().GetString("date")
		typeStr, _ := cmd.Flags().GetString("type")
		title, _ := cmd.Flags().GetString("title")
		location, _ := cmd.Flags().GetString("location")
		attendance, _ := cmd.Flags().GetInt("attendance")
		quorum, _ := cmd.Flags().GetBool("quorum")

		date, err := types.ParseDate(dateStr)
		if err != nil {
			fail(err)
		}
		m, err := svc.CreateMeeting(cmd.Context(), &types.Meeting{
			Date:            date,
			Type:            types.MeetingType(strings.ToUpper(typeStr)),
			Title:           title,
			Location:        location,
			AttendanceCount: attendance,
			QuorumMet:       quorum,
		}, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Recorded %s meeting on %s", m.Type, m.Date)
			printMeeting(m)
		})
	},
}

var meetingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List meetings, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		typeStr, _ := cmd.Flags().GetString("type")
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := types.MeetingFilter{Page: types.Page{Limit: limit}}
		if typeStr != "" {
			mt := types.MeetingType(strings.ToUpper(typeStr))
			filter.Type = &mt
		}
		var err error
		if fromStr != "" {
			if filter.From, err = types.ParseDate(fromStr); err != nil {
				fail(err)
			}
		}
		if toStr != "" {
			if filter.To, err = types.ParseDate(toStr); err != nil {
				fail(err)
			}
		}

		items, err := svc.ListMeetings(cmd.Context(), filter)
		if err != nil {
			fail(err)
		}
		emit(items, func() {
			if len(items) == 0 {
				fmt.Printf("%s\n", yellow("No meetings found"))
				return
			}
			for _, item := range items {
				minutes := gray("no minutes")
				if item.LatestMinutes != nil {
					minutes = fmt.Sprintf("minutes v%d %s", item.LatestMinutes.Version, minutesStatusColor(item.LatestMinutes.Status))
				}
				fmt.Printf("%s %-9s %-30s %s, %d motions  %s\n",
					bold(item.Date.String()), item.Type, item.Title, minutes, item.MotionCount, gray(item.ID))
			}
		})
	},
}

var meetingShowCmd = &cobra.Command{
	Use:   "show <meeting-id>",
	Short: "Show a meeting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := svc.GetMeeting(cmd.Context(), args[0])
		if err != nil {
			fail(err)
		}
		emit(m, func() { printMeeting(m) })
	},
}

var meetingUpdateCmd = &cobra.Command{
	Use:   "update <meeting-id>",
	Short: "Edit title, location, attendance or quorum",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var update types.MeetingUpdate
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			update.Title = &v
		}
		if cmd.Flags().Changed("location") {
			v, _ := cmd.Flags().GetString("location")
			update.Location = &v
		}
		if cmd.Flags().Changed("attendance") {
			v, _ := cmd.Flags().GetInt("attendance")
			update.AttendanceCount = &v
		}
		if cmd.Flags().Changed("quorum") {
			v, _ := cmd.Flags().GetBool("quorum")
			update.QuorumMet = &v
		}
		m, err := svc.UpdateMeeting(cmd.Context(), args[0], update, currentActor())
		if err != nil {
			fail(err)
		}
		emit(m, func() {
			done("Updated meeting %s", m.ID)
			printMeeting(m)
		})
	},
}

var meetingDeleteCmd = &cobra.Command{
	Use:   "delete <meeting-id>",
	Short: "Delete a meeting that has no minutes or motions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := svc.DeleteMeeting(cmd.Context(), args[0], currentActor()); err != nil {
			fail(err)
		}
		done("Deleted meeting %s", args[0])
	},
}

func init() {
	meetingCreateCmd.Flags().String("date", "", "Meeting date (YYYY-MM-DD)")
	meetingCreateCmd.Flags().String("type", "BOARD", "BOARD, EXECUTIVE, SPECIAL or ANNUAL")
	meetingCreateCmd.Flags().String("title", "", "Title")
	meetingCreateCmd.Flags().String("location", "", "Location")
	meetingCreateCmd.Flags().Int("attendance", 0, "Number of attendees")
	meetingCreateCmd.Flags().Bool("quorum", false, "Quorum was met")
	_ = meetingCreateCmd.MarkFlagRequired("date")

	meetingListCmd.Flags().String("type", "", "Filter by meeting type")
	meetingListCmd.Flags().String("from", "", "Earliest date (YYYY-MM-DD)")
	meetingListCmd.Flags().String("to", "", "Latest date (YYYY-MM-DD)")
	meetingListCmd.Flags().IntP("limit", "n", 0, "Maximum meetings to show")

	meetingUpdateCmd.Flags().String("title", "", "Title")
	meetingUpdateCmd.Flags().String("location", "", "Location")
	meetingUpdateCmd.Flags().Int("attendance", 0, "Number of attendees")
	meetingUpdateCmd.Flags().Bool("quorum", false, "Quorum was met")

	meetingCmd.AddCommand(meetingCreateCmd, meetingListCmd, meetingShowCmd, meetingUpdateCmd, meetingDeleteCmd)
	rootCmd.AddCommand(meetingCmd)
}
