package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/boardworks/govrec/internal/types"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// fail prints err and exits. Every command reports errors this way.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// emit prints v as JSON with --json, otherwise calls human.
func emit(v any, human func()) {
	if !jsonOutput {
		human()
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail(fmt.Errorf("failed to encode JSON: %w", err))
	}
	fmt.Println(string(data))
}

func done(format string, args ...any) {
	if jsonOutput {
		return
	}
	fmt.Printf("%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func minutesStatusColor(s types.MinutesStatus) string {
	switch s {
	case types.MinutesPublished:
		return green(s)
	case types.MinutesApproved:
		return cyan(s)
	case types.MinutesSubmitted, types.MinutesRevised:
		return yellow(s)
	case types.MinutesArchived:
		return gray(s)
	default:
		return string(s)
	}
}

func flagStatusColor(s types.FlagStatus) string {
	switch s {
	case types.FlagOpen:
		return yellow(s)
	case types.FlagInProgress:
		return cyan(s)
	case types.FlagResolved:
		return green(s)
	default:
		return gray(s)
	}
}

func printMeeting(m *types.Meeting) {
	fmt.Printf("%s %s %s\n", bold(m.Date.String()), m.Type, gray(m.ID))
	if m.Title != "" {
		fmt.Printf("  Title:      %s\n", m.Title)
	}
	if m.Location != "" {
		fmt.Printf("  Location:   %s\n", m.Location)
	}
	quorum := red("no")
	if m.QuorumMet {
		quorum = green("yes")
	}
	fmt.Printf("  Attendance: %d (quorum: %s)\n", m.AttendanceCount, quorum)
	fmt.Printf("  Created:    %s by %s\n", formatTime(&m.CreatedAt), m.CreatedBy)
}

func printMinutes(m *types.Minutes) {
	fmt.Printf("Minutes v%d %s %s\n", m.Version, minutesStatusColor(m.Status), gray(m.ID))
	if m.Summary != "" {
		fmt.Printf("  Summary:    %s\n", m.Summary)
	}
	if m.ReviewNotes != "" {
		fmt.Printf("  Review:     %s\n", m.ReviewNotes)
	}
	if m.ApprovalNotes != "" {
		fmt.Printf("  Approval:   %s\n", m.ApprovalNotes)
	}
	fmt.Printf("  Edited by:  %s\n", m.LastEditedBy)
	fmt.Printf("  Submitted:  %s\n", formatTime(m.SubmittedAt))
	fmt.Printf("  Approved:   %s\n", formatTime(m.ApprovedAt))
	fmt.Printf("  Published:  %s\n", formatTime(m.PublishedAt))
	if m.IsSuperseded() {
		fmt.Printf("  %s superseded by %s\n", yellow("⚠"), m.SupersededBy)
	}
}

func printMotion(m *types.Motion) {
	result := gray("pending")
	if m.Result != nil {
		switch *m.Result {
		case types.ResultPassed:
			result = green(*m.Result)
		case types.ResultFailed:
			result = red(*m.Result)
		default:
			result = yellow(*m.Result)
		}
	}
	fmt.Printf("#%d %s %s\n", m.MotionNumber, result, gray(m.ID))
	fmt.Printf("  %s\n", m.MotionText)
	if m.MovedBy != "" || m.SecondedBy != "" {
		fmt.Printf("  Moved: %s  Seconded: %s\n", m.MovedBy, m.SecondedBy)
	}
	if m.Result != nil && *m.Result != types.ResultWithdrawn {
		fmt.Printf("  Vote: %d yes, %d no, %d abstain\n", m.VotesYes, m.VotesNo, m.VotesAbstain)
	}
}

func printAnnotation(a *types.Annotation) {
	state := yellow("unpublished")
	if a.IsPublished {
		state = green("published")
	}
	fmt.Printf("%s %s:%s %s\n", gray(a.ID), a.TargetType, a.TargetID, state)
	if a.TargetMissing {
		fmt.Printf("  %s target no longer exists\n", yellow("⚠"))
	}
	if a.Anchor != "" {
		fmt.Printf("  at %s\n", a.Anchor)
	}
	fmt.Printf("  %s\n", a.Body)
	fmt.Printf("  %s\n", gray("by "+a.CreatedBy))
}

func printFlag(f *types.ReviewFlag, today types.Date) {
	due := "-"
	if !f.DueDate.IsZero() {
		due = f.DueDate.String()
		if f.IsOverdue(today) {
			due = red(due + " (overdue)")
		}
	}
	fmt.Printf("%s %s %s %s\n", flagStatusColor(f.Status), f.FlagType, bold(f.Title), gray(f.ID))
	fmt.Printf("  Target: %s:%s  Due: %s\n", f.TargetType, f.TargetID, due)
	if f.Resolution != "" {
		fmt.Printf("  Resolution: %s (%s, %s)\n", f.Resolution, f.ResolvedBy, formatTime(f.ResolvedAt))
	}
}

func printAudit(w io.Writer, e *types.AuditEntry) {
	fmt.Fprintf(w, "%s %-14s %-10s %s %s\n",
		gray(e.CreatedAt.Local().Format("2006-01-02 15:04:05")),
		e.Action, e.ObjectType, e.ObjectID, cyan(e.ActorID))
	if from, ok := e.Metadata["from"]; ok {
		fmt.Fprintf(w, "  %v → %v\n", from, e.Metadata["to"])
	}
}

// readContent returns inline JSON, the contents of a file, or stdin for "-".
func readContent(inline, file string) (json.RawMessage, error) {
	switch {
	case inline != "" && file != "":
		return nil, fmt.Errorf("use either --content or --content-file, not both")
	case inline != "":
		return json.RawMessage(inline), nil
	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading content file: %w", err)
		}
		return data, nil
	}
	return nil, nil
}
