package types

import (
	"encoding/json"
	"testing"
	"time"
)

// TestMinutesTransitionTableExhaustive walks every (from, to) pair and checks
// it against the permitted edge list.
func TestMinutesTransitionTableExhaustive(t *testing.T) {
	valid := map[[2]MinutesStatus]bool{
		{MinutesDraft, MinutesSubmitted}:    true,
		{MinutesRevised, MinutesSubmitted}:  true,
		{MinutesSubmitted, MinutesApproved}: true,
		{MinutesSubmitted, MinutesRevised}:  true,
		{MinutesApproved, MinutesPublished}: true,
		{MinutesPublished, MinutesArchived}: true,
	}

	for _, from := range AllMinutesStatuses {
		for _, to := range AllMinutesStatuses {
			want := valid[[2]MinutesStatus{from, to}]
			if got := CanTransitionMinutes(from, to); got != want {
				t.Errorf("CanTransitionMinutes(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}

	// Nothing leaves ARCHIVED
	for _, to := range AllMinutesStatuses {
		if CanTransitionMinutes(MinutesArchived, to) {
			t.Errorf("ARCHIVED must be terminal, but -> %s is allowed", to)
		}
	}
}

func TestMinutesStatusPredicates(t *testing.T) {
	tests := []struct {
		status   MinutesStatus
		editable bool
		inFlight bool
	}{
		{MinutesDraft, true, true},
		{MinutesSubmitted, false, true},
		{MinutesRevised, true, true},
		{MinutesApproved, false, true},
		{MinutesPublished, false, false},
		{MinutesArchived, false, false},
	}
	for _, tt := range tests {
		if got := tt.status.IsEditable(); got != tt.editable {
			t.Errorf("%s.IsEditable() = %v, want %v", tt.status, got, tt.editable)
		}
		if got := tt.status.IsInFlight(); got != tt.inFlight {
			t.Errorf("%s.IsInFlight() = %v, want %v", tt.status, got, tt.inFlight)
		}
	}
	if MinutesStatus("LOST").IsValid() {
		t.Error("unknown status should be invalid")
	}
}

func TestFlagTransitionTableExhaustive(t *testing.T) {
	valid := map[[2]FlagStatus]bool{
		{FlagOpen, FlagInProgress}:      true,
		{FlagInProgress, FlagResolved}:  true,
		{FlagInProgress, FlagDismissed}: true,
		{FlagResolved, FlagOpen}:        true,
		{FlagDismissed, FlagOpen}:       true,
	}

	for _, from := range AllFlagStatuses {
		for _, to := range AllFlagStatuses {
			want := valid[[2]FlagStatus{from, to}]
			if got := CanTransitionFlag(from, to); got != want {
				t.Errorf("CanTransitionFlag(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("2025-03-01")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.String() != "2025-03-01" {
		t.Errorf("String() = %q", d.String())
	}
	if d.Before(NewDate(2025, time.March, 1)) || NewDate(2025, time.March, 1).Before(d) {
		t.Errorf("ParseDate and NewDate disagree: %v", d)
	}

	data, err := json.Marshal(struct {
		D Date `json:"d"`
	}{d})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"d":"2025-03-01"}` {
		t.Errorf("Marshal = %s", data)
	}

	var out struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":null}`), &out); err != nil {
		t.Fatalf("Unmarshal null failed: %v", err)
	}
	if !out.D.IsZero() {
		t.Error("null should decode to the zero date")
	}

	if _, err := ParseDate("03/01/2025"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestMeetingValidate(t *testing.T) {
	m := Meeting{Date: NewDate(2025, time.March, 1), Type: MeetingBoard, CreatedBy: "alice"}
	if err := m.Validate(); err != nil {
		t.Errorf("valid meeting rejected: %v", err)
	}

	m.Type = "COFFEE"
	if err := m.Validate(); err == nil {
		t.Error("expected error for invalid meeting type")
	}

	m.Type = MeetingAnnual
	m.AttendanceCount = -1
	if err := m.Validate(); err == nil {
		t.Error("expected error for negative attendance")
	}

	if err := (MeetingUpdate{}).Validate(); err == nil {
		t.Error("expected error for empty update")
	}
}

func TestVoteValidate(t *testing.T) {
	if err := (Vote{Yes: 5, No: 2, Result: ResultPassed}).Validate(); err != nil {
		t.Errorf("valid vote rejected: %v", err)
	}
	if err := (Vote{Yes: -1, Result: ResultPassed}).Validate(); err == nil {
		t.Error("expected error for negative tally")
	}
	if err := (Vote{Result: "CARRIED"}).Validate(); err == nil {
		t.Error("expected error for result outside the enum")
	}
}

func TestMotionUpdateOnlyWithdraws(t *testing.T) {
	withdrawn := ResultWithdrawn
	if err := (MotionUpdate{Result: &withdrawn}).Validate(); err != nil {
		t.Errorf("WITHDRAWN via update rejected: %v", err)
	}
	passed := ResultPassed
	if err := (MotionUpdate{Result: &passed}).Validate(); err == nil {
		t.Error("expected error setting PASSED through update")
	}
}

func TestFlagUpdateRequiresResolution(t *testing.T) {
	resolved := FlagResolved
	if err := (FlagUpdate{Status: &resolved}).Validate(); err == nil {
		t.Error("expected error moving to RESOLVED without resolution")
	}
	blank := "   "
	if err := (FlagUpdate{Status: &resolved, Resolution: &blank}).Validate(); err == nil {
		t.Error("expected error for blank resolution")
	}
	text := "policy renewed"
	if err := (FlagUpdate{Status: &resolved, Resolution: &text}).Validate(); err != nil {
		t.Errorf("valid update rejected: %v", err)
	}
}

func TestReviewFlagIsOverdue(t *testing.T) {
	today := NewDate(2025, time.June, 10)
	f := ReviewFlag{Status: FlagOpen, DueDate: NewDate(2025, time.June, 9)}
	if !f.IsOverdue(today) {
		t.Error("open flag due yesterday should be overdue")
	}
	f.DueDate = today
	if f.IsOverdue(today) {
		t.Error("flag due today is not yet overdue")
	}
	f.DueDate = NewDate(2025, time.January, 1)
	f.Status = FlagResolved
	if f.IsOverdue(today) {
		t.Error("resolved flag is never overdue")
	}
}

func TestTargetValidity(t *testing.T) {
	if IsValidAnnotationTarget(TargetEvent) {
		t.Error("events cannot carry annotations")
	}
	if !IsValidFlagTarget(TargetEvent) {
		t.Error("events can carry review flags")
	}
	if !TargetMotion.IsGovernanceOwned() || TargetPage.IsGovernanceOwned() {
		t.Error("IsGovernanceOwned misclassified a target")
	}
}

func TestNormalizeContent(t *testing.T) {
	got, err := NormalizeContent(nil)
	if err != nil || string(got) != "{}" {
		t.Errorf("NormalizeContent(nil) = %s, %v", got, err)
	}
	if _, err := NormalizeContent(json.RawMessage(`{"blocks":[`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
