package types

import (
	"fmt"
	"strings"
	"time"
)

// MotionResult is the recorded outcome of a motion.
type MotionResult string

const (
	ResultPassed    MotionResult = "PASSED"
	ResultFailed    MotionResult = "FAILED"
	ResultTabled    MotionResult = "TABLED"
	ResultWithdrawn MotionResult = "WITHDRAWN"
)

// IsValid checks if the result value is valid
func (r MotionResult) IsValid() bool {
	switch r {
	case ResultPassed, ResultFailed, ResultTabled, ResultWithdrawn:
		return true
	}
	return false
}

// Motion is a proposal voted on during a meeting. Numbers are assigned at
// creation and are gapless per meeting.
type Motion struct {
	ID           string        `json:"id"`
	MeetingID    string        `json:"meeting_id"`
	MotionNumber int           `json:"motion_number"`
	MotionText   string        `json:"motion_text"`
	MovedBy      string        `json:"moved_by,omitempty"`
	SecondedBy   string        `json:"seconded_by,omitempty"`
	VotesYes     int           `json:"votes_yes"`
	VotesNo      int           `json:"votes_no"`
	VotesAbstain int           `json:"votes_abstain"`
	Result       *MotionResult `json:"result,omitempty"`
	ResultNotes  string        `json:"result_notes,omitempty"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	VotedAt      *time.Time    `json:"voted_at,omitempty"`
}

// HasResult reports whether an outcome has been recorded.
func (m *Motion) HasResult() bool {
	return m.Result != nil
}

// Validate checks if the motion has valid field values
func (m *Motion) Validate() error {
	if strings.TrimSpace(m.MeetingID) == "" {
		return fmt.Errorf("meeting_id is required")
	}
	if strings.TrimSpace(m.MotionText) == "" {
		return fmt.Errorf("motion_text is required")
	}
	if strings.TrimSpace(m.CreatedBy) == "" {
		return fmt.Errorf("created_by is required")
	}
	return nil
}

// MotionUpdate carries edits to a motion. Tallies are only set through a
// Vote; Result may only be set to WITHDRAWN here.
type MotionUpdate struct {
	MotionText *string       `json:"motion_text,omitempty"`
	MovedBy    *string       `json:"moved_by,omitempty"`
	SecondedBy *string       `json:"seconded_by,omitempty"`
	Result     *MotionResult `json:"result,omitempty"`
}

// Validate checks the update's field values
func (u MotionUpdate) Validate() error {
	if u.MotionText == nil && u.MovedBy == nil && u.SecondedBy == nil && u.Result == nil {
		return fmt.Errorf("no fields to update")
	}
	if u.MotionText != nil && strings.TrimSpace(*u.MotionText) == "" {
		return fmt.Errorf("motion_text cannot be empty")
	}
	if u.Result != nil && *u.Result != ResultWithdrawn {
		return fmt.Errorf("result can only be set to %s through update; record a vote instead", ResultWithdrawn)
	}
	return nil
}

// Vote is the complete outcome of a motion, recorded in a single call.
type Vote struct {
	Yes     int          `json:"votes_yes"`
	No      int          `json:"votes_no"`
	Abstain int          `json:"votes_abstain"`
	Result  MotionResult `json:"result"`
	Notes   string       `json:"result_notes,omitempty"`
}

// Validate checks the tallies and result
func (v Vote) Validate() error {
	if v.Yes < 0 || v.No < 0 || v.Abstain < 0 {
		return fmt.Errorf("vote tallies cannot be negative (yes=%d no=%d abstain=%d)", v.Yes, v.No, v.Abstain)
	}
	if !v.Result.IsValid() {
		return fmt.Errorf("invalid result: %q (want PASSED, FAILED, TABLED or WITHDRAWN)", v.Result)
	}
	return nil
}

// MotionStats aggregates a meeting's motions by outcome.
type MotionStats struct {
	MeetingID string `json:"meeting_id"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Tabled    int    `json:"tabled"`
	Withdrawn int    `json:"withdrawn"`
}
