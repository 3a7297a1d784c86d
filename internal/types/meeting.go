package types

import (
	"fmt"
	"strings"
	"time"
)

// MeetingType categorizes a board meeting. At most one meeting of each type
// may be held on a calendar date.
type MeetingType string

const (
	MeetingBoard     MeetingType = "BOARD"
	MeetingExecutive MeetingType = "EXECUTIVE"
	MeetingSpecial   MeetingType = "SPECIAL"
	MeetingAnnual    MeetingType = "ANNUAL"
)

// IsValid checks if the meeting type value is valid
func (t MeetingType) IsValid() bool {
	switch t {
	case MeetingBoard, MeetingExecutive, MeetingSpecial, MeetingAnnual:
		return true
	}
	return false
}

// Meeting records that a meeting occurred. Minutes and motions hang off it.
type Meeting struct {
	ID              string      `json:"id"`
	Date            Date        `json:"date"`
	Type            MeetingType `json:"type"`
	Title           string      `json:"title,omitempty"`
	Location        string      `json:"location,omitempty"`
	AttendanceCount int         `json:"attendance_count"`
	QuorumMet       bool        `json:"quorum_met"`
	CreatedBy       string      `json:"created_by"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Validate checks if the meeting has valid field values
func (m *Meeting) Validate() error {
	if m.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid meeting type: %q", m.Type)
	}
	if m.AttendanceCount < 0 {
		return fmt.Errorf("attendance_count cannot be negative (got %d)", m.AttendanceCount)
	}
	if len(m.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(m.Title))
	}
	if strings.TrimSpace(m.CreatedBy) == "" {
		return fmt.Errorf("created_by is required")
	}
	return nil
}

// MeetingUpdate carries the mutable, non-identity meeting fields. Date and
// type identify the meeting and are never updated.
type MeetingUpdate struct {
	Title           *string `json:"title,omitempty"`
	Location        *string `json:"location,omitempty"`
	AttendanceCount *int    `json:"attendance_count,omitempty"`
	QuorumMet       *bool   `json:"quorum_met,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u MeetingUpdate) IsEmpty() bool {
	return u.Title == nil && u.Location == nil && u.AttendanceCount == nil && u.QuorumMet == nil
}

// Validate checks the update's field values
func (u MeetingUpdate) Validate() error {
	if u.IsEmpty() {
		return fmt.Errorf("no fields to update")
	}
	if u.AttendanceCount != nil && *u.AttendanceCount < 0 {
		return fmt.Errorf("attendance_count cannot be negative (got %d)", *u.AttendanceCount)
	}
	if u.Title != nil && len(*u.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(*u.Title))
	}
	return nil
}

// MeetingFilter selects meetings for ListMeetings. From and To are inclusive.
type MeetingFilter struct {
	Type *MeetingType
	From Date
	To   Date
	Page
}

// MinutesSummary is the read-side view of a meeting's current minutes version.
type MinutesSummary struct {
	ID      string        `json:"id"`
	Version int           `json:"version"`
	Status  MinutesStatus `json:"status"`
}

// MeetingListItem is a meeting joined with its current minutes and motion count.
type MeetingListItem struct {
	Meeting
	LatestMinutes *MinutesSummary `json:"latest_minutes,omitempty"`
	MotionCount   int             `json:"motion_count"`
}
