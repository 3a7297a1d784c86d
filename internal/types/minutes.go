package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// MinutesStatus is the workflow state of one minutes version.
type MinutesStatus string

const (
	MinutesDraft     MinutesStatus = "DRAFT"
	MinutesSubmitted MinutesStatus = "SUBMITTED"
	MinutesRevised   MinutesStatus = "REVISED"
	MinutesApproved  MinutesStatus = "APPROVED"
	MinutesPublished MinutesStatus = "PUBLISHED"
	MinutesArchived  MinutesStatus = "ARCHIVED"
)

// AllMinutesStatuses lists every state in workflow order.
var AllMinutesStatuses = []MinutesStatus{
	MinutesDraft, MinutesSubmitted, MinutesRevised,
	MinutesApproved, MinutesPublished, MinutesArchived,
}

// IsValid checks if the status value is valid
func (s MinutesStatus) IsValid() bool {
	switch s {
	case MinutesDraft, MinutesSubmitted, MinutesRevised,
		MinutesApproved, MinutesPublished, MinutesArchived:
		return true
	}
	return false
}

func (s MinutesStatus) String() string { return string(s) }

// IsEditable reports whether content and summary may be changed in place.
// Any other state means the document is on another actor's desk or frozen.
func (s MinutesStatus) IsEditable() bool {
	return s == MinutesDraft || s == MinutesRevised
}

// IsInFlight reports whether the version has not yet been published or archived.
func (s MinutesStatus) IsInFlight() bool {
	switch s {
	case MinutesDraft, MinutesSubmitted, MinutesRevised, MinutesApproved:
		return true
	}
	return false
}

// minutesTransitions is the single source of truth for the minutes workflow.
var minutesTransitions = map[MinutesStatus][]MinutesStatus{
	MinutesDraft:     {MinutesSubmitted},
	MinutesRevised:   {MinutesSubmitted},
	MinutesSubmitted: {MinutesApproved, MinutesRevised},
	MinutesApproved:  {MinutesPublished},
	MinutesPublished: {MinutesArchived},
}

// CanTransitionMinutes reports whether from -> to is a permitted edge.
func CanTransitionMinutes(from, to MinutesStatus) bool {
	for _, next := range minutesTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Minutes is one version of a meeting's official record. Versions are
// append-only: once a version leaves the editable states its content never
// changes, and a revision creates a new row.
type Minutes struct {
	ID            string          `json:"id"`
	MeetingID     string          `json:"meeting_id"`
	Version       int             `json:"version"`
	Status        MinutesStatus   `json:"status"`
	Content       json.RawMessage `json:"content"`
	Summary       string          `json:"summary,omitempty"`
	ReviewNotes   string          `json:"review_notes,omitempty"`
	ApprovalNotes string          `json:"approval_notes,omitempty"`
	CreatedBy     string          `json:"created_by"`
	LastEditedBy  string          `json:"last_edited_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	SubmittedAt   *time.Time      `json:"submitted_at,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	RevisedAt     *time.Time      `json:"revised_at,omitempty"`
	PublishedAt   *time.Time      `json:"published_at,omitempty"`
	ArchivedAt    *time.Time      `json:"archived_at,omitempty"`
	SupersededBy  string          `json:"superseded_by,omitempty"`
}

// IsSuperseded reports whether a newer version has replaced this row.
func (m *Minutes) IsSuperseded() bool {
	return m.SupersededBy != ""
}

// Summarize returns the read-side summary of this version.
func (m *Minutes) Summarize() *MinutesSummary {
	return &MinutesSummary{ID: m.ID, Version: m.Version, Status: m.Status}
}

// NormalizeContent returns content as stored: empty becomes "{}", anything
// else must be valid JSON.
func NormalizeContent(content json.RawMessage) (json.RawMessage, error) {
	if len(content) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(content) {
		return nil, fmt.Errorf("content must be valid JSON")
	}
	return content, nil
}

// MinutesUpdate carries in-place edits to an editable version.
type MinutesUpdate struct {
	Content json.RawMessage `json:"content,omitempty"`
	Summary *string         `json:"summary,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u MinutesUpdate) IsEmpty() bool {
	return len(u.Content) == 0 && u.Summary == nil
}
