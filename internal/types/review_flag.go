package types

import (
	"fmt"
	"strings"
	"time"
)

// IsValidFlagTarget checks if review flags may be raised against t
func IsValidFlagTarget(t TargetType) bool {
	switch t {
	case TargetPage, TargetFile, TargetPolicy, TargetEvent, TargetBylaw, TargetMinutes, TargetMotion:
		return true
	}
	return false
}

// FlagType categorizes the follow-up a review flag asks for.
type FlagType string

const (
	FlagInsuranceReview FlagType = "INSURANCE_REVIEW"
	FlagLegalReview     FlagType = "LEGAL_REVIEW"
	FlagPolicyReview    FlagType = "POLICY_REVIEW"
	FlagComplianceCheck FlagType = "COMPLIANCE_CHECK"
	FlagGeneral         FlagType = "GENERAL"
)

// IsValid checks if the flag type value is valid
func (t FlagType) IsValid() bool {
	switch t {
	case FlagInsuranceReview, FlagLegalReview, FlagPolicyReview, FlagComplianceCheck, FlagGeneral:
		return true
	}
	return false
}

// FlagStatus is the compliance workflow state of a review flag.
type FlagStatus string

const (
	FlagOpen       FlagStatus = "OPEN"
	FlagInProgress FlagStatus = "IN_PROGRESS"
	FlagResolved   FlagStatus = "RESOLVED"
	FlagDismissed  FlagStatus = "DISMISSED"
)

// AllFlagStatuses lists every flag state.
var AllFlagStatuses = []FlagStatus{FlagOpen, FlagInProgress, FlagResolved, FlagDismissed}

// IsValid checks if the status value is valid
func (s FlagStatus) IsValid() bool {
	switch s {
	case FlagOpen, FlagInProgress, FlagResolved, FlagDismissed:
		return true
	}
	return false
}

func (s FlagStatus) String() string { return string(s) }

// IsClosed reports whether work on the flag has concluded.
func (s FlagStatus) IsClosed() bool {
	return s == FlagResolved || s == FlagDismissed
}

// RequiresResolution reports whether entering s needs resolution text.
func (s FlagStatus) RequiresResolution() bool {
	return s.IsClosed()
}

var flagTransitions = map[FlagStatus][]FlagStatus{
	FlagOpen:       {FlagInProgress},
	FlagInProgress: {FlagResolved, FlagDismissed},
	FlagResolved:   {FlagOpen},
	FlagDismissed:  {FlagOpen},
}

// CanTransitionFlag reports whether from -> to is a permitted edge.
func CanTransitionFlag(from, to FlagStatus) bool {
	for _, next := range flagTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReviewFlag is a compliance follow-up raised against any artifact. It runs
// its own workflow independent of the target's lifecycle.
type ReviewFlag struct {
	ID         string     `json:"id"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
	FlagType   FlagType   `json:"flag_type"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes,omitempty"`
	DueDate    Date       `json:"due_date"`
	Status     FlagStatus `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsOverdue reports whether the flag is past due and still open for work.
func (f *ReviewFlag) IsOverdue(today Date) bool {
	return !f.DueDate.IsZero() && f.DueDate.Before(today) && !f.Status.IsClosed()
}

// Validate checks if the flag has valid field values
func (f *ReviewFlag) Validate() error {
	if !IsValidFlagTarget(f.TargetType) {
		return fmt.Errorf("invalid flag target type: %q", f.TargetType)
	}
	if strings.TrimSpace(f.TargetID) == "" {
		return fmt.Errorf("target_id is required")
	}
	if !f.FlagType.IsValid() {
		return fmt.Errorf("invalid flag type: %q", f.FlagType)
	}
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(f.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(f.Title))
	}
	if strings.TrimSpace(f.CreatedBy) == "" {
		return fmt.Errorf("created_by is required")
	}
	return nil
}

// FlagUpdate carries edits to a flag. A Status change runs through the
// flag transition table.
type FlagUpdate struct {
	Title        *string     `json:"title,omitempty"`
	Notes        *string     `json:"notes,omitempty"`
	DueDate      *Date       `json:"due_date,omitempty"`
	ClearDueDate bool        `json:"clear_due_date,omitempty"`
	Status       *FlagStatus `json:"status,omitempty"`
	Resolution   *string     `json:"resolution,omitempty"`
}

// HasContentChanges reports whether title, notes or due date are being edited.
func (u FlagUpdate) HasContentChanges() bool {
	return u.Title != nil || u.Notes != nil || u.DueDate != nil || u.ClearDueDate
}

// Validate checks the update's field values
func (u FlagUpdate) Validate() error {
	if !u.HasContentChanges() && u.Status == nil {
		return fmt.Errorf("no fields to update")
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if u.Status != nil {
		if !u.Status.IsValid() {
			return fmt.Errorf("invalid flag status: %q", *u.Status)
		}
		if u.Status.RequiresResolution() && (u.Resolution == nil || strings.TrimSpace(*u.Resolution) == "") {
			return fmt.Errorf("resolution is required to move a flag to %s", *u.Status)
		}
	}
	return nil
}

// FlagFilter selects flags for ListFlags.
type FlagFilter struct {
	TargetType TargetType
	TargetID   string
	Status     *FlagStatus
	FlagType   *FlagType
	Page
}
