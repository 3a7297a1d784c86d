package types

import (
	"fmt"
	"strings"
	"time"
)

// IsValidAnnotationTarget checks if annotations may be attached to t
func IsValidAnnotationTarget(t TargetType) bool {
	switch t {
	case TargetMotion, TargetBylaw, TargetPolicy, TargetPage, TargetFile, TargetMinutes:
		return true
	}
	return false
}

// Annotation is a note attached to a governance artifact. Unpublished
// annotations may hold deliberation notes and are filtered in SQL.
type Annotation struct {
	ID          string     `json:"id"`
	TargetType  TargetType `json:"target_type"`
	TargetID    string     `json:"target_id"`
	MotionID    string     `json:"motion_id,omitempty"`
	Anchor      string     `json:"anchor,omitempty"`
	Body        string     `json:"body"`
	IsPublished bool       `json:"is_published"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	// TargetMissing is set on list results when a governance-owned target
	// no longer resolves.
	TargetMissing bool `json:"target_missing,omitempty"`
}

// Validate checks if the annotation has valid field values
func (a *Annotation) Validate() error {
	if !IsValidAnnotationTarget(a.TargetType) {
		return fmt.Errorf("invalid annotation target type: %q", a.TargetType)
	}
	if strings.TrimSpace(a.TargetID) == "" {
		return fmt.Errorf("target_id is required")
	}
	if strings.TrimSpace(a.Body) == "" {
		return fmt.Errorf("body is required")
	}
	if strings.TrimSpace(a.CreatedBy) == "" {
		return fmt.Errorf("created_by is required")
	}
	return nil
}

// AnnotationUpdate carries edits to an annotation's text and position.
type AnnotationUpdate struct {
	Body   *string `json:"body,omitempty"`
	Anchor *string `json:"anchor,omitempty"`
}

// Validate checks the update's field values
func (u AnnotationUpdate) Validate() error {
	if u.Body == nil && u.Anchor == nil {
		return fmt.Errorf("no fields to update")
	}
	if u.Body != nil && strings.TrimSpace(*u.Body) == "" {
		return fmt.Errorf("body cannot be empty")
	}
	return nil
}

// AnnotationFilter scopes annotation lists and counts. MinutesID and MotionID
// are aliases for a minutes or motion target.
type AnnotationFilter struct {
	TargetType         TargetType
	TargetID           string
	MotionID           string
	MinutesID          string
	IncludeUnpublished bool
	Page
}

// AnnotationCounts backs dashboard badges.
type AnnotationCounts struct {
	Total       int `json:"total"`
	Published   int `json:"published"`
	Unpublished int `json:"unpublished"`
}
