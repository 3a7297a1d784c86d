package types

import "time"

// AuditAction names the mutation recorded in an audit entry.
type AuditAction string

const (
	AuditCreated     AuditAction = "created"
	AuditUpdated     AuditAction = "updated"
	AuditDeleted     AuditAction = "deleted"
	AuditTransition  AuditAction = "status_changed"
	AuditVoted       AuditAction = "vote_recorded"
	AuditPublished   AuditAction = "published"
	AuditUnpublished AuditAction = "unpublished"
	AuditRevised     AuditAction = "revision_created"
)

// Object types used in audit entries.
const (
	ObjectMeeting    = "meeting"
	ObjectMinutes    = "minutes"
	ObjectMotion     = "motion"
	ObjectAnnotation = "annotation"
	ObjectReviewFlag = "review_flag"
)

// AuditEntry records who did what to which object, with enough metadata to
// reconstruct the change without full before/after snapshots.
type AuditEntry struct {
	ID         int64          `json:"id"`
	Action     AuditAction    `json:"action"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	ActorID    string         `json:"actor_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditFilter selects audit entries, newest first.
type AuditFilter struct {
	ObjectType string
	ObjectID   string
	ActorID    string
	Limit      int
}
