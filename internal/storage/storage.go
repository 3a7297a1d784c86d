package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/boardworks/govrec/internal/storage/sqlite"
	"github.com/boardworks/govrec/internal/types"
)

// Storage defines the governance record store. Every method returns nil or a
// *goverr.Error; invariants (uniqueness, numbering, state machines) are
// enforced here, inside the store's transactions.
type Storage interface {
	// Meetings
	CreateMeeting(ctx context.Context, meeting *types.Meeting) error
	GetMeeting(ctx context.Context, id string) (*types.Meeting, error)
	ListMeetings(ctx context.Context, filter types.MeetingFilter) ([]*types.MeetingListItem, error)
	UpdateMeeting(ctx context.Context, id string, update types.MeetingUpdate) (*types.Meeting, error)
	DeleteMeeting(ctx context.Context, id string) error

	// Minutes workflow
	CreateMinutes(ctx context.Context, meetingID string, content json.RawMessage, summary, actor string) (*types.Minutes, error)
	GetMinutes(ctx context.Context, id string) (*types.Minutes, error)
	GetCurrentMinutes(ctx context.Context, meetingID string) (*types.Minutes, error)
	ListMinutesVersions(ctx context.Context, meetingID string) ([]*types.Minutes, error)
	UpdateMinutes(ctx context.Context, id string, update types.MinutesUpdate, actor string) (*types.Minutes, error)
	TransitionMinutes(ctx context.Context, id string, to types.MinutesStatus, actor, notes string) (*types.Minutes, error)
	RequestRevision(ctx context.Context, id, actor, reviewNotes string) (*types.Minutes, error)
	CreateMinutesRevision(ctx context.Context, meetingID, fromVersionID string, content json.RawMessage, actor string) (*types.Minutes, error)

	// Motions
	CreateMotion(ctx context.Context, motion *types.Motion) error
	GetMotion(ctx context.Context, id string) (*types.Motion, error)
	ListMotions(ctx context.Context, meetingID string) ([]*types.Motion, error)
	UpdateMotion(ctx context.Context, id string, update types.MotionUpdate) (*types.Motion, error)
	RecordVote(ctx context.Context, id string, vote types.Vote) (*types.Motion, error)
	DeleteMotion(ctx context.Context, id string) error
	GetMeetingMotionStats(ctx context.Context, meetingID string) (*types.MotionStats, error)

	// Annotations
	CreateAnnotation(ctx context.Context, annotation *types.Annotation) error
	GetAnnotation(ctx context.Context, id string) (*types.Annotation, error)
	UpdateAnnotation(ctx context.Context, id string, update types.AnnotationUpdate) (*types.Annotation, error)
	SetAnnotationPublished(ctx context.Context, id string, published bool) (*types.Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) error
	ListAnnotations(ctx context.Context, filter types.AnnotationFilter) ([]*types.Annotation, error)
	GetAnnotationCounts(ctx context.Context, filter types.AnnotationFilter) (*types.AnnotationCounts, error)

	// Review flags
	CreateFlag(ctx context.Context, flag *types.ReviewFlag) error
	GetFlag(ctx context.Context, id string) (*types.ReviewFlag, error)
	ListFlags(ctx context.Context, filter types.FlagFilter) ([]*types.ReviewFlag, error)
	UpdateFlag(ctx context.Context, id string, update types.FlagUpdate, actor string) (*types.ReviewFlag, error)
	TransitionFlag(ctx context.Context, id string, to types.FlagStatus, resolution, actor string) (*types.ReviewFlag, error)
	DeleteFlag(ctx context.Context, id string) error
	GetOverdueFlags(ctx context.Context, today types.Date) ([]*types.ReviewFlag, error)

	// Audit log
	RecordAudit(ctx context.Context, entry *types.AuditEntry) error
	ListAudit(ctx context.Context, filter types.AuditFilter) ([]*types.AuditEntry, error)

	// Maintenance
	SchemaVersion(ctx context.Context) (current, latest int, err error)
	IntegrityCheck(ctx context.Context) ([]string, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".govrec/governance.db"
	Path string

	// BusyTimeout is how long a writer waits for the database lock.
	// Default: 5s
	BusyTimeout time.Duration
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path:        DefaultDatabasePath,
		BusyTimeout: 5 * time.Second,
	}
}

// NewStorage creates a new SQLite storage backend
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultDatabasePath
	}

	return sqlite.New(ctx, cfg.Path, sqlite.Options{BusyTimeout: cfg.BusyTimeout})
}

// Ensure the SQLite backend satisfies the interface at compile time.
var _ Storage = (*sqlite.SQLiteStorage)(nil)
