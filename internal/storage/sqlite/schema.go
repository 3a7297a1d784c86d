package sqlite

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boardworks/govrec/internal/storage/migrations"
)

// schemaMigrations builds the governance schema. Timestamps are stored as
// fixed-width RFC 3339 TEXT in UTC (see timeLayout) and calendar dates as
// YYYY-MM-DD TEXT, so string comparison orders them correctly.
var schemaMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "meetings, minutes and motions",
		Up: `
-- Meetings table
CREATE TABLE meetings (
    id TEXT PRIMARY KEY,
    meeting_date TEXT NOT NULL,
    meeting_type TEXT NOT NULL CHECK(meeting_type IN ('BOARD', 'EXECUTIVE', 'SPECIAL', 'ANNUAL')),
    title TEXT NOT NULL DEFAULT '' CHECK(length(title) <= 500),
    location TEXT NOT NULL DEFAULT '',
    attendance_count INTEGER NOT NULL DEFAULT 0 CHECK(attendance_count >= 0),
    quorum_met INTEGER NOT NULL DEFAULT 0,
    created_by TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    UNIQUE (meeting_date, meeting_type)
);

CREATE INDEX idx_meetings_date ON meetings(meeting_date);

-- Minutes table: one row per version, append-only once out of the editable states
CREATE TABLE minutes (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL REFERENCES meetings(id),
    version INTEGER NOT NULL CHECK(version >= 1),
    status TEXT NOT NULL CHECK(status IN ('DRAFT', 'SUBMITTED', 'REVISED', 'APPROVED', 'PUBLISHED', 'ARCHIVED')),
    content TEXT NOT NULL DEFAULT '{}',
    summary TEXT NOT NULL DEFAULT '',
    review_notes TEXT NOT NULL DEFAULT '',
    approval_notes TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL,
    last_edited_by TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    submitted_at TEXT,
    approved_at TEXT,
    revised_at TEXT,
    published_at TEXT,
    archived_at TEXT,
    superseded_by TEXT REFERENCES minutes(id) DEFERRABLE INITIALLY DEFERRED,
    UNIQUE (meeting_id, version)
);

-- At most one in-flight version per meeting
CREATE UNIQUE INDEX idx_minutes_in_flight ON minutes(meeting_id)
    WHERE superseded_by IS NULL
      AND status IN ('DRAFT', 'SUBMITTED', 'REVISED', 'APPROVED');

CREATE INDEX idx_minutes_status ON minutes(status);

-- Motions table
CREATE TABLE motions (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL REFERENCES meetings(id),
    motion_number INTEGER NOT NULL CHECK(motion_number >= 1),
    motion_text TEXT NOT NULL,
    moved_by TEXT NOT NULL DEFAULT '',
    seconded_by TEXT NOT NULL DEFAULT '',
    votes_yes INTEGER NOT NULL DEFAULT 0 CHECK(votes_yes >= 0),
    votes_no INTEGER NOT NULL DEFAULT 0 CHECK(votes_no >= 0),
    votes_abstain INTEGER NOT NULL DEFAULT 0 CHECK(votes_abstain >= 0),
    result TEXT CHECK(result IS NULL OR result IN ('PASSED', 'FAILED', 'TABLED', 'WITHDRAWN')),
    result_notes TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    voted_at TEXT,
    UNIQUE (meeting_id, motion_number)
);
`,
		Down: `
DROP TABLE motions;
DROP TABLE minutes;
DROP TABLE meetings;
`,
	},
	{
		Version:     2,
		Description: "annotations and review flags",
		Up: `
-- Annotations: weak polymorphic reference to any artifact
CREATE TABLE annotations (
    id TEXT PRIMARY KEY,
    target_type TEXT NOT NULL CHECK(target_type IN ('motion', 'minutes', 'bylaw', 'policy', 'page', 'file')),
    target_id TEXT NOT NULL,
    motion_id TEXT,
    anchor TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    is_published INTEGER NOT NULL DEFAULT 0,
    created_by TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    published_at TEXT
);

CREATE INDEX idx_annotations_target ON annotations(target_type, target_id);
CREATE INDEX idx_annotations_motion ON annotations(motion_id);

-- Review flags: compliance follow-ups with their own workflow
CREATE TABLE review_flags (
    id TEXT PRIMARY KEY,
    target_type TEXT NOT NULL CHECK(target_type IN ('page', 'file', 'policy', 'event', 'bylaw', 'minutes', 'motion')),
    target_id TEXT NOT NULL,
    flag_type TEXT NOT NULL CHECK(flag_type IN ('INSURANCE_REVIEW', 'LEGAL_REVIEW', 'POLICY_REVIEW', 'COMPLIANCE_CHECK', 'GENERAL')),
    title TEXT NOT NULL CHECK(length(title) <= 500),
    notes TEXT NOT NULL DEFAULT '',
    due_date TEXT,
    status TEXT NOT NULL DEFAULT 'OPEN' CHECK(status IN ('OPEN', 'IN_PROGRESS', 'RESOLVED', 'DISMISSED')),
    resolution TEXT NOT NULL DEFAULT '',
    resolved_by TEXT NOT NULL DEFAULT '',
    resolved_at TEXT,
    created_by TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX idx_review_flags_target ON review_flags(target_type, target_id);
CREATE INDEX idx_review_flags_status ON review_flags(status);
CREATE INDEX idx_review_flags_due ON review_flags(due_date);
`,
		Down: `
DROP TABLE review_flags;
DROP TABLE annotations;
`,
	},
	{
		Version:     3,
		Description: "audit log",
		Up: `
-- Audit log (append-only)
CREATE TABLE audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT NOT NULL,
    object_type TEXT NOT NULL,
    object_id TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL
);

CREATE INDEX idx_audit_object ON audit_log(object_type, object_id);
CREATE INDEX idx_audit_actor ON audit_log(actor_id);
CREATE INDEX idx_audit_created_at ON audit_log(created_at);
`,
		Down: `DROP TABLE audit_log;`,
	},
	{
		Version:     4,
		Description: "fixed-width timestamps",
		Up: padTimestamps(map[string][]string{
			"meetings":     {"created_at", "updated_at"},
			"minutes":      {"created_at", "updated_at", "submitted_at", "approved_at", "revised_at", "published_at", "archived_at"},
			"motions":      {"created_at", "updated_at", "voted_at"},
			"annotations":  {"created_at", "updated_at", "published_at"},
			"review_flags": {"created_at", "updated_at", "resolved_at"},
			"audit_log":    {"created_at"},
		}),
		// Both layouts parse, so there is nothing to undo.
		Down: `SELECT 1;`,
	},
}

// padTimestamps rewrites trimmed RFC3339Nano values (2024-03-05T10:00:05.5Z)
// into timeLayout (2024-03-05T10:00:05.500000000Z).
func padTimestamps(columns map[string][]string) string {
	tables := make([]string, 0, len(columns))
	for table := range columns {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	var b strings.Builder
	for _, table := range tables {
		for _, col := range columns[table] {
			fmt.Fprintf(&b, `
UPDATE %[1]s SET %[2]s = substr(%[2]s, 1, 19) || '.' ||
    substr(CASE WHEN substr(%[2]s, 20, 1) = '.' THEN substr(%[2]s, 21, length(%[2]s) - 21) ELSE '' END || '000000000', 1, 9) || 'Z'
WHERE %[2]s IS NOT NULL AND length(%[2]s) != %[3]d;
`, table, col, len(formatTime(time.Time{})))
		}
	}
	return b.String()
}
