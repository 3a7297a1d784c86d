package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

const meetingColumns = `m.id, m.meeting_date, m.meeting_type, m.title, m.location,
	m.attendance_count, m.quorum_met, m.created_by, m.created_at, m.updated_at`

// currentMinutesJoin picks the current minutes row for each meeting: the
// in-flight version if there is one, otherwise the newest unsuperseded row.
const currentMinutesJoin = `
	LEFT JOIN minutes cur ON cur.id = (
		SELECT mi.id FROM minutes mi
		WHERE mi.meeting_id = m.id AND mi.superseded_by IS NULL
		ORDER BY (mi.status IN ('DRAFT', 'SUBMITTED', 'REVISED', 'APPROVED')) DESC, mi.version DESC
		LIMIT 1
	)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner, extra ...any) (*types.Meeting, error) {
	var m types.Meeting
	var date, createdAt, updatedAt string
	var quorum int
	dest := []any{
		&m.ID, &date, &m.Type, &m.Title, &m.Location,
		&m.AttendanceCount, &quorum, &m.CreatedBy, &createdAt, &updatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	d, err := types.ParseDate(date)
	if err != nil {
		return nil, err
	}
	m.Date = d
	m.QuorumMet = quorum != 0
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

// CreateMeeting inserts a new meeting. The meeting's ID and timestamps are
// assigned here.
func (s *SQLiteStorage) CreateMeeting(ctx context.Context, meeting *types.Meeting) error {
	if err := meeting.Validate(); err != nil {
		return goverr.BadRequest("invalid meeting: %v", err)
	}

	ts := now()
	meeting.ID = newID()
	meeting.CreatedAt = ts
	meeting.UpdatedAt = ts

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, meeting_date, meeting_type, title, location,
			attendance_count, quorum_met, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, meeting.ID, meeting.Date.String(), string(meeting.Type), meeting.Title, meeting.Location,
		meeting.AttendanceCount, boolToInt(meeting.QuorumMet), meeting.CreatedBy,
		formatTime(ts), formatTime(ts))
	if err != nil {
		if isUniqueConstraintError(err) {
			return goverr.Conflict("a %s meeting already exists on %s", meeting.Type, meeting.Date)
		}
		return goverr.Internal("failed to insert meeting", err)
	}
	return nil
}

// GetMeeting retrieves a meeting by ID
func (s *SQLiteStorage) GetMeeting(ctx context.Context, id string) (*types.Meeting, error) {
	return getMeeting(ctx, s.db, id)
}

func getMeeting(ctx context.Context, q querier, id string) (*types.Meeting, error) {
	row := q.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings m WHERE m.id = ?`, id)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goverr.NotFound("meeting", id)
	}
	if err != nil {
		return nil, goverr.Internal("failed to get meeting", err)
	}
	return meeting, nil
}

// ListMeetings returns meetings newest first, each joined with its current
// minutes version and motion count.
func (s *SQLiteStorage) ListMeetings(ctx context.Context, filter types.MeetingFilter) ([]*types.MeetingListItem, error) {
	var where []string
	var args []any

	if filter.Type != nil {
		if !filter.Type.IsValid() {
			return nil, goverr.BadRequest("invalid meeting type: %q", *filter.Type)
		}
		where = append(where, "m.meeting_type = ?")
		args = append(args, string(*filter.Type))
	}
	if !filter.From.IsZero() {
		where = append(where, "m.meeting_date >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		where = append(where, "m.meeting_date <= ?")
		args = append(args, filter.To.String())
	}

	query := `SELECT ` + meetingColumns + `,
			(SELECT COUNT(*) FROM motions mo WHERE mo.meeting_id = m.id),
			cur.id, cur.version, cur.status
		FROM meetings m` + currentMinutesJoin
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	page := filter.Page.Normalize()
	query += " ORDER BY m.meeting_date DESC, m.meeting_type ASC LIMIT ? OFFSET ?"
	args = append(args, page.Limit, page.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goverr.Internal("failed to list meetings", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*types.MeetingListItem
	for rows.Next() {
		var motionCount int
		var curID, curStatus sql.NullString
		var curVersion sql.NullInt64
		meeting, err := scanMeeting(rows, &motionCount, &curID, &curVersion, &curStatus)
		if err != nil {
			return nil, goverr.Internal("failed to scan meeting", err)
		}
		item := &types.MeetingListItem{Meeting: *meeting, MotionCount: motionCount}
		if curID.Valid {
			item.LatestMinutes = &types.MinutesSummary{
				ID:      curID.String,
				Version: int(curVersion.Int64),
				Status:  types.MinutesStatus(curStatus.String),
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, goverr.Internal("failed to list meetings", err)
	}
	return items, nil
}

// UpdateMeeting applies non-identity field edits
func (s *SQLiteStorage) UpdateMeeting(ctx context.Context, id string, update types.MeetingUpdate) (*types.Meeting, error) {
	if err := update.Validate(); err != nil {
		return nil, goverr.BadRequest("invalid meeting update: %v", err)
	}

	var updated *types.Meeting
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		meeting, err := getMeeting(ctx, tx, id)
		if err != nil {
			return err
		}
		if update.Title != nil {
			meeting.Title = *update.Title
		}
		if update.Location != nil {
			meeting.Location = *update.Location
		}
		if update.AttendanceCount != nil {
			meeting.AttendanceCount = *update.AttendanceCount
		}
		if update.QuorumMet != nil {
			meeting.QuorumMet = *update.QuorumMet
		}
		meeting.UpdatedAt = now()

		if _, err := tx.ExecContext(ctx, `
			UPDATE meetings SET title = ?, location = ?, attendance_count = ?, quorum_met = ?, updated_at = ?
			WHERE id = ?
		`, meeting.Title, meeting.Location, meeting.AttendanceCount, boolToInt(meeting.QuorumMet),
			formatTime(meeting.UpdatedAt), id); err != nil {
			return goverr.Internal("failed to update meeting", err)
		}
		updated = meeting
		return nil
	})
	return updated, err
}

// DeleteMeeting removes a meeting that has no minutes or motions. A meeting
// with children is refused with the blocking counts.
func (s *SQLiteStorage) DeleteMeeting(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getMeeting(ctx, tx, id); err != nil {
			return err
		}

		var minutesCount, motionCount int
		if err := tx.QueryRowContext(ctx, `
			SELECT (SELECT COUNT(*) FROM minutes WHERE meeting_id = ?),
			       (SELECT COUNT(*) FROM motions WHERE meeting_id = ?)
		`, id, id).Scan(&minutesCount, &motionCount); err != nil {
			return goverr.Internal("failed to count meeting children", err)
		}
		if minutesCount > 0 || motionCount > 0 {
			e := goverr.Conflict("meeting %s still has %d minutes version(s) and %d motion(s); delete them first",
				id, minutesCount, motionCount)
			e.Details = map[string]int{"minutes": minutesCount, "motions": motionCount}
			return e
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id); err != nil {
			return goverr.Internal("failed to delete meeting", err)
		}
		return nil
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
