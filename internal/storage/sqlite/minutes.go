package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

const minutesColumns = `id, meeting_id, version, status, content, summary, review_notes,
	approval_notes, created_by, last_edited_by, created_at, updated_at,
	submitted_at, approved_at, revised_at, published_at, archived_at, superseded_by`

func scanMinutes(row rowScanner) (*types.Minutes, error) {
	var m types.Minutes
	var content, createdAt, updatedAt string
	var submittedAt, approvedAt, revisedAt, publishedAt, archivedAt, supersededBy sql.NullString
	if err := row.Scan(
		&m.ID, &m.MeetingID, &m.Version, &m.Status, &content, &m.Summary, &m.ReviewNotes,
		&m.ApprovalNotes, &m.CreatedBy, &m.LastEditedBy, &createdAt, &updatedAt,
		&submittedAt, &approvedAt, &revisedAt, &publishedAt, &archivedAt, &supersededBy,
	); err != nil {
		return nil, err
	}
	m.Content = json.RawMessage(content)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	m.SubmittedAt = timePtr(submittedAt)
	m.ApprovedAt = timePtr(approvedAt)
	m.RevisedAt = timePtr(revisedAt)
	m.PublishedAt = timePtr(publishedAt)
	m.ArchivedAt = timePtr(archivedAt)
	m.SupersededBy = supersededBy.String
	return &m, nil
}

func getMinutes(ctx context.Context, q querier, id string) (*types.Minutes, error) {
	row := q.QueryRowContext(ctx, `SELECT `+minutesColumns+` FROM minutes WHERE id = ?`, id)
	m, err := scanMinutes(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goverr.NotFound("minutes", id)
	}
	if err != nil {
		return nil, goverr.Internal("failed to get minutes", err)
	}
	return m, nil
}

// currentMinutes returns the meeting's current version, or nil if the
// meeting has no minutes.
func currentMinutes(ctx context.Context, q querier, meetingID string) (*types.Minutes, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+minutesColumns+` FROM minutes
		WHERE meeting_id = ? AND superseded_by IS NULL
		ORDER BY (status IN ('DRAFT', 'SUBMITTED', 'REVISED', 'APPROVED')) DESC, version DESC
		LIMIT 1
	`, meetingID)
	m, err := scanMinutes(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goverr.Internal("failed to get current minutes", err)
	}
	return m, nil
}

func nextMinutesVersion(ctx context.Context, q querier, meetingID string) (int, error) {
	var version int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM minutes WHERE meeting_id = ?`, meetingID,
	).Scan(&version)
	if err != nil {
		return 0, goverr.Internal("failed to compute next minutes version", err)
	}
	return version, nil
}

func insertMinutes(ctx context.Context, q querier, m *types.Minutes) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO minutes (id, meeting_id, version, status, content, summary, review_notes,
			approval_notes, created_by, last_edited_by, created_at, updated_at,
			submitted_at, approved_at, revised_at, published_at, archived_at, superseded_by)
		VALUES (`+placeholders(18)+`)
	`, m.ID, m.MeetingID, m.Version, string(m.Status), string(m.Content), m.Summary, m.ReviewNotes,
		m.ApprovalNotes, m.CreatedBy, m.LastEditedBy, formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
		nullableTime(m.SubmittedAt), nullableTime(m.ApprovedAt), nullableTime(m.RevisedAt),
		nullableTime(m.PublishedAt), nullableTime(m.ArchivedAt), nullableString(m.SupersededBy))
	if err != nil {
		if isUniqueConstraintError(err) {
			return goverr.Conflict("meeting %s already has minutes in flight", m.MeetingID)
		}
		return goverr.Internal("failed to insert minutes", err)
	}
	return nil
}

func supersede(ctx context.Context, q querier, id, by string) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE minutes SET superseded_by = ? WHERE id = ?`, by, id,
	); err != nil {
		return goverr.Internal("failed to supersede minutes", err)
	}
	return nil
}

// CreateMinutes starts a new DRAFT version for a meeting. The version number
// is one past the meeting's highest; a meeting whose current version is
// still in flight is refused.
func (s *SQLiteStorage) CreateMinutes(ctx context.Context, meetingID string, content json.RawMessage, summary, actor string) (*types.Minutes, error) {
	content, err := types.NormalizeContent(content)
	if err != nil {
		return nil, goverr.BadRequest("%v", err)
	}
	if strings.TrimSpace(actor) == "" {
		return nil, goverr.BadRequest("actor is required")
	}

	var created *types.Minutes
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getMeeting(ctx, tx, meetingID); err != nil {
			return err
		}

		current, err := currentMinutes(ctx, tx, meetingID)
		if err != nil {
			return err
		}
		if current != nil && current.Status.IsInFlight() {
			return goverr.Conflict("meeting %s already has minutes version %d in flight (%s)",
				meetingID, current.Version, current.Status)
		}

		version, err := nextMinutesVersion(ctx, tx, meetingID)
		if err != nil {
			return err
		}

		ts := now()
		m := &types.Minutes{
			ID:           newID(),
			MeetingID:    meetingID,
			Version:      version,
			Status:       types.MinutesDraft,
			Content:      content,
			Summary:      summary,
			CreatedBy:    actor,
			LastEditedBy: actor,
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}
		if current != nil {
			if err := supersede(ctx, tx, current.ID, m.ID); err != nil {
				return err
			}
		}
		if err := insertMinutes(ctx, tx, m); err != nil {
			return err
		}
		created = m
		return nil
	})
	return created, err
}

// GetMinutes retrieves one minutes version by ID
func (s *SQLiteStorage) GetMinutes(ctx context.Context, id string) (*types.Minutes, error) {
	return getMinutes(ctx, s.db, id)
}

// GetCurrentMinutes returns the meeting's current version: the in-flight
// version if any, otherwise the latest published or archived one.
func (s *SQLiteStorage) GetCurrentMinutes(ctx context.Context, meetingID string) (*types.Minutes, error) {
	if _, err := getMeeting(ctx, s.db, meetingID); err != nil {
		return nil, err
	}
	m, err := currentMinutes(ctx, s.db, meetingID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, goverr.NotFound("minutes for meeting", meetingID)
	}
	return m, nil
}

// ListMinutesVersions returns every version of a meeting's minutes, oldest first.
func (s *SQLiteStorage) ListMinutesVersions(ctx context.Context, meetingID string) ([]*types.Minutes, error) {
	if _, err := getMeeting(ctx, s.db, meetingID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+minutesColumns+` FROM minutes WHERE meeting_id = ? ORDER BY version ASC`, meetingID)
	if err != nil {
		return nil, goverr.Internal("failed to list minutes", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []*types.Minutes
	for rows.Next() {
		m, err := scanMinutes(rows)
		if err != nil {
			return nil, goverr.Internal("failed to scan minutes", err)
		}
		versions = append(versions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goverr.Internal("failed to list minutes", err)
	}
	return versions, nil
}

// UpdateMinutes edits content or summary in place. Only DRAFT and REVISED
// versions are editable.
func (s *SQLiteStorage) UpdateMinutes(ctx context.Context, id string, update types.MinutesUpdate, actor string) (*types.Minutes, error) {
	if update.IsEmpty() {
		return nil, goverr.BadRequest("no fields to update")
	}
	var content json.RawMessage
	if len(update.Content) > 0 {
		c, err := types.NormalizeContent(update.Content)
		if err != nil {
			return nil, goverr.BadRequest("%v", err)
		}
		content = c
	}

	var updated *types.Minutes
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMinutes(ctx, tx, id)
		if err != nil {
			return err
		}
		if !m.Status.IsEditable() {
			return goverr.Forbidden("minutes version %d is %s; only DRAFT or REVISED minutes can be edited",
				m.Version, m.Status)
		}
		if m.IsSuperseded() {
			return goverr.Conflict("minutes version %d has been superseded by %s", m.Version, m.SupersededBy)
		}

		if content != nil {
			m.Content = content
		}
		if update.Summary != nil {
			m.Summary = *update.Summary
		}
		m.LastEditedBy = actor
		m.UpdatedAt = now()

		if _, err := tx.ExecContext(ctx, `
			UPDATE minutes SET content = ?, summary = ?, last_edited_by = ?, updated_at = ?
			WHERE id = ?
		`, string(m.Content), m.Summary, m.LastEditedBy, formatTime(m.UpdatedAt), id); err != nil {
			return goverr.Internal("failed to update minutes", err)
		}
		updated = m
		return nil
	})
	return updated, err
}

// TransitionMinutes moves a version along one edge of the minutes workflow
// and stamps the matching timestamp. notes is stored as approval notes on
// APPROVED and as review notes on REVISED. Moving to REVISED creates a new
// version; the returned row is that new version.
func (s *SQLiteStorage) TransitionMinutes(ctx context.Context, id string, to types.MinutesStatus, actor, notes string) (*types.Minutes, error) {
	if !to.IsValid() {
		return nil, goverr.BadRequest("invalid minutes status: %q", to)
	}
	if to == types.MinutesRevised {
		return s.RequestRevision(ctx, id, actor, notes)
	}

	var result *types.Minutes
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := checkMinutesTransition(ctx, tx, id, to)
		if err != nil {
			return err
		}

		ts := now()
		column := ""
		switch to {
		case types.MinutesSubmitted:
			column = "submitted_at"
			m.SubmittedAt = &ts
		case types.MinutesApproved:
			column = "approved_at"
			m.ApprovedAt = &ts
			m.ApprovalNotes = notes
		case types.MinutesPublished:
			column = "published_at"
			m.PublishedAt = &ts
		case types.MinutesArchived:
			column = "archived_at"
			m.ArchivedAt = &ts
		}
		from := m.Status
		m.Status = to
		m.UpdatedAt = ts

		res, err := tx.ExecContext(ctx, `
			UPDATE minutes SET status = ?, approval_notes = ?, updated_at = ?, `+column+` = ?
			WHERE id = ? AND status = ?
		`, string(to), m.ApprovalNotes, formatTime(ts), formatTime(ts), id, string(from))
		if err != nil {
			if isUniqueConstraintError(err) {
				return goverr.Conflict("meeting %s already has minutes in flight", m.MeetingID)
			}
			return goverr.Internal("failed to transition minutes", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return goverr.Conflict("minutes %s changed concurrently", id)
		}
		result = m
		return nil
	})
	return result, err
}

// checkMinutesTransition loads the row and verifies from -> to is permitted
// on the current version.
func checkMinutesTransition(ctx context.Context, q querier, id string, to types.MinutesStatus) (*types.Minutes, error) {
	m, err := getMinutes(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !types.CanTransitionMinutes(m.Status, to) {
		return nil, goverr.InvalidTransition("minutes", m.Status, to)
	}
	if m.IsSuperseded() {
		return nil, goverr.Conflict("minutes version %d has been superseded by %s", m.Version, m.SupersededBy)
	}
	return m, nil
}

// RequestRevision sends a SUBMITTED version back to its author. The
// submitted row is kept unchanged as history and superseded by a new REVISED
// version carrying the same content plus the reviewer's notes.
func (s *SQLiteStorage) RequestRevision(ctx context.Context, id, actor, reviewNotes string) (*types.Minutes, error) {
	var revised *types.Minutes
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		from, err := checkMinutesTransition(ctx, tx, id, types.MinutesRevised)
		if err != nil {
			return err
		}
		if strings.TrimSpace(reviewNotes) == "" {
			return goverr.BadRequest("review notes are required to request a revision")
		}

		version, err := nextMinutesVersion(ctx, tx, from.MeetingID)
		if err != nil {
			return err
		}

		ts := now()
		m := &types.Minutes{
			ID:           newID(),
			MeetingID:    from.MeetingID,
			Version:      version,
			Status:       types.MinutesRevised,
			Content:      from.Content,
			Summary:      from.Summary,
			ReviewNotes:  reviewNotes,
			CreatedBy:    actor,
			LastEditedBy: actor,
			CreatedAt:    ts,
			UpdatedAt:    ts,
			RevisedAt:    &ts,
		}
		// Supersede first: the in-flight index only admits one live row.
		if err := supersede(ctx, tx, from.ID, m.ID); err != nil {
			return err
		}
		if err := insertMinutes(ctx, tx, m); err != nil {
			return err
		}
		revised = m
		return nil
	})
	return revised, err
}

// CreateMinutesRevision starts a new DRAFT version from the meeting's current
// REVISED, PUBLISHED or ARCHIVED version. Empty content copies the source
// version's content.
func (s *SQLiteStorage) CreateMinutesRevision(ctx context.Context, meetingID, fromVersionID string, content json.RawMessage, actor string) (*types.Minutes, error) {
	if len(content) > 0 && !json.Valid(content) {
		return nil, goverr.BadRequest("content must be valid JSON")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, goverr.BadRequest("actor is required")
	}

	var created *types.Minutes
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getMeeting(ctx, tx, meetingID); err != nil {
			return err
		}
		from, err := getMinutes(ctx, tx, fromVersionID)
		if err != nil {
			return err
		}
		if from.MeetingID != meetingID {
			return goverr.NotFound("minutes", fromVersionID)
		}
		if from.IsSuperseded() {
			return goverr.Conflict("minutes version %d has been superseded by %s", from.Version, from.SupersededBy)
		}
		switch from.Status {
		case types.MinutesRevised, types.MinutesPublished, types.MinutesArchived:
		default:
			return goverr.Conflict("minutes version %d is %s; revisions start from REVISED, PUBLISHED or ARCHIVED minutes",
				from.Version, from.Status)
		}

		version, err := nextMinutesVersion(ctx, tx, meetingID)
		if err != nil {
			return err
		}

		body := from.Content
		if len(content) > 0 {
			body = content
		}

		ts := now()
		m := &types.Minutes{
			ID:           newID(),
			MeetingID:    meetingID,
			Version:      version,
			Status:       types.MinutesDraft,
			Content:      body,
			Summary:      from.Summary,
			CreatedBy:    actor,
			LastEditedBy: actor,
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}
		if err := supersede(ctx, tx, from.ID, m.ID); err != nil {
			return err
		}
		if err := insertMinutes(ctx, tx, m); err != nil {
			return err
		}
		created = m
		return nil
	})
	return created, err
}
