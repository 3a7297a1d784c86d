package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

const motionColumns = `id, meeting_id, motion_number, motion_text, moved_by, seconded_by,
	votes_yes, votes_no, votes_abstain, result, result_notes,
	created_by, created_at, updated_at, voted_at`

func scanMotion(row rowScanner) (*types.Motion, error) {
	var m types.Motion
	var result, votedAt sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(
		&m.ID, &m.MeetingID, &m.MotionNumber, &m.MotionText, &m.MovedBy, &m.SecondedBy,
		&m.VotesYes, &m.VotesNo, &m.VotesAbstain, &result, &m.ResultNotes,
		&m.CreatedBy, &createdAt, &updatedAt, &votedAt,
	); err != nil {
		return nil, err
	}
	if result.Valid {
		r := types.MotionResult(result.String)
		m.Result = &r
	}
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	m.VotedAt = timePtr(votedAt)
	return &m, nil
}

func getMotion(ctx context.Context, q querier, id string) (*types.Motion, error) {
	row := q.QueryRowContext(ctx, `SELECT `+motionColumns+` FROM motions WHERE id = ?`, id)
	m, err := scanMotion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goverr.NotFound("motion", id)
	}
	if err != nil {
		return nil, goverr.Internal("failed to get motion", err)
	}
	return m, nil
}

// maxMotionNumberAttempts bounds the retry when two writers race for the
// same motion number.
const maxMotionNumberAttempts = 2

// CreateMotion assigns the next motion number for the meeting and inserts
// the motion. Numbering reads MAX+1 inside an IMMEDIATE transaction, and the
// (meeting_id, motion_number) unique constraint catches anything that slips
// through, in which case the insert is retried once.
func (s *SQLiteStorage) CreateMotion(ctx context.Context, motion *types.Motion) error {
	if err := motion.Validate(); err != nil {
		return goverr.BadRequest("invalid motion: %v", err)
	}

	var err error
	for attempt := 0; attempt < maxMotionNumberAttempts; attempt++ {
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := getMeeting(ctx, tx, motion.MeetingID); err != nil {
				return err
			}

			var number int
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(motion_number), 0) + 1 FROM motions WHERE meeting_id = ?`,
				motion.MeetingID,
			).Scan(&number); err != nil {
				return goverr.Internal("failed to compute next motion number", err)
			}

			ts := now()
			id := newID()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO motions (id, meeting_id, motion_number, motion_text, moved_by, seconded_by,
					votes_yes, votes_no, votes_abstain, result, result_notes,
					created_by, created_at, updated_at, voted_at)
				VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, NULL, '', ?, ?, ?, NULL)
			`, id, motion.MeetingID, number, motion.MotionText, motion.MovedBy, motion.SecondedBy,
				motion.CreatedBy, formatTime(ts), formatTime(ts)); err != nil {
				if isUniqueConstraintError(err) {
					return goverr.Conflict("motion number %d already taken in meeting %s", number, motion.MeetingID)
				}
				return goverr.Internal("failed to insert motion", err)
			}

			motion.ID = id
			motion.MotionNumber = number
			motion.VotesYes, motion.VotesNo, motion.VotesAbstain = 0, 0, 0
			motion.Result = nil
			motion.ResultNotes = ""
			motion.VotedAt = nil
			motion.CreatedAt = ts
			motion.UpdatedAt = ts
			return nil
		})
		if !goverr.Is(err, goverr.KindConflict) {
			return err
		}
	}
	return err
}

// GetMotion retrieves a motion by ID
func (s *SQLiteStorage) GetMotion(ctx context.Context, id string) (*types.Motion, error) {
	return getMotion(ctx, s.db, id)
}

// ListMotions returns a meeting's motions in motion-number order
func (s *SQLiteStorage) ListMotions(ctx context.Context, meetingID string) ([]*types.Motion, error) {
	if _, err := getMeeting(ctx, s.db, meetingID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+motionColumns+` FROM motions WHERE meeting_id = ? ORDER BY motion_number ASC`, meetingID)
	if err != nil {
		return nil, goverr.Internal("failed to list motions", err)
	}
	defer func() { _ = rows.Close() }()

	var motions []*types.Motion
	for rows.Next() {
		m, err := scanMotion(rows)
		if err != nil {
			return nil, goverr.Internal("failed to scan motion", err)
		}
		motions = append(motions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goverr.Internal("failed to list motions", err)
	}
	return motions, nil
}

// UpdateMotion edits the motion text, mover or seconder, or withdraws it.
func (s *SQLiteStorage) UpdateMotion(ctx context.Context, id string, update types.MotionUpdate) (*types.Motion, error) {
	if err := update.Validate(); err != nil {
		return nil, goverr.BadRequest("invalid motion update: %v", err)
	}

	var updated *types.Motion
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMotion(ctx, tx, id)
		if err != nil {
			return err
		}
		ts := now()
		if update.MotionText != nil {
			m.MotionText = *update.MotionText
		}
		if update.MovedBy != nil {
			m.MovedBy = *update.MovedBy
		}
		if update.SecondedBy != nil {
			m.SecondedBy = *update.SecondedBy
		}
		if update.Result != nil {
			r := *update.Result
			m.Result = &r
			if m.VotedAt == nil {
				m.VotedAt = &ts
			}
		}
		m.UpdatedAt = ts

		var result any
		if m.Result != nil {
			result = string(*m.Result)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE motions SET motion_text = ?, moved_by = ?, seconded_by = ?, result = ?,
				updated_at = ?, voted_at = ?
			WHERE id = ?
		`, m.MotionText, m.MovedBy, m.SecondedBy, result,
			formatTime(ts), nullableTime(m.VotedAt), id); err != nil {
			return goverr.Internal("failed to update motion", err)
		}
		updated = m
		return nil
	})
	return updated, err
}

// RecordVote sets tallies, result and notes in one step. Recording the same
// vote again leaves the row untouched.
func (s *SQLiteStorage) RecordVote(ctx context.Context, id string, vote types.Vote) (*types.Motion, error) {
	if err := vote.Validate(); err != nil {
		return nil, goverr.BadRequest("invalid vote: %v", err)
	}

	var voted *types.Motion
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMotion(ctx, tx, id)
		if err != nil {
			return err
		}
		if sameVote(m, vote) {
			voted = m
			return nil
		}

		ts := now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE motions SET votes_yes = ?, votes_no = ?, votes_abstain = ?, result = ?,
				result_notes = ?, voted_at = ?, updated_at = ?
			WHERE id = ?
		`, vote.Yes, vote.No, vote.Abstain, string(vote.Result), vote.Notes,
			formatTime(ts), formatTime(ts), id); err != nil {
			return goverr.Internal("failed to record vote", err)
		}

		result := vote.Result
		m.VotesYes, m.VotesNo, m.VotesAbstain = vote.Yes, vote.No, vote.Abstain
		m.Result = &result
		m.ResultNotes = vote.Notes
		m.VotedAt = &ts
		m.UpdatedAt = ts
		voted = m
		return nil
	})
	return voted, err
}

func sameVote(m *types.Motion, vote types.Vote) bool {
	return m.Result != nil && *m.Result == vote.Result &&
		m.VotesYes == vote.Yes && m.VotesNo == vote.No && m.VotesAbstain == vote.Abstain &&
		m.ResultNotes == vote.Notes
}

// DeleteMotion removes a motion that has not been voted on. Motions with a
// recorded result are part of the record and must be withdrawn instead.
func (s *SQLiteStorage) DeleteMotion(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		m, err := getMotion(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.HasResult() {
			return goverr.Conflict("motion %d was already voted on (%s); mark it %s instead",
				m.MotionNumber, *m.Result, types.ResultWithdrawn)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM motions WHERE id = ?`, id); err != nil {
			return goverr.Internal("failed to delete motion", err)
		}
		return nil
	})
}

// GetMeetingMotionStats counts a meeting's motions by result
func (s *SQLiteStorage) GetMeetingMotionStats(ctx context.Context, meetingID string) (*types.MotionStats, error) {
	if _, err := getMeeting(ctx, s.db, meetingID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT result, COUNT(*) FROM motions WHERE meeting_id = ? GROUP BY result`, meetingID)
	if err != nil {
		return nil, goverr.Internal("failed to count motions", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &types.MotionStats{MeetingID: meetingID}
	for rows.Next() {
		var result sql.NullString
		var count int
		if err := rows.Scan(&result, &count); err != nil {
			return nil, goverr.Internal("failed to scan motion stats", err)
		}
		stats.Total += count
		if !result.Valid {
			stats.Pending += count
			continue
		}
		switch types.MotionResult(result.String) {
		case types.ResultPassed:
			stats.Passed += count
		case types.ResultFailed:
			stats.Failed += count
		case types.ResultTabled:
			stats.Tabled += count
		case types.ResultWithdrawn:
			stats.Withdrawn += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, goverr.Internal("failed to count motions", err)
	}
	return stats, nil
}
