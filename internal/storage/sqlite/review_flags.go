package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

const flagColumns = `id, target_type, target_id, flag_type, title, notes, due_date, status,
	resolution, resolved_by, resolved_at, created_by, created_at, updated_at`

func scanFlag(row rowScanner) (*types.ReviewFlag, error) {
	var f types.ReviewFlag
	var dueDate, resolvedAt sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(
		&f.ID, &f.TargetType, &f.TargetID, &f.FlagType, &f.Title, &f.Notes, &dueDate, &f.Status,
		&f.Resolution, &f.ResolvedBy, &resolvedAt, &f.CreatedBy, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if dueDate.Valid && dueDate.String != "" {
		d, err := types.ParseDate(dueDate.String)
		if err != nil {
			return nil, err
		}
		f.DueDate = d
	}
	f.ResolvedAt = timePtr(resolvedAt)
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

func getFlag(ctx context.Context, q querier, id string) (*types.ReviewFlag, error) {
	row := q.QueryRowContext(ctx, `SELECT `+flagColumns+` FROM review_flags WHERE id = ?`, id)
	f, err := scanFlag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goverr.NotFound("review flag", id)
	}
	if err != nil {
		return nil, goverr.Internal("failed to get review flag", err)
	}
	return f, nil
}

func nullableDate(d types.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func saveFlag(ctx context.Context, q querier, f *types.ReviewFlag) error {
	if _, err := q.ExecContext(ctx, `
		UPDATE review_flags SET title = ?, notes = ?, due_date = ?, status = ?,
			resolution = ?, resolved_by = ?, resolved_at = ?, updated_at = ?
		WHERE id = ?
	`, f.Title, f.Notes, nullableDate(f.DueDate), string(f.Status),
		f.Resolution, f.ResolvedBy, nullableTime(f.ResolvedAt), formatTime(f.UpdatedAt), f.ID,
	); err != nil {
		return goverr.Internal("failed to update review flag", err)
	}
	return nil
}

// applyFlagTransition moves f to status `to`, checking the edge and
// maintaining the resolution fields.
func applyFlagTransition(f *types.ReviewFlag, to types.FlagStatus, resolution, actor string, ts time.Time) error {
	if !types.CanTransitionFlag(f.Status, to) {
		return goverr.InvalidTransition("review flag", f.Status, to)
	}
	switch {
	case to.IsClosed():
		f.Resolution = resolution
		f.ResolvedBy = actor
		f.ResolvedAt = &ts
	case to == types.FlagOpen:
		f.Resolution = ""
		f.ResolvedBy = ""
		f.ResolvedAt = nil
	}
	f.Status = to
	return nil
}

// CreateFlag inserts a new OPEN review flag. Targets are not resolved.
func (s *SQLiteStorage) CreateFlag(ctx context.Context, flag *types.ReviewFlag) error {
	if err := flag.Validate(); err != nil {
		return goverr.BadRequest("invalid review flag: %v", err)
	}

	ts := now()
	flag.ID = newID()
	flag.Status = types.FlagOpen
	flag.Resolution = ""
	flag.ResolvedBy = ""
	flag.ResolvedAt = nil
	flag.CreatedAt = ts
	flag.UpdatedAt = ts

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO review_flags (id, target_type, target_id, flag_type, title, notes, due_date,
			status, resolution, resolved_by, resolved_at, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', '', NULL, ?, ?, ?)
	`, flag.ID, string(flag.TargetType), flag.TargetID, string(flag.FlagType), flag.Title, flag.Notes,
		nullableDate(flag.DueDate), string(flag.Status), flag.CreatedBy, formatTime(ts), formatTime(ts),
	); err != nil {
		return goverr.Internal("failed to insert review flag", err)
	}
	return nil
}

// GetFlag retrieves a review flag by ID
func (s *SQLiteStorage) GetFlag(ctx context.Context, id string) (*types.ReviewFlag, error) {
	return getFlag(ctx, s.db, id)
}

// ListFlags returns flags matching filter, soonest due first with undated
// flags last.
func (s *SQLiteStorage) ListFlags(ctx context.Context, filter types.FlagFilter) ([]*types.ReviewFlag, error) {
	var where []string
	var args []any

	if filter.TargetType != "" {
		if !types.IsValidFlagTarget(filter.TargetType) {
			return nil, goverr.BadRequest("invalid flag target type: %q", filter.TargetType)
		}
		where = append(where, "target_type = ?")
		args = append(args, string(filter.TargetType))
	}
	if filter.TargetID != "" {
		where = append(where, "target_id = ?")
		args = append(args, filter.TargetID)
	}
	if filter.Status != nil {
		if !filter.Status.IsValid() {
			return nil, goverr.BadRequest("invalid flag status: %q", *filter.Status)
		}
		where = append(where, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.FlagType != nil {
		if !filter.FlagType.IsValid() {
			return nil, goverr.BadRequest("invalid flag type: %q", *filter.FlagType)
		}
		where = append(where, "flag_type = ?")
		args = append(args, string(*filter.FlagType))
	}

	query := `SELECT ` + flagColumns + ` FROM review_flags`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	page := filter.Page.Normalize()
	query += " ORDER BY due_date IS NULL, due_date ASC, created_at ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, page.Limit, page.Offset)

	return s.queryFlags(ctx, query, args...)
}

func (s *SQLiteStorage) queryFlags(ctx context.Context, query string, args ...any) ([]*types.ReviewFlag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goverr.Internal("failed to list review flags", err)
	}
	defer func() { _ = rows.Close() }()

	var flags []*types.ReviewFlag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, goverr.Internal("failed to scan review flag", err)
		}
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, goverr.Internal("failed to list review flags", err)
	}
	return flags, nil
}

// UpdateFlag edits title, notes or due date and optionally changes status.
// Content edits are only allowed while the flag is OPEN or IN_PROGRESS.
func (s *SQLiteStorage) UpdateFlag(ctx context.Context, id string, update types.FlagUpdate, actor string) (*types.ReviewFlag, error) {
	if err := update.Validate(); err != nil {
		return nil, goverr.BadRequest("invalid review flag update: %v", err)
	}

	var updated *types.ReviewFlag
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		f, err := getFlag(ctx, tx, id)
		if err != nil {
			return err
		}
		if update.HasContentChanges() && f.Status.IsClosed() {
			return goverr.Forbidden("review flag is %s; only OPEN or IN_PROGRESS flags can be edited", f.Status)
		}

		ts := now()
		if update.Title != nil {
			f.Title = *update.Title
		}
		if update.Notes != nil {
			f.Notes = *update.Notes
		}
		if update.ClearDueDate {
			f.DueDate = types.Date{}
		} else if update.DueDate != nil {
			f.DueDate = *update.DueDate
		}
		if update.Status != nil && *update.Status != f.Status {
			resolution := ""
			if update.Resolution != nil {
				resolution = strings.TrimSpace(*update.Resolution)
			}
			if err := applyFlagTransition(f, *update.Status, resolution, actor, ts); err != nil {
				return err
			}
		}
		f.UpdatedAt = ts

		if err := saveFlag(ctx, tx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	return updated, err
}

// TransitionFlag moves a flag along one edge of its workflow. RESOLVED and
// DISMISSED require resolution text; reopening clears it.
func (s *SQLiteStorage) TransitionFlag(ctx context.Context, id string, to types.FlagStatus, resolution, actor string) (*types.ReviewFlag, error) {
	if !to.IsValid() {
		return nil, goverr.BadRequest("invalid flag status: %q", to)
	}
	resolution = strings.TrimSpace(resolution)
	if to.RequiresResolution() && resolution == "" {
		return nil, goverr.BadRequest("resolution is required to move a flag to %s", to)
	}

	var updated *types.ReviewFlag
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		f, err := getFlag(ctx, tx, id)
		if err != nil {
			return err
		}
		ts := now()
		if err := applyFlagTransition(f, to, resolution, actor, ts); err != nil {
			return err
		}
		f.UpdatedAt = ts

		if err := saveFlag(ctx, tx, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	return updated, err
}

// DeleteFlag removes a flag that has not been picked up yet
func (s *SQLiteStorage) DeleteFlag(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		f, err := getFlag(ctx, tx, id)
		if err != nil {
			return err
		}
		if f.Status != types.FlagOpen {
			return goverr.Forbidden("review flag is %s; only OPEN flags can be deleted", f.Status)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM review_flags WHERE id = ?`, id); err != nil {
			return goverr.Internal("failed to delete review flag", err)
		}
		return nil
	})
}

// GetOverdueFlags returns flags due before today that are still OPEN or
// IN_PROGRESS, oldest due date first.
func (s *SQLiteStorage) GetOverdueFlags(ctx context.Context, today types.Date) ([]*types.ReviewFlag, error) {
	if today.IsZero() {
		return nil, goverr.BadRequest("today is required")
	}
	return s.queryFlags(ctx, `
		SELECT `+flagColumns+` FROM review_flags
		WHERE due_date IS NOT NULL AND due_date < ?
		  AND status IN ('OPEN', 'IN_PROGRESS')
		ORDER BY due_date ASC, created_at ASC, id ASC
	`, today.String())
}
