package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

const annotationColumns = `a.id, a.target_type, a.target_id, a.motion_id, a.anchor, a.body,
	a.is_published, a.created_by, a.created_at, a.updated_at, a.published_at`

// targetMissingExpr is 1 when a governance-owned target no longer resolves.
const targetMissingExpr = `CASE a.target_type
		WHEN 'motion' THEN NOT EXISTS (SELECT 1 FROM motions t WHERE t.id = a.target_id)
		WHEN 'minutes' THEN NOT EXISTS (SELECT 1 FROM minutes t WHERE t.id = a.target_id)
		ELSE 0 END`

func scanAnnotation(row rowScanner, extra ...any) (*types.Annotation, error) {
	var a types.Annotation
	var motionID, publishedAt sql.NullString
	var createdAt, updatedAt string
	var published int
	dest := []any{
		&a.ID, &a.TargetType, &a.TargetID, &motionID, &a.Anchor, &a.Body,
		&published, &a.CreatedBy, &createdAt, &updatedAt, &publishedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.MotionID = motionID.String
	a.IsPublished = published != 0
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	a.PublishedAt = timePtr(publishedAt)
	return &a, nil
}

func getAnnotation(ctx context.Context, q querier, id string) (*types.Annotation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+annotationColumns+` FROM annotations a WHERE a.id = ?`, id)
	a, err := scanAnnotation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goverr.NotFound("annotation", id)
	}
	if err != nil {
		return nil, goverr.Internal("failed to get annotation", err)
	}
	return a, nil
}

// CreateAnnotation inserts an unpublished annotation. Motion and minutes
// targets must exist at creation time; other target types are not resolved.
func (s *SQLiteStorage) CreateAnnotation(ctx context.Context, annotation *types.Annotation) error {
	if err := annotation.Validate(); err != nil {
		return goverr.BadRequest("invalid annotation: %v", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		switch annotation.TargetType {
		case types.TargetMotion:
			if _, err := getMotion(ctx, tx, annotation.TargetID); err != nil {
				return err
			}
			annotation.MotionID = annotation.TargetID
		case types.TargetMinutes:
			if _, err := getMinutes(ctx, tx, annotation.TargetID); err != nil {
				return err
			}
		}

		ts := now()
		annotation.ID = newID()
		annotation.IsPublished = false
		annotation.PublishedAt = nil
		annotation.CreatedAt = ts
		annotation.UpdatedAt = ts

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO annotations (id, target_type, target_id, motion_id, anchor, body,
				is_published, created_by, created_at, updated_at, published_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, NULL)
		`, annotation.ID, string(annotation.TargetType), annotation.TargetID,
			nullableString(annotation.MotionID), annotation.Anchor, annotation.Body,
			annotation.CreatedBy, formatTime(ts), formatTime(ts)); err != nil {
			return goverr.Internal("failed to insert annotation", err)
		}
		return nil
	})
}

// GetAnnotation retrieves an annotation by ID
func (s *SQLiteStorage) GetAnnotation(ctx context.Context, id string) (*types.Annotation, error) {
	return getAnnotation(ctx, s.db, id)
}

// UpdateAnnotation edits body or anchor
func (s *SQLiteStorage) UpdateAnnotation(ctx context.Context, id string, update types.AnnotationUpdate) (*types.Annotation, error) {
	if err := update.Validate(); err != nil {
		return nil, goverr.BadRequest("invalid annotation update: %v", err)
	}

	var updated *types.Annotation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a, err := getAnnotation(ctx, tx, id)
		if err != nil {
			return err
		}
		if update.Body != nil {
			a.Body = *update.Body
		}
		if update.Anchor != nil {
			a.Anchor = *update.Anchor
		}
		a.UpdatedAt = now()

		if _, err := tx.ExecContext(ctx,
			`UPDATE annotations SET body = ?, anchor = ?, updated_at = ? WHERE id = ?`,
			a.Body, a.Anchor, formatTime(a.UpdatedAt), id,
		); err != nil {
			return goverr.Internal("failed to update annotation", err)
		}
		updated = a
		return nil
	})
	return updated, err
}

// SetAnnotationPublished publishes or unpublishes an annotation. Publishing
// stamps published_at; unpublishing clears it.
func (s *SQLiteStorage) SetAnnotationPublished(ctx context.Context, id string, published bool) (*types.Annotation, error) {
	var updated *types.Annotation
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a, err := getAnnotation(ctx, tx, id)
		if err != nil {
			return err
		}
		if a.IsPublished == published {
			updated = a
			return nil
		}

		ts := now()
		a.IsPublished = published
		a.UpdatedAt = ts
		a.PublishedAt = nil
		if published {
			a.PublishedAt = &ts
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE annotations SET is_published = ?, published_at = ?, updated_at = ? WHERE id = ?`,
			boolToInt(published), nullableTime(a.PublishedAt), formatTime(ts), id,
		); err != nil {
			return goverr.Internal("failed to update annotation", err)
		}
		updated = a
		return nil
	})
	return updated, err
}

// DeleteAnnotation removes an annotation
func (s *SQLiteStorage) DeleteAnnotation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotations WHERE id = ?`, id)
	if err != nil {
		return goverr.Internal("failed to delete annotation", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goverr.NotFound("annotation", id)
	}
	return nil
}

// annotationWhere builds the WHERE clause for a filter. Unpublished rows are
// excluded in SQL unless the filter explicitly includes them.
func annotationWhere(filter types.AnnotationFilter) (string, []any, error) {
	var where []string
	var args []any

	if filter.TargetType != "" {
		if !types.IsValidAnnotationTarget(filter.TargetType) {
			return "", nil, goverr.BadRequest("invalid annotation target type: %q", filter.TargetType)
		}
		where = append(where, "a.target_type = ?")
		args = append(args, string(filter.TargetType))
	}
	if filter.TargetID != "" {
		where = append(where, "a.target_id = ?")
		args = append(args, filter.TargetID)
	}
	if filter.MotionID != "" {
		where = append(where, "a.motion_id = ?")
		args = append(args, filter.MotionID)
	}
	if filter.MinutesID != "" {
		where = append(where, "a.target_type = 'minutes' AND a.target_id = ?")
		args = append(args, filter.MinutesID)
	}
	if !filter.IncludeUnpublished {
		where = append(where, "a.is_published = 1")
	}

	if len(where) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(where, " AND "), args, nil
}

// ListAnnotations returns annotations oldest first. Each result carries
// TargetMissing when its motion or minutes target no longer exists.
func (s *SQLiteStorage) ListAnnotations(ctx context.Context, filter types.AnnotationFilter) ([]*types.Annotation, error) {
	where, args, err := annotationWhere(filter)
	if err != nil {
		return nil, err
	}
	page := filter.Page.Normalize()
	args = append(args, page.Limit, page.Offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+annotationColumns+`, `+targetMissingExpr+`
		FROM annotations a`+where+`
		ORDER BY a.created_at ASC, a.id ASC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, goverr.Internal("failed to list annotations", err)
	}
	defer func() { _ = rows.Close() }()

	var annotations []*types.Annotation
	for rows.Next() {
		var missing int
		a, err := scanAnnotation(rows, &missing)
		if err != nil {
			return nil, goverr.Internal("failed to scan annotation", err)
		}
		a.TargetMissing = missing != 0
		annotations = append(annotations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, goverr.Internal("failed to list annotations", err)
	}
	return annotations, nil
}

// GetAnnotationCounts counts annotations matching filter. With
// IncludeUnpublished unset, unpublished annotations are not counted at all.
func (s *SQLiteStorage) GetAnnotationCounts(ctx context.Context, filter types.AnnotationFilter) (*types.AnnotationCounts, error) {
	where, args, err := annotationWhere(filter)
	if err != nil {
		return nil, err
	}

	var counts types.AnnotationCounts
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(a.is_published), 0)
		FROM annotations a`+where, args...,
	).Scan(&counts.Total, &counts.Published); err != nil {
		return nil, goverr.Internal("failed to count annotations", err)
	}
	counts.Unpublished = counts.Total - counts.Published
	return &counts, nil
}
