package sqlite

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/boardworks/govrec/internal/goverr"
	"github.com/boardworks/govrec/internal/types"
)

const defaultAuditLimit = 100

// RecordAudit appends an entry to the audit log. It runs outside any
// governance transaction; callers record after their mutation commits.
func (s *SQLiteStorage) RecordAudit(ctx context.Context, entry *types.AuditEntry) error {
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return goverr.Internal("failed to encode audit metadata", err)
		}
		metadata = b
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (action, object_type, object_id, actor_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(entry.Action), entry.ObjectType, entry.ObjectID, entry.ActorID,
		string(metadata), formatTime(entry.CreatedAt))
	if err != nil {
		return goverr.Internal("failed to record audit entry", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// ListAudit returns audit entries newest first
func (s *SQLiteStorage) ListAudit(ctx context.Context, filter types.AuditFilter) ([]*types.AuditEntry, error) {
	var where []string
	var args []any

	if filter.ObjectType != "" {
		where = append(where, "object_type = ?")
		args = append(args, filter.ObjectType)
	}
	if filter.ObjectID != "" {
		where = append(where, "object_id = ?")
		args = append(args, filter.ObjectID)
	}
	if filter.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, filter.ActorID)
	}

	query := `SELECT id, action, object_type, object_id, actor_id, metadata, created_at FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goverr.Internal("failed to list audit entries", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		var metadata, createdAt string
		if err := rows.Scan(&e.ID, &e.Action, &e.ObjectType, &e.ObjectID, &e.ActorID, &metadata, &createdAt); err != nil {
			return nil, goverr.Internal("failed to scan audit entry", err)
		}
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				return nil, goverr.Internal("failed to decode audit metadata", err)
			}
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, goverr.Internal("failed to list audit entries", err)
	}
	return entries, nil
}
