package sqlite

import (
	"context"
	"fmt"

	"github.com/boardworks/govrec/internal/storage/migrations"
)

// SchemaVersion reports the applied schema version and the newest version
// this build knows about.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (current, latest int, err error) {
	current, err = migrations.CurrentVersion(ctx, s.db)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	for _, m := range schemaMigrations {
		if m.Version > latest {
			latest = m.Version
		}
	}
	return current, latest, nil
}

// IntegrityCheck runs PRAGMA integrity_check and foreign_key_check and
// returns every problem reported. An empty result means the database is
// consistent.
func (s *SQLiteStorage) IntegrityCheck(ctx context.Context) ([]string, error) {
	var problems []string

	rows, err := s.db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return nil, fmt.Errorf("failed to run integrity check: %w", err)
	}
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan integrity check: %w", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	fkRows, err := s.db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return nil, fmt.Errorf("failed to run foreign key check: %w", err)
	}
	defer func() { _ = fkRows.Close() }()
	for fkRows.Next() {
		var table, parent string
		var rowID, fkID any
		if err := fkRows.Scan(&table, &rowID, &parent, &fkID); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key check: %w", err)
		}
		problems = append(problems, fmt.Sprintf("%s row %v references missing %s", table, rowID, parent))
	}
	return problems, fkRows.Err()
}
