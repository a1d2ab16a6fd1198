package store

import (
	"fmt"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// LogActivity appends one audit event.
func (s *Store) LogActivity(kind, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO activity (kind, detail, created_at) VALUES (?, ?, ?)`,
		kind, detail, types.FormatTime(s.clock()),
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

// ListActivity returns a page of events, newest first.
func (s *Store) ListActivity(limit, offset int) ([]types.ActivityEvent, error) {
	return s.queryActivity(
		`SELECT id, kind, detail, created_at FROM activity ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

// ActivityByKind returns events of one kind in insertion order.
func (s *Store) ActivityByKind(kind string) ([]types.ActivityEvent, error) {
	return s.queryActivity(
		`SELECT id, kind, detail, created_at FROM activity WHERE kind = ? ORDER BY id ASC`,
		kind,
	)
}

func (s *Store) queryActivity(query string, args ...interface{}) ([]types.ActivityEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var out []types.ActivityEvent
	for rows.Next() {
		var ev types.ActivityEvent
		var created string
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Detail, &created); err != nil {
			return nil, err
		}
		if ev.CreatedAt, err = types.ParseTime(created); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
