package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// AddNews appends an operator message.
func (s *Store) AddNews(content string) (types.NewsItem, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return types.NewsItem{}, fmt.Errorf("news content is empty")
	}
	now := s.clock()
	res, err := s.db.Exec(
		`INSERT INTO news (content, read_by_agent, created_at) VALUES (?, 0, ?)`,
		content, types.FormatTime(now),
	)
	if err != nil {
		return types.NewsItem{}, fmt.Errorf("failed to add news: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.NewsItem{}, err
	}
	return types.NewsItem{ID: id, Content: content, CreatedAt: now}, nil
}

// UnreadNews returns up to limit unread items, oldest first.
func (s *Store) UnreadNews(limit int) ([]types.NewsItem, error) {
	return s.queryNews(
		`SELECT id, content, read_by_agent, created_at, read_at FROM news
		 WHERE read_by_agent = 0 ORDER BY id ASC LIMIT ?`, limit)
}

// ListNews returns up to limit items, newest first.
func (s *Store) ListNews(limit int) ([]types.NewsItem, error) {
	return s.queryNews(
		`SELECT id, content, read_by_agent, created_at, read_at FROM news
		 ORDER BY id DESC LIMIT ?`, limit)
}

// MarkNewsRead flips unread items to read. Items already read are left
// untouched, so an item transitions at most once. Returns rows changed.
func (s *Store) MarkNewsRead(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []interface{}{types.FormatTime(s.clock())}
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args = append(args, id)
	}
	res, err := s.db.Exec(
		`UPDATE news SET read_by_agent = 1, read_at = ?
		 WHERE read_by_agent = 0 AND id IN (`+strings.Join(marks, ",")+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark news read: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryNews(query string, args ...interface{}) ([]types.NewsItem, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	defer rows.Close()

	var out []types.NewsItem
	for rows.Next() {
		var (
			n       types.NewsItem
			read    int
			created string
			readAt  sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Content, &read, &created, &readAt); err != nil {
			return nil, err
		}
		n.Read = read != 0
		if n.CreatedAt, err = types.ParseTime(created); err != nil {
			return nil, err
		}
		if readAt.Valid {
			if t, err := types.ParseTime(readAt.String); err == nil {
				n.ReadAt = &t
			}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
