package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// SavePage creates or replaces a page, keeping its original creation time.
func (s *Store) SavePage(p types.Page) (types.Page, error) {
	now := s.clock()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	_, err := s.db.Exec(
		`INSERT INTO pages (slug, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET title = excluded.title, content = excluded.content,
		 updated_at = excluded.updated_at`,
		p.Slug, p.Title, p.Content, types.FormatTime(p.CreatedAt), types.FormatTime(p.UpdatedAt),
	)
	if err != nil {
		return types.Page{}, fmt.Errorf("failed to save page: %w", err)
	}
	return s.GetPage(p.Slug)
}

// GetPage returns a page by slug.
func (s *Store) GetPage(slug string) (types.Page, error) {
	row := s.db.QueryRow(`SELECT slug, title, content, created_at, updated_at FROM pages WHERE slug = ?`, slug)
	p, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Page{}, fmt.Errorf("page %s: %w", slug, ErrNotFound)
	}
	return p, err
}

// ListPages returns every page, most recently updated first.
func (s *Store) ListPages() ([]types.Page, error) {
	rows, err := s.db.Query(`SELECT slug, title, content, created_at, updated_at FROM pages ORDER BY updated_at DESC, slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	var out []types.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPage(row rowScanner) (types.Page, error) {
	var p types.Page
	var created, updated string
	if err := row.Scan(&p.Slug, &p.Title, &p.Content, &created, &updated); err != nil {
		return types.Page{}, err
	}
	var err error
	if p.CreatedAt, err = types.ParseTime(created); err != nil {
		return types.Page{}, err
	}
	if p.UpdatedAt, err = types.ParseTime(updated); err != nil {
		return types.Page{}, err
	}
	return p, nil
}
