package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

const entryColumns = "id, section, title, content, mood, author, inspired_by, status, created_at"

// NewEntryID builds a time-ordered id with a random suffix, e.g.
// thought-2026-03-01T06-00-a1b2c3.
func NewEntryID(section types.Section, t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%s-%s", section.Singular(), t.UTC().Format("2006-01-02T15-04"), suffix)
}

// SaveEntry persists a new entry. ID and CreatedAt are generated when
// empty; visitor entries default to pending moderation.
func (s *Store) SaveEntry(e types.Entry) (types.Entry, error) {
	if !e.Section.Valid() {
		return types.Entry{}, fmt.Errorf("invalid section %q", e.Section)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if e.ID == "" {
		e.ID = NewEntryID(e.Section, e.CreatedAt)
	}
	if e.Section == types.SectionVisitor && e.Status == types.StatusNone {
		e.Status = types.StatusPending
	}
	if e.InspiredBy == nil {
		e.InspiredBy = []string{}
	}

	inspired, err := json.Marshal(e.InspiredBy)
	if err != nil {
		return types.Entry{}, fmt.Errorf("failed to encode inspired_by: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Section), e.Title, e.Content, e.Mood, e.Author,
		string(inspired), string(e.Status), types.FormatTime(e.CreatedAt),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save %s entry: %v", e.Section, err)
		return types.Entry{}, fmt.Errorf("failed to save entry: %w", err)
	}
	logging.StoreDebug("Saved entry %s", e.ID)
	return e, nil
}

// GetEntry returns one entry by id.
func (s *Store) GetEntry(id string) (types.Entry, error) {
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Entry{}, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	return e, err
}

// ListEntries returns a page of entries in a section, newest first.
func (s *Store) ListEntries(section types.Section, limit, offset int) ([]types.Entry, error) {
	return s.queryEntries(
		`SELECT `+entryColumns+` FROM entries WHERE section = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		string(section), limit, offset,
	)
}

// RecentEntries returns the n newest entries in a section.
func (s *Store) RecentEntries(section types.Section, n int) ([]types.Entry, error) {
	return s.ListEntries(section, n, 0)
}

// EntriesSince returns entries created strictly after since, oldest first.
func (s *Store) EntriesSince(section types.Section, since time.Time) ([]types.Entry, error) {
	return s.queryEntries(
		`SELECT `+entryColumns+` FROM entries WHERE section = ? AND created_at > ?
		 ORDER BY created_at ASC, id ASC`,
		string(section), types.FormatTime(since),
	)
}

// VisibleVisitors returns visitor entries not hidden by moderation, newest first.
func (s *Store) VisibleVisitors(limit int) ([]types.Entry, error) {
	return s.queryEntries(
		`SELECT `+entryColumns+` FROM entries WHERE section = ? AND status != ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		string(types.SectionVisitor), string(types.StatusHidden), limit,
	)
}

// CountEntries counts entries in a section.
func (s *Store) CountEntries(section types.Section) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE section = ?`, string(section)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// LastEntryTime returns the creation time of the newest thought or dream.
func (s *Store) LastEntryTime() (time.Time, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRow(
		`SELECT MAX(created_at) FROM entries WHERE section IN (?, ?)`,
		string(types.SectionThoughts), string(types.SectionDreams),
	).Scan(&raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last entry time: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, false, nil
	}
	t, err := types.ParseTime(raw.String)
	return t, err == nil, err
}

// SetEntryStatus changes the moderation status of an entry.
func (s *Store) SetEntryStatus(id string, status types.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := s.db.Exec(`UPDATE entries SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return expectRow(res, "entry "+id)
}

// DeleteEntry removes an entry. Only admin moderation calls this.
func (s *Store) DeleteEntry(id string) error {
	res, err := s.db.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return expectRow(res, "entry "+id)
}

func (s *Store) queryEntries(query string, args ...interface{}) ([]types.Entry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var out []types.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (types.Entry, error) {
	var (
		e                         types.Entry
		section, status, inspired string
		created                   string
	)
	if err := row.Scan(&e.ID, &section, &e.Title, &e.Content, &e.Mood, &e.Author, &inspired, &status, &created); err != nil {
		return types.Entry{}, err
	}
	e.Section = types.Section(section)
	e.Status = types.Status(status)
	if err := json.Unmarshal([]byte(inspired), &e.InspiredBy); err != nil {
		// Weak references: a damaged list is dropped, not fatal.
		e.InspiredBy = nil
	}
	t, err := types.ParseTime(created)
	if err != nil {
		return types.Entry{}, err
	}
	e.CreatedAt = t
	return e, nil
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
