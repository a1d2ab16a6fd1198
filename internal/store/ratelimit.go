package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// CheckRateLimit counts one submission for fp inside a fixed window and
// reports whether it is allowed and how many remain.
func (s *Store) CheckRateLimit(fp string, limit int, window time.Duration) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	tx, err := s.db.Begin()
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin rate-limit check: %w", err)
	}
	defer tx.Rollback()

	var count int
	var start string
	err = tx.QueryRow(`SELECT count, window_start FROM rate_limits WHERE fingerprint = ?`, fp).Scan(&count, &start)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		count = 0
		start = types.FormatTime(now)
		if _, err := tx.Exec(`INSERT INTO rate_limits (fingerprint, count, window_start) VALUES (?, 0, ?)`, fp, start); err != nil {
			return false, 0, fmt.Errorf("failed to create rate-limit record: %w", err)
		}
	case err != nil:
		return false, 0, fmt.Errorf("failed to read rate limit: %w", err)
	}

	windowStart, err := types.ParseTime(start)
	if err != nil || now.Sub(windowStart) >= window {
		count = 0
		start = types.FormatTime(now)
	}
	if count >= limit {
		return false, 0, tx.Commit()
	}

	count++
	if _, err := tx.Exec(`UPDATE rate_limits SET count = ?, window_start = ? WHERE fingerprint = ?`, count, start, fp); err != nil {
		return false, 0, fmt.Errorf("failed to update rate limit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit rate limit: %w", err)
	}
	return true, limit - count, nil
}

// Block bans a fingerprint from posting until Unblock is called.
func (s *Store) Block(fp, reason string) error {
	now := types.FormatTime(s.clock())
	_, err := s.db.Exec(
		`INSERT INTO rate_limits (fingerprint, count, window_start, blocked, blocked_reason, blocked_at)
		 VALUES (?, 0, ?, 1, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET blocked = 1, blocked_reason = excluded.blocked_reason,
		 blocked_at = excluded.blocked_at`,
		fp, now, reason, now,
	)
	if err != nil {
		return fmt.Errorf("failed to block fingerprint: %w", err)
	}
	logging.Store("Blocked fingerprint %s (%s)", fp, reason)
	return nil
}

// Unblock lifts a ban and resets the window. Returns ErrNotFound when fp
// was not blocked.
func (s *Store) Unblock(fp string) error {
	res, err := s.db.Exec(
		`UPDATE rate_limits SET blocked = 0, blocked_reason = '', blocked_at = NULL, count = 0
		 WHERE fingerprint = ? AND blocked = 1`, fp)
	if err != nil {
		return fmt.Errorf("failed to unblock fingerprint: %w", err)
	}
	if err := expectRow(res, "blocked fingerprint "+fp); err != nil {
		return err
	}
	logging.Store("Unblocked fingerprint %s", fp)
	return nil
}

// IsBlocked reports whether fp is banned.
func (s *Store) IsBlocked(fp string) (bool, error) {
	var blocked int
	err := s.db.QueryRow(`SELECT blocked FROM rate_limits WHERE fingerprint = ?`, fp).Scan(&blocked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return blocked != 0, nil
}

// ListBlocked returns every banned fingerprint, newest ban first.
func (s *Store) ListBlocked() ([]types.BlockedFingerprint, error) {
	rows, err := s.db.Query(
		`SELECT fingerprint, blocked_reason, COALESCE(blocked_at, window_start) FROM rate_limits
		 WHERE blocked = 1 ORDER BY blocked_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked: %w", err)
	}
	defer rows.Close()

	var out []types.BlockedFingerprint
	for rows.Next() {
		var b types.BlockedFingerprint
		var at string
		if err := rows.Scan(&b.Fingerprint, &b.Reason, &at); err != nil {
			return nil, err
		}
		b.BlockedAt, _ = types.ParseTime(at)
		out = append(out, b)
	}
	return out, rows.Err()
}
