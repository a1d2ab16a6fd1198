package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// ReadMemory returns the singleton memory record, creating the default
// record on first use so that exactly one always exists afterwards.
func (s *Store) ReadMemory() (types.Memory, error) {
	var (
		lastWake, visitors, actions, plans string
		m                                  types.Memory
	)
	err := s.db.QueryRow(
		`SELECT last_wake_time, visitors_read, actions_taken, mood, plans FROM memory WHERE id = 1`,
	).Scan(&lastWake, &visitors, &actions, &m.Mood, &plans)
	if errors.Is(err, sql.ErrNoRows) {
		def := types.DefaultMemory()
		if err := s.writeMemory(def, "INSERT OR IGNORE"); err != nil {
			return types.Memory{}, err
		}
		return def, nil
	}
	if err != nil {
		return types.Memory{}, fmt.Errorf("failed to read memory: %w", err)
	}

	if m.LastWakeTime, err = types.ParseTime(lastWake); err != nil {
		return types.Memory{}, fmt.Errorf("corrupt memory record: %w", err)
	}
	for _, f := range []struct {
		raw string
		dst *[]string
	}{{visitors, &m.VisitorsRead}, {actions, &m.ActionsTaken}, {plans, &m.Plans}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return types.Memory{}, fmt.Errorf("corrupt memory record: %w", err)
		}
		if *f.dst == nil {
			*f.dst = []string{}
		}
	}
	return m, nil
}

// SaveMemory overwrites the memory record wholesale. Nothing of the previous
// record survives.
func (s *Store) SaveMemory(m types.Memory) error {
	return s.writeMemory(m, "INSERT OR REPLACE")
}

func (s *Store) writeMemory(m types.Memory, verb string) error {
	enc := func(v []string) string {
		if v == nil {
			v = []string{}
		}
		b, _ := json.Marshal(v)
		return string(b)
	}
	_, err := s.db.Exec(
		verb+` INTO memory (id, last_wake_time, visitors_read, actions_taken, mood, plans, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)`,
		types.FormatTime(m.LastWakeTime), enc(m.VisitorsRead), enc(m.ActionsTaken),
		m.Mood, enc(m.Plans), types.FormatTime(s.clock()),
	)
	if err != nil {
		return fmt.Errorf("failed to write memory: %w", err)
	}
	return nil
}
