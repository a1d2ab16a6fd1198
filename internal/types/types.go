// Package types holds the domain records shared by the store, the tool
// surface and the wake cycle.
package types

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the persisted timestamp format: UTC and fixed width so that
// lexical order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout and plain RFC 3339.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Section is the content area an Entry belongs to.
type Section string

const (
	SectionThoughts Section = "thoughts"
	SectionDreams   Section = "dreams"
	SectionVisitor  Section = "visitor"
	SectionEchoes   Section = "echoes"
)

// Sections lists every valid section.
var Sections = []Section{SectionThoughts, SectionDreams, SectionVisitor, SectionEchoes}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	for _, v := range Sections {
		if s == v {
			return true
		}
	}
	return false
}

// Singular is the id prefix for entries in the section.
func (s Section) Singular() string {
	return strings.TrimSuffix(string(s), "s")
}

// ParseSection validates a section name.
func ParseSection(s string) (Section, error) {
	sec := Section(strings.ToLower(strings.TrimSpace(s)))
	if !sec.Valid() {
		return "", fmt.Errorf("unknown section %q", s)
	}
	return sec, nil
}

// Status is the moderation state of visitor-origin entries.
type Status string

const (
	StatusNone     Status = ""
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusHidden   Status = "hidden"
)

// Valid reports whether s is a moderation state.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusHidden
}

// Entry is a timestamped content unit. Only Status changes after creation.
type Entry struct {
	ID         string    `json:"id"`
	Section    Section   `json:"section"`
	Title      string    `json:"title,omitempty"`
	Content    string    `json:"content"`
	Mood       string    `json:"mood,omitempty"`
	Author     string    `json:"name,omitempty"` // visitor display name
	InspiredBy []string  `json:"inspired_by,omitempty"`
	Status     Status    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Memory is the singleton record carried between wake cycles.
type Memory struct {
	LastWakeTime time.Time `json:"last_wake_time"`
	VisitorsRead []string  `json:"visitors_read"`
	ActionsTaken []string  `json:"actions_taken"`
	Mood         string    `json:"mood"`
	Plans        []string  `json:"plans"`
}

// DefaultMemory is the record before the first wake.
func DefaultMemory() Memory {
	return Memory{
		LastWakeTime: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		VisitorsRead: []string{},
		ActionsTaken: []string{},
		Mood:         "curious",
		Plans:        []string{},
	}
}

// NewsItem is an operator message for the resident.
type NewsItem struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	Read      bool       `json:"read_by_agent"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// ActivityEvent is one audit-log row.
type ActivityEvent struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is a custom page the resident published through the pages zone.
type Page struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlockedFingerprint is a standing visitor ban.
type BlockedFingerprint struct {
	Fingerprint string    `json:"fingerprint"`
	Reason      string    `json:"reason"`
	BlockedAt   time.Time `json:"blocked_at"`
}
