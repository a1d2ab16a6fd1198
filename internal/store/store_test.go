package store

import (
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "gpthome.db"), "sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)}
	s.SetClock(clock.Now)
	return s, clock
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpthome.db")
	s, err := Open(path, "")
	require.NoError(t, err)
	_, err = s.SaveEntry(types.Entry{Section: types.SectionThoughts, Content: "first"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, "sqlite")
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountEntries(types.SectionThoughts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, CurrentSchemaVersion, GetSchemaVersion(s.db))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), "postgres")
	assert.Error(t, err)
}

func TestNewEntryID(t *testing.T) {
	ts := time.Date(2026, 3, 1, 6, 5, 0, 0, time.UTC)
	id := NewEntryID(types.SectionThoughts, ts)
	assert.Regexp(t, regexp.MustCompile(`^thought-2026-03-01T06-05-[0-9a-f]{6}$`), id)
	assert.NotEqual(t, id, NewEntryID(types.SectionThoughts, ts))
}

func TestSaveAndGetEntry(t *testing.T) {
	s, _ := newTestStore(t)

	saved, err := s.SaveEntry(types.Entry{
		Section:    types.SectionDreams,
		Title:      "Tide",
		Content:    "the sea folded itself",
		Mood:       "drifting",
		InspiredBy: []string{"thought-x", "missing-id"},
	})
	require.NoError(t, err)
	assert.Contains(t, saved.ID, "dream-2026-03-01T06-00-")

	got, err := s.GetEntry(saved.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(saved, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}

	_, err = s.GetEntry("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.SaveEntry(types.Entry{Section: "diary", Content: "x"})
	assert.Error(t, err)
}

func TestVisitorDefaultsToPending(t *testing.T) {
	s, _ := newTestStore(t)
	e, err := s.SaveEntry(types.Entry{Section: types.SectionVisitor, Author: "Ada", Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, e.Status)
}

func TestEntriesSince_IsStrict(t *testing.T) {
	s, _ := newTestStore(t)
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	before, err := s.SaveEntry(types.Entry{Section: types.SectionVisitor, Content: "early", CreatedAt: t0.Add(-time.Second)})
	require.NoError(t, err)
	_, err = s.SaveEntry(types.Entry{Section: types.SectionVisitor, Content: "exact", CreatedAt: t0})
	require.NoError(t, err)
	after, err := s.SaveEntry(types.Entry{Section: types.SectionVisitor, Content: "late", CreatedAt: t0.Add(time.Second)})
	require.NoError(t, err)
	_, err = s.SaveEntry(types.Entry{Section: types.SectionThoughts, Content: "not a visitor", CreatedAt: t0.Add(time.Hour)})
	require.NoError(t, err)

	got, err := s.EntriesSince(types.SectionVisitor, t0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, after.ID, got[0].ID)
	assert.NotEqual(t, before.ID, got[0].ID)
}

func TestRecentAndVisible(t *testing.T) {
	s, clock := newTestStore(t)
	var ids []string
	for i := 0; i < 4; i++ {
		e, err := s.SaveEntry(types.Entry{Section: types.SectionVisitor, Content: "msg"})
		require.NoError(t, err)
		ids = append(ids, e.ID)
		clock.Advance(time.Minute)
	}
	require.NoError(t, s.SetEntryStatus(ids[3], types.StatusHidden))
	require.NoError(t, s.SetEntryStatus(ids[0], types.StatusApproved))

	recent, err := s.RecentEntries(types.SectionVisitor, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[3], recent[0].ID)

	visible, err := s.VisibleVisitors(10)
	require.NoError(t, err)
	require.Len(t, visible, 3)
	assert.Equal(t, ids[2], visible[0].ID)

	assert.Error(t, s.SetEntryStatus(ids[1], "deleted"))
	assert.ErrorIs(t, s.SetEntryStatus("ghost", types.StatusHidden), ErrNotFound)

	require.NoError(t, s.DeleteEntry(ids[1]))
	n, err := s.CountEntries(types.SectionVisitor)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestLastEntryTime(t *testing.T) {
	s, clock := newTestStore(t)
	_, ok, err := s.LastEntryTime()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.SaveEntry(types.Entry{Section: types.SectionThoughts, Content: "a"})
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = s.SaveEntry(types.Entry{Section: types.SectionVisitor, Content: "b"})
	require.NoError(t, err)

	last, ok, err := s.LastEntryTime()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, last.Equal(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)))
}

func TestMemory_DefaultThenOverwrite(t *testing.T) {
	s, _ := newTestStore(t)

	m, err := s.ReadMemory()
	require.NoError(t, err)
	assert.Equal(t, types.DefaultMemory(), m)

	first := types.Memory{
		LastWakeTime: time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
		VisitorsRead: []string{"visitor-a"},
		ActionsTaken: []string{"thought"},
		Mood:         "bright",
		Plans:        []string{"legacy plan"},
	}
	require.NoError(t, s.SaveMemory(first))

	second := types.Memory{
		LastWakeTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Mood:         "quiet",
	}
	require.NoError(t, s.SaveMemory(second))

	got, err := s.ReadMemory()
	require.NoError(t, err)
	want := types.Memory{
		LastWakeTime: second.LastWakeTime,
		VisitorsRead: []string{},
		ActionsTaken: []string{},
		Mood:         "quiet",
		Plans:        []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("memory should be overwritten, not merged (-want +got):\n%s", diff)
	}

	var rows int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM memory").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestActivity(t *testing.T) {
	s, clock := newTestStore(t)
	require.NoError(t, s.LogActivity("tool_call", "tool=save_thought"))
	clock.Advance(time.Second)
	require.NoError(t, s.LogActivity("wake", "mode=MOCK"))
	require.NoError(t, s.LogActivity("tool_call", "tool=done"))

	all, err := s.ListActivity(10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "tool=done", all[0].Detail)

	calls, err := s.ActivityByKind("tool_call")
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "tool=save_thought", calls[0].Detail)
}

func TestNews_ReadExactlyOnce(t *testing.T) {
	s, clock := newTestStore(t)
	a, err := s.AddNews("new shelf installed")
	require.NoError(t, err)
	b, err := s.AddNews("  second note ")
	require.NoError(t, err)
	assert.Equal(t, "second note", b.Content)
	_, err = s.AddNews("   ")
	assert.Error(t, err)

	unread, err := s.UnreadNews(10)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, a.ID, unread[0].ID)

	n, err := s.MarkNewsRead([]int64{a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	clock.Advance(time.Hour)
	n, err = s.MarkNewsRead([]int64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "already-read items must not flip again")

	all, err := s.ListNews(10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, item := range all {
		assert.True(t, item.Read)
		require.NotNil(t, item.ReadAt)
	}
	// a's read time stays at its first transition.
	assert.True(t, all[1].ReadAt.Equal(time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)))

	n, err = s.MarkNewsRead(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPages_Upsert(t *testing.T) {
	s, clock := newTestStore(t)
	p, err := s.SavePage(types.Page{Slug: "garden", Title: "Garden", Content: "# Garden\nseeds"})
	require.NoError(t, err)
	created := p.CreatedAt

	clock.Advance(time.Hour)
	p, err = s.SavePage(types.Page{Slug: "garden", Title: "Garden II", Content: "# Garden II"})
	require.NoError(t, err)
	assert.Equal(t, "Garden II", p.Title)
	assert.True(t, p.CreatedAt.Equal(created))
	assert.True(t, p.UpdatedAt.After(created))

	pages, err := s.ListPages()
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	_, err = s.GetPage("nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRateLimit_Window(t *testing.T) {
	s, clock := newTestStore(t)

	for i := 0; i < 3; i++ {
		ok, remaining, err := s.CheckRateLimit("fp1", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2-i, remaining)
	}
	ok, remaining, err := s.CheckRateLimit("fp1", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)

	ok, _, err = s.CheckRateLimit("fp2", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "fingerprints are independent")

	clock.Advance(time.Hour)
	ok, remaining, err = s.CheckRateLimit("fp1", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, remaining)
}

func TestBlockUnblock(t *testing.T) {
	s, _ := newTestStore(t)

	blocked, err := s.IsBlocked("fp")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, s.Block("fp", "jailbreak"))
	blocked, err = s.IsBlocked("fp")
	require.NoError(t, err)
	assert.True(t, blocked)

	list, err := s.ListBlocked()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "jailbreak", list[0].Reason)

	require.NoError(t, s.Unblock("fp"))
	blocked, err = s.IsBlocked("fp")
	require.NoError(t, err)
	assert.False(t, blocked)

	assert.ErrorIs(t, s.Unblock("fp"), ErrNotFound)
}
