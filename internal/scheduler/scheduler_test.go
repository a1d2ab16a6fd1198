package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNew_RejectsBadTimes(t *testing.T) {
	_, err := New(nil, nil, nil)
	assert.Error(t, err)
	_, err = New([]string{"25:00"}, nil, nil)
	assert.Error(t, err)
}

func TestNext(t *testing.T) {
	s, err := New([]string{"18:00", "06:00", "00:00", "12:00", "06:00"}, time.UTC, nil)
	require.NoError(t, err)

	day := func(d, h, m int) time.Time { return time.Date(2026, 3, d, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"early morning", day(1, 3, 0), day(1, 6, 0)},
		{"exactly on a wake moves on", day(1, 6, 0), day(1, 12, 0)},
		{"between wakes", day(1, 12, 1), day(1, 18, 0)},
		{"after the last wake rolls over", day(1, 23, 59), day(2, 0, 0)},
		{"one second before midnight", day(1, 23, 59).Add(59 * time.Second), day(2, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(s.Next(tt.now)), "got %s", s.Next(tt.now))
		})
	}
}

func TestNext_Timezone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	s, err := New([]string{"06:00"}, berlin, nil)
	require.NoError(t, err)

	// 04:30 UTC is 05:30 in Berlin in winter.
	next := s.Next(time.Date(2026, 1, 10, 4, 30, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2026, 1, 10, 5, 0, 0, 0, time.UTC)), "got %s", next)
}

// fakeClock hands out timer channels the test fires by hand.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	waits  chan time.Duration
	timers chan chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, waits: make(chan time.Duration, 8), timers: make(chan chan time.Time, 8)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.waits <- d
	c.timers <- ch
	return ch
}

func (c *fakeClock) fire(t *testing.T) time.Duration {
	t.Helper()
	d := <-c.waits
	ch := <-c.timers
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch <- now
	return d
}

func TestRun_FiresAndKeepsGoingAfterErrors(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC))
	runs := make(chan time.Time, 4)
	s, err := New([]string{"06:00", "12:00"}, time.UTC, func(context.Context) error {
		runs <- clock.Now()
		return errors.New("model unavailable")
	})
	require.NoError(t, err)
	s.SetClock(clock.Now, clock.After)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Equal(t, time.Hour, clock.fire(t))
	assert.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC), <-runs)

	assert.Equal(t, 6*time.Hour, clock.fire(t))
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), <-runs)

	// Wait for the next sleep to begin, then stop.
	assert.Equal(t, 18*time.Hour, <-clock.waits)
	cancel()
	require.NoError(t, <-done)
}
