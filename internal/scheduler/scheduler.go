// Package scheduler fires a job at fixed wall-clock times every day.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

// Job is the scheduled work. Errors are logged; the next run happens at the
// next scheduled time.
type Job func(ctx context.Context) error

type clockTime struct {
	hour, minute int
}

// Scheduler triggers a Job at each configured HH:MM in a location.
type Scheduler struct {
	times []clockTime
	loc   *time.Location
	job   Job

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// New parses times ("06:00", "18:30", ...) and returns a scheduler.
func New(times []string, loc *time.Location, job Job) (*Scheduler, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("no wake times configured")
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{loc: loc, job: job, now: time.Now, after: time.After}
	seen := map[clockTime]bool{}
	for _, raw := range times {
		h, m, err := config.ParseClock(raw)
		if err != nil {
			return nil, err
		}
		ct := clockTime{h, m}
		if !seen[ct] {
			seen[ct] = true
			s.times = append(s.times, ct)
		}
	}
	sort.Slice(s.times, func(i, j int) bool {
		if s.times[i].hour != s.times[j].hour {
			return s.times[i].hour < s.times[j].hour
		}
		return s.times[i].minute < s.times[j].minute
	})
	return s, nil
}

// SetClock replaces the wall clock and the timer source.
func (s *Scheduler) SetClock(now func() time.Time, after func(time.Duration) <-chan time.Time) {
	s.now = now
	s.after = after
}

// Next returns the first scheduled time strictly after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	local := now.In(s.loc)
	for day := 0; ; day++ {
		for _, ct := range s.times {
			candidate := time.Date(local.Year(), local.Month(), local.Day()+day, ct.hour, ct.minute, 0, 0, s.loc)
			if candidate.After(now) {
				return candidate
			}
		}
	}
}

// Run blocks until ctx is cancelled, firing the job at each scheduled time.
// Runs never overlap: a slow job delays the following fire.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, ct := range s.times {
		logging.Scheduler("Scheduled wake at %02d:%02d (%s)", ct.hour, ct.minute, s.loc)
	}
	for {
		now := s.now()
		next := s.Next(now)
		logging.Scheduler("Next wake at %s", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			logging.Scheduler("Scheduler stopped")
			return nil
		case <-s.after(next.Sub(now)):
		}

		timer := logging.StartTimer(logging.CategoryScheduler, "scheduled wake")
		if err := s.job(ctx); err != nil {
			logging.SchedulerWarn("Scheduled wake failed: %v", err)
		}
		timer.Stop()
	}
}
