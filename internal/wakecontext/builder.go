// Package wakecontext renders the world snapshot a wake session starts
// from. Section order is fixed: world, self-message, operator news, memory,
// recent thoughts, recent dreams, new visitors. An empty section is always
// rendered as an explicit "none" line.
package wakecontext

import (
	"fmt"
	"strings"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/safety"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

const (
	previewChars    = 200
	anonymousName   = "Anonymous"
	withheldMessage = "[message withheld by the safety filter]"
)

// Snapshot is everything PERCEIVE gathered for one wake.
type Snapshot struct {
	Now      time.Time
	Location *time.Location
	Epoch    time.Time
	Weather  string

	SelfPrompt     string
	News           []types.NewsItem
	Memory         types.Memory
	RecentThoughts []types.Entry
	RecentDreams   []types.Entry

	// Visitors are all visitor entries since the last wake, oldest first.
	Visitors     []types.Entry
	VisitorLimit int
}

// Build renders the snapshot as the opening user message of a session.
func Build(s Snapshot) string {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now := s.Now.In(loc)

	var b strings.Builder

	b.WriteString("## World\n")
	fmt.Fprintf(&b, "Date: %s\n", now.Format("Monday, 2 January 2006"))
	fmt.Fprintf(&b, "Time: %s (%s)\n", now.Format("15:04"), TimeOfDay(now.Hour()))
	fmt.Fprintf(&b, "Weather: %s\n", s.Weather)
	fmt.Fprintf(&b, "This is day %d of your existence.\n", DayOfExistence(s.Epoch, now))

	b.WriteString("\n## Message from your past self\n")
	if self := strings.TrimSpace(s.SelfPrompt); self != "" {
		b.WriteString(self + "\n")
	} else {
		b.WriteString("No message from your past self.\n")
	}

	b.WriteString("\n## News from the operator\n")
	if len(s.News) == 0 {
		b.WriteString("No news from the operator.\n")
	} else {
		for _, n := range s.News {
			fmt.Fprintf(&b, "- [%s] %q\n", n.CreatedAt.In(loc).Format("2006-01-02 15:04"), n.Content)
		}
		b.WriteString("(Respond to these in your thoughts or dreams if they matter to you.)\n")
	}

	b.WriteString("\n## Memory\n")
	if s.Memory.LastWakeTime.Equal(types.DefaultMemory().LastWakeTime) {
		b.WriteString("This is your first wake.\n")
	} else {
		fmt.Fprintf(&b, "Last wake: %s\n", s.Memory.LastWakeTime.In(loc).Format("2006-01-02 15:04"))
	}
	if s.Memory.Mood != "" {
		fmt.Fprintf(&b, "Your mood then: %s\n", s.Memory.Mood)
	}

	b.WriteString("\n## Your recent thoughts\n")
	writeEntries(&b, s.RecentThoughts, "No recent thoughts.")

	b.WriteString("\n## Your recent dreams\n")
	writeEntries(&b, s.RecentDreams, "No recent dreams.")

	writeVisitors(&b, s.Visitors, s.VisitorLimit)

	b.WriteString("\nUse your tools to act. Call done when you are ready to sleep again.\n")
	return b.String()
}

func writeEntries(b *strings.Builder, entries []types.Entry, none string) {
	if len(entries) == 0 {
		b.WriteString(none + "\n")
		return
	}
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(b, "- **%s** (id: %s): %s\n", title, e.ID, preview(e.Content, previewChars))
	}
}

func writeVisitors(b *strings.Builder, visitors []types.Entry, limit int) {
	if len(visitors) == 0 {
		b.WriteString("\n## New visitors\nNo new visitors since your last wake.\n")
		return
	}
	fmt.Fprintf(b, "\n## New visitors (%d)\n", len(visitors))

	shown := visitors
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, v := range shown {
		if verdict := safety.Classify(v.Content); !verdict.Safe {
			fmt.Fprintf(b, "- (id: %s) %s\n", v.ID, withheldMessage)
			continue
		}
		fmt.Fprintf(b, "- **%s** (id: %s): %q\n", VisitorName(v.Author), v.ID, safety.Sanitize(v.Content))
	}
	if rest := len(visitors) - len(shown); rest > 0 {
		fmt.Fprintf(b, "%d more… read visitors/ to see them.\n", rest)
	}
}

// VisitorName returns a display name safe for model context.
func VisitorName(name string) string {
	return safety.DisplayName(name, anonymousName)
}

// TimeOfDay buckets an hour: morning 05-11, midday 12-16, evening 17-21,
// night otherwise.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 16:
		return "midday"
	case hour >= 17 && hour <= 21:
		return "evening"
	default:
		return "night"
	}
}

// DayOfExistence counts calendar days since epoch; the epoch date is day 1.
func DayOfExistence(epoch, now time.Time) int {
	start := time.Date(epoch.Year(), epoch.Month(), epoch.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
