package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/curtiv3/gpthome-refurbished/internal/safety"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

const (
	visitorListLimit   = 20
	visitorRecentLimit = 10
	visitorSearchLimit = 200
	newsLimit          = 50
	listPreviewChars   = 80
	anonymousName      = "Anonymous"
	withheldText       = "[message withheld by the safety filter]"
	timestampLayout    = "2006-01-02 15:04"
)

// VisitorSource is the store surface the visitors view reads.
type VisitorSource interface {
	VisibleVisitors(limit int) ([]types.Entry, error)
}

// VisitorsView synthesizes visitors/ from visible visitor entries.
type VisitorsView struct {
	store VisitorSource
}

// NewVisitorsView creates the visitors view.
func NewVisitorsView(store VisitorSource) *VisitorsView {
	return &VisitorsView{store: store}
}

func (v *VisitorsView) Read(_ context.Context, rel string) (string, error) {
	switch rel {
	case "", "recent.txt", "messages.txt", "all.txt":
		recent, err := v.store.VisibleVisitors(visitorRecentLimit)
		if err != nil {
			return "", fmt.Errorf("reading visitors: %w", err)
		}
		if len(recent) == 0 {
			return "(no visitor messages yet)", nil
		}
		var b strings.Builder
		for _, e := range recent {
			fmt.Fprintf(&b, "--- [%s] from %s @ %s ---\n%s\n\n",
				e.ID, safety.DisplayName(e.Author, anonymousName), e.CreatedAt.Format(timestampLayout), visitorText(e.Content))
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}

	candidates, err := v.store.VisibleVisitors(visitorSearchLimit)
	if err != nil {
		return "", fmt.Errorf("reading visitors: %w", err)
	}
	key := strings.TrimSuffix(rel, ".txt")
	for _, e := range candidates {
		if e.ID == key || strings.HasSuffix(e.ID, key) {
			return fmt.Sprintf("From: %s\nDate: %s\n\n%s",
				safety.DisplayName(e.Author, anonymousName), e.CreatedAt.Format(timestampLayout), visitorText(e.Content)), nil
		}
	}
	return "", fmt.Errorf("visitor message '%s' not found", rel)
}

func (v *VisitorsView) Write(_ context.Context, _, _ string) (string, error) {
	return "", fmt.Errorf("'visitors/' is a %w", ErrReadOnly)
}

func (v *VisitorsView) List(_ context.Context, rel string) (string, error) {
	if rel != "" {
		return "", fmt.Errorf("'visitors/%s' is not a directory", rel)
	}
	entries, err := v.store.VisibleVisitors(visitorListLimit)
	if err != nil {
		return "", fmt.Errorf("listing visitors: %w", err)
	}
	if len(entries) == 0 {
		return "visitors/ (no messages yet)", nil
	}
	lines := []string{fmt.Sprintf("visitors/ (latest %d, read-only):", visitorListLimit)}
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("  [%s] %s: %s",
			e.ID, safety.DisplayName(e.Author, anonymousName), preview(visitorText(e.Content), listPreviewChars)))
	}
	return strings.Join(lines, "\n"), nil
}

// visitorText screens stored visitor text the same way the wake context
// does.
func visitorText(content string) string {
	if !safety.Classify(content).Safe {
		return withheldText
	}
	return safety.Sanitize(content)
}

// NewsSource is the store surface the news view reads.
type NewsSource interface {
	ListNews(limit int) ([]types.NewsItem, error)
}

// NewsView synthesizes news/ from operator news.
type NewsView struct {
	store NewsSource
}

// NewNewsView creates the news view.
func NewNewsView(store NewsSource) *NewsView {
	return &NewsView{store: store}
}

func (n *NewsView) Read(_ context.Context, _ string) (string, error) {
	items, err := n.store.ListNews(newsLimit)
	if err != nil {
		return "", fmt.Errorf("reading news: %w", err)
	}
	if len(items) == 0 {
		return "(no news from the operator yet)", nil
	}
	var b strings.Builder
	for _, item := range items {
		state := "(unread)"
		if item.Read {
			state = "(read)"
		}
		fmt.Fprintf(&b, "--- %s @ %s ---\n%s\n\n", state, item.CreatedAt.Format(timestampLayout), item.Content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (n *NewsView) Write(_ context.Context, _, _ string) (string, error) {
	return "", fmt.Errorf("'news/' is a %w", ErrReadOnly)
}

func (n *NewsView) List(_ context.Context, rel string) (string, error) {
	if rel != "" {
		return "", fmt.Errorf("'news/%s' is not a directory", rel)
	}
	items, err := n.store.ListNews(visitorListLimit)
	if err != nil {
		return "", fmt.Errorf("listing news: %w", err)
	}
	if len(items) == 0 {
		return "news/ (no messages from the operator yet)", nil
	}
	lines := []string{"news/ (operator messages, read-only):"}
	for _, item := range items {
		mark := "○"
		if item.Read {
			mark = "✓"
		}
		lines = append(lines, fmt.Sprintf("  %s [%s] %s", mark, item.CreatedAt.Format(timestampLayout), preview(item.Content, listPreviewChars)))
	}
	return strings.Join(lines, "\n"), nil
}

// GiftsView exposes the real gifts/ directory read-only.
type GiftsView struct {
	real *RealFile
}

// NewGiftsView creates the gifts view over the resolver's real files.
func NewGiftsView(real *RealFile) *GiftsView {
	return &GiftsView{real: real}
}

func (g *GiftsView) path(rel string) (string, error) {
	p := MountGifts
	if rel != "" {
		p += "/" + rel
	}
	return p, g.real.contained(p)
}

func (g *GiftsView) Read(ctx context.Context, rel string) (string, error) {
	p, err := g.path(rel)
	if err != nil {
		return "", err
	}
	return g.real.Read(ctx, p)
}

func (g *GiftsView) Write(_ context.Context, _, _ string) (string, error) {
	return "", fmt.Errorf("'gifts/' is a %w", ErrReadOnly)
}

func (g *GiftsView) List(ctx context.Context, rel string) (string, error) {
	p, err := g.path(rel)
	if err != nil {
		return "", err
	}
	out, err := g.real.List(ctx, p)
	if rel == "" && err != nil {
		return "gifts/ (nothing here yet)", nil
	}
	return out, err
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
