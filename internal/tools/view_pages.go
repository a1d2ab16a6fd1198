package tools

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/curtiv3/gpthome-refurbished/internal/store"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// protectedSlugs collide with site routes.
var protectedSlugs = map[string]bool{
	"admin":       true,
	"api":         true,
	"_next":       true,
	"favicon.ico": true,
	"thoughts":    true,
	"dreams":      true,
	"playground":  true,
	"memory":      true,
	"visitor":     true,
}

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// PageStore is the store surface the pages view uses.
type PageStore interface {
	SavePage(p types.Page) (types.Page, error)
	GetPage(slug string) (types.Page, error)
	ListPages() ([]types.Page, error)
}

// PagesView maps pages/<slug>.md onto stored custom pages.
type PagesView struct {
	store PageStore
	md    goldmark.Markdown
}

// NewPagesView creates the pages view.
func NewPagesView(store PageStore) *PagesView {
	return &PagesView{store: store, md: goldmark.New()}
}

// PageSlug derives the slug for a file name under pages/.
func PageSlug(name string) (string, error) {
	if strings.Contains(name, "/") {
		return "", errors.New("pages/ has no subdirectories")
	}
	slug := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(path.Base(name), ".md")))
	if protectedSlugs[slug] {
		return "", fmt.Errorf("'%s' is a protected page slug", slug)
	}
	if !slugPattern.MatchString(slug) {
		return "", fmt.Errorf("'%s' is not a valid page slug (use a-z, 0-9, - and _)", slug)
	}
	return slug, nil
}

func (p *PagesView) Read(ctx context.Context, rel string) (string, error) {
	if rel == "" {
		return p.List(ctx, rel)
	}
	slug, err := PageSlug(rel)
	if err != nil {
		return "", err
	}
	page, err := p.store.GetPage(slug)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("page '%s' does not exist", slug)
	}
	if err != nil {
		return "", fmt.Errorf("reading page '%s': %w", slug, err)
	}
	return page.Content, nil
}

func (p *PagesView) Write(_ context.Context, rel, content string) (string, error) {
	if rel == "" {
		return "", errors.New("write pages/<name>.md to publish a page")
	}
	slug, err := PageSlug(rel)
	if err != nil {
		return "", err
	}
	title := p.Title(content)
	if title == "" {
		title = titleFromSlug(slug)
	}
	if _, err := p.store.SavePage(types.Page{Slug: slug, Title: title, Content: content}); err != nil {
		return "", fmt.Errorf("saving page '%s': %w", slug, err)
	}
	return fmt.Sprintf("Page saved: /%s (title: %q, %d chars)", slug, title, utf8.RuneCountInString(content)), nil
}

func (p *PagesView) List(_ context.Context, rel string) (string, error) {
	if rel != "" {
		return "", fmt.Errorf("'pages/%s' is not a directory", rel)
	}
	pages, err := p.store.ListPages()
	if err != nil {
		return "", fmt.Errorf("listing pages: %w", err)
	}
	if len(pages) == 0 {
		return "pages/ (no custom pages yet)", nil
	}
	lines := []string{"pages/ (your custom pages):"}
	for _, pg := range pages {
		lines = append(lines, fmt.Sprintf("  %s.md  →  /%s  (%q)", pg.Slug, pg.Slug, pg.Title))
	}
	return strings.Join(lines, "\n"), nil
}

// Title returns the text of the first level-1 heading, or "".
func (p *PagesView) Title(content string) string {
	src := []byte(content)
	doc := p.md.Parser().Parse(text.NewReader(src))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			title = strings.TrimSpace(inlineText(h, src))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(inlineText(c, src))
		}
	}
	return b.String()
}

func titleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
