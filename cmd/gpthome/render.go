package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
	"github.com/curtiv3/gpthome-refurbished/internal/wake"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(14)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575")).
		Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))
)

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

// renderSummary formats a wake summary for the terminal.
func renderSummary(s *wake.Summary) string {
	outcome := okStyle.Render(s.Outcome)
	if s.Outcome != wake.OutcomeDone {
		outcome = warnStyle.Render(s.Outcome)
	}
	actions := "none"
	if len(s.Actions) > 0 {
		actions = strings.Join(s.Actions, ", ")
	}

	lines := []string{
		titleStyle.Render("Wake cycle"),
		"",
		row("Outcome", outcome),
		row("Mode", s.Mode),
		row("Trigger", s.Trigger),
		row("Turns", fmt.Sprintf("%d", s.Turns)),
		row("Mood", s.Mood),
		row("Actions", actions),
		row("Visitors", fmt.Sprintf("%d read", len(s.VisitorsRead))),
		row("Self-prompt", fmt.Sprintf("%t", s.HasSelfPrompt)),
		row("Tokens", fmt.Sprintf("%d", s.Usage.TotalTokens)),
	}
	if len(s.FilesWritten) > 0 {
		lines = append(lines, row("Files", strings.Join(s.FilesWritten, ", ")))
	}
	if s.Summary != "" {
		lines = append(lines, "", s.Summary)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// entriesMarkdown renders entries as one markdown document.
func entriesMarkdown(section types.Section, entries []types.Entry) string {
	var sb strings.Builder
	name := string(section)
	fmt.Fprintf(&sb, "# %s%s\n\n", strings.ToUpper(name[:1]), name[1:])
	if len(entries) == 0 {
		sb.WriteString("_Nothing here yet._\n")
		return sb.String()
	}
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.Author
		}
		if title == "" {
			title = e.ID
		}
		fmt.Fprintf(&sb, "## %s\n\n", title)
		meta := []string{e.CreatedAt.Format("2006-01-02 15:04"), "`" + e.ID + "`"}
		if e.Mood != "" {
			meta = append(meta, "mood: "+e.Mood)
		}
		if e.Status != types.StatusNone {
			meta = append(meta, "status: "+string(e.Status))
		}
		fmt.Fprintf(&sb, "_%s_\n\n%s\n\n", strings.Join(meta, " · "), e.Content)
	}
	return sb.String()
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
