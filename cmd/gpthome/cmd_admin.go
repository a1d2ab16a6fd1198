package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/curtiv3/gpthome-refurbished/internal/safety"
	"github.com/curtiv3/gpthome-refurbished/internal/store"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// classifyCmd runs the visitor safety filter on a text
var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Check a text against the visitor safety filter",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

// entriesCmd prints recent entries of a section
var entriesCmd = &cobra.Command{
	Use:   "entries [thoughts|dreams|visitor|echoes]",
	Short: "Show recent entries of a section",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntries,
}

// newsCmd groups operator news commands
var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "List news for the resident",
	RunE:  runNewsList,
}

var newsAddCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Leave a news item for the next wake",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNewsAdd,
}

// unblockCmd lifts a visitor ban
var unblockCmd = &cobra.Command{
	Use:   "unblock [fingerprint]",
	Short: "Lift a visitor fingerprint ban",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnblock,
}

// statusCmd shows memory and counts
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the resident's memory and entry counts",
	RunE:  runStatus,
}

var (
	entriesLimit int
	entriesRaw   bool
)

func init() {
	entriesCmd.Flags().IntVarP(&entriesLimit, "limit", "n", 10, "Number of entries")
	entriesCmd.Flags().BoolVar(&entriesRaw, "raw", false, "Print markdown without terminal styling")
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runClassify(cmd *cobra.Command, args []string) error {
	v := safety.Classify(joinArgs(args))
	out := cmd.OutOrStdout()
	if v.Safe {
		fmt.Fprintln(out, okStyle.Render("safe"))
		return nil
	}
	line := warnStyle.Render("rejected") + " reason=" + string(v.Reason)
	if safety.ShouldAutoBlock(v.Reason) {
		line += " (auto-block)"
	}
	fmt.Fprintln(out, line)
	return nil
}

func runEntries(cmd *cobra.Command, args []string) error {
	section, err := types.ParseSection(args[0])
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ListEntries(section, entriesLimit, 0)
	if err != nil {
		return err
	}
	md := entriesMarkdown(section, entries)
	if !entriesRaw {
		md = renderMarkdown(md, 80)
	}
	fmt.Fprint(cmd.OutOrStdout(), md)
	return nil
}

func runNewsAdd(cmd *cobra.Command, args []string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	item, err := st.AddNews(joinArgs(args))
	if err != nil {
		return err
	}
	if err := st.LogActivity("news_posted", item.Content); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "News #%d saved\n", item.ID)
	return nil
}

func runNewsList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	news, err := st.ListNews(20)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(news) == 0 {
		fmt.Fprintln(out, "No news.")
		return nil
	}
	for _, n := range news {
		state := "unread"
		if n.Read {
			state = "read"
		}
		fmt.Fprintf(out, "#%d [%s] %s  %s\n", n.ID, state, n.CreatedAt.Format("2006-01-02 15:04"), n.Content)
	}
	return nil
}

func runUnblock(cmd *cobra.Command, args []string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	fp := strings.TrimSpace(args[0])
	if err := st.Unblock(fp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("fingerprint %s is not blocked", fp)
		}
		return err
	}
	if err := st.LogActivity("visitor_unbanned", fp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Unblocked %s\n", fp)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	mem, err := st.ReadMemory()
	if err != nil {
		return err
	}
	lines := []string{
		titleStyle.Render("Resident"),
		"",
		row("Last wake", mem.LastWakeTime.Format("2006-01-02 15:04 MST")),
		row("Mood", mem.Mood),
		row("Actions", strings.Join(mem.ActionsTaken, ", ")),
	}
	for _, sec := range types.Sections {
		n, err := st.CountEntries(sec)
		if err != nil {
			return err
		}
		lines = append(lines, row(string(sec), fmt.Sprintf("%d", n)))
	}
	if data, err := os.ReadFile(cfg.SelfPromptPath()); err == nil && strings.TrimSpace(string(data)) != "" {
		lines = append(lines, "", "Self-prompt: "+strings.TrimSpace(string(data)))
	}
	fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(strings.Join(lines, "\n")))
	return nil
}
