package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

const defaultMood = "neutral"

// EntrySaver is the store surface save_thought and save_dream use.
type EntrySaver interface {
	SaveEntry(e types.Entry) (types.Entry, error)
}

func saveThought(st EntrySaver) ExecuteFunc {
	return func(_ context.Context, args Args) (string, error) {
		a := args.(SaveThoughtArgs)
		saved, err := st.SaveEntry(types.Entry{
			Section: types.SectionThoughts,
			Title:   strings.TrimSpace(a.Title),
			Content: a.Content,
			Mood:    moodOrDefault(a.Mood),
		})
		if err != nil {
			return "", fmt.Errorf("saving thought: %w", err)
		}
		return fmt.Sprintf("Thought saved (id: %s)", saved.ID), nil
	}
}

func saveDream(st EntrySaver) ExecuteFunc {
	return func(_ context.Context, args Args) (string, error) {
		a := args.(SaveDreamArgs)
		saved, err := st.SaveEntry(types.Entry{
			Section:    types.SectionDreams,
			Title:      strings.TrimSpace(a.Title),
			Content:    a.Content,
			Mood:       moodOrDefault(a.Mood),
			InspiredBy: a.InspiredBy,
		})
		if err != nil {
			return "", fmt.Errorf("saving dream: %w", err)
		}
		return fmt.Sprintf("Dream saved (id: %s)", saved.ID), nil
	}
}

func moodOrDefault(mood string) string {
	if m := strings.TrimSpace(mood); m != "" {
		return m
	}
	return defaultMood
}
