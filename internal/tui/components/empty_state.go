package components

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/cutscene/internal/tui/styles"
)

// EmptyState is shown in place of a panel that has nothing to display.
type EmptyState struct {
	Title       string
	Subtitle    string
	Suggestions []Suggestion
}

// Suggestion is a command the user can run next.
type Suggestion struct {
	Command     string
	Description string
}

// Render renders the empty state with the given styles.
func (e EmptyState) Render(styleSet styles.Styles) string {
	lines := []string{styleSet.Muted.Render(e.Title)}
	if e.Subtitle != "" {
		lines = append(lines, styleSet.Muted.Render(e.Subtitle))
	}
	for _, s := range e.Suggestions {
		line := "  " + styleSet.Accent.Render(s.Command)
		if s.Description != "" {
			line += styleSet.Muted.Render(fmt.Sprintf("  # %s", s.Description))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// NoActiveSequences is shown when the manager has nothing registered.
func NoActiveSequences() EmptyState {
	return EmptyState{
		Title:    "No sequences running",
		Subtitle: "Blocking sequences put the game in cutscene mode while they run.",
	}
}

// NoTranscript is shown before any line has been spoken.
func NoTranscript() EmptyState {
	return EmptyState{
		Title: "Nothing said yet",
		Suggestions: []Suggestion{
			{Command: "cutscene list", Description: "see which sequences can be played"},
		},
	}
}
