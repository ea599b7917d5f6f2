package components

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/cutscene/internal/tui/styles"
)

// KeyHint is a keyboard shortcut shown in the footer.
type KeyHint struct {
	Key     string
	Label   string
	Enabled bool
}

// RenderKeyBar renders enabled hints as "key:label" pairs.
func RenderKeyBar(styleSet styles.Styles, hints []KeyHint) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		if !h.Enabled {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s", styleSet.Focus.Render(h.Key), styleSet.Muted.Render(h.Label)))
	}
	return strings.Join(parts, "  ")
}

// ChoiceMenu is an open dialogue menu.
type ChoiceMenu struct {
	Conversation string
	Prompt       string
	Options      []string
}

// Render lists the options numbered from 1, matching the keys that pick them.
func (c ChoiceMenu) Render(styleSet styles.Styles) string {
	lines := []string{styleSet.ModeDialog.Render(c.Conversation)}
	if c.Prompt != "" {
		lines = append(lines, styleSet.Text.Render(c.Prompt))
	}
	for i, opt := range c.Options {
		lines = append(lines, fmt.Sprintf("  %s %s", styleSet.Focus.Render(fmt.Sprintf("%d.", i+1)), styleSet.Text.Render(opt)))
	}
	return strings.Join(lines, "\n")
}
