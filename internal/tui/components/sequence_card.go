package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/cutscene/internal/actionlist"
	"github.com/opencode-ai/cutscene/internal/manager"
	"github.com/opencode-ai/cutscene/internal/tui/styles"
)

const progressWidth = 16

// RenderSequenceCard renders one running sequence. now is the game time
// used to show how long the current action still waits.
func RenderSequenceCard(styleSet styles.Styles, status manager.Status, now time.Time) string {
	name := status.Name
	if status.Asset {
		name += styleSet.Muted.Render(" (asset)")
	}
	header := styleSet.Accent.Render(name)

	kind := styleSet.Text.Render(status.Kind.String())
	if status.Kind == actionlist.Blocking {
		kind = styleSet.ModeCutscene.Render(status.Kind.String())
	}
	if status.Paused {
		kind += " " + styleSet.ModePaused.Render("paused")
	}

	position := status.Current
	if position < 0 {
		position = status.Cursor
	}
	progress := fmt.Sprintf("%s %d/%d", progressBar(position, status.Len), position+1, status.Len)

	wait := "running"
	if !status.ResumeAt.IsZero() {
		if remaining := status.ResumeAt.Sub(now); remaining > 0 {
			wait = "waits " + remaining.Round(10*time.Millisecond).String()
		}
	}

	content := strings.Join([]string{
		header,
		fmt.Sprintf("%s  %s", kind, styleSet.Text.Render(progress)),
		styleSet.Muted.Render(wait),
	}, "\n")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(styleSet.Theme.Tokens.Border)).
		Padding(0, 1).
		Render(content)
}

func progressBar(position, total int) string {
	if total <= 0 {
		return strings.Repeat(".", progressWidth)
	}
	filled := (position + 1) * progressWidth / total
	if filled < 0 {
		filled = 0
	}
	if filled > progressWidth {
		filled = progressWidth
	}
	return strings.Repeat("=", filled) + strings.Repeat(".", progressWidth-filled)
}
