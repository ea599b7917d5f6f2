package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/opencode-ai/cutscene/internal/tui/styles"
)

const defaultMaxLines = 500

// Transcript is a scrollable log of spoken lines and menu output. It
// follows the newest line until the user scrolls up.
type Transcript struct {
	Lines        []string
	ScrollOffset int
	Height       int
	Width        int
	MaxLines     int
	follow       bool
}

// NewTranscript creates an empty transcript that follows new output.
func NewTranscript() *Transcript {
	return &Transcript{Height: 12, Width: 60, MaxLines: defaultMaxLines, follow: true}
}

// SetLines replaces the content, keeping only the newest MaxLines.
func (t *Transcript) SetLines(lines []string) {
	if t.MaxLines > 0 && len(lines) > t.MaxLines {
		drop := len(lines) - t.MaxLines
		lines = lines[drop:]
		t.ScrollOffset -= drop
	}
	t.Lines = lines
	if t.follow {
		t.ScrollToBottom()
		return
	}
	t.clampScroll()
}

// ScrollUp scrolls up by n lines and stops following.
func (t *Transcript) ScrollUp(n int) {
	t.ScrollOffset -= n
	t.follow = false
	t.clampScroll()
}

// ScrollDown scrolls down by n lines. Reaching the end resumes following.
func (t *Transcript) ScrollDown(n int) {
	t.ScrollOffset += n
	t.clampScroll()
	t.follow = t.ScrollOffset == t.maxOffset()
}

// ScrollToBottom jumps to the newest line and resumes following.
func (t *Transcript) ScrollToBottom() {
	t.ScrollOffset = t.maxOffset()
	t.follow = true
}

// Following reports whether new lines scroll into view.
func (t *Transcript) Following() bool { return t.follow }

func (t *Transcript) visibleLines() int {
	if t.Height <= 1 {
		return 1
	}
	return t.Height - 1
}

func (t *Transcript) maxOffset() int {
	limit := len(t.Lines) - t.visibleLines()
	if limit < 0 {
		return 0
	}
	return limit
}

func (t *Transcript) clampScroll() {
	if t.ScrollOffset > t.maxOffset() {
		t.ScrollOffset = t.maxOffset()
	}
	if t.ScrollOffset < 0 {
		t.ScrollOffset = 0
	}
}

// Render renders the visible window and a position footer.
func (t *Transcript) Render(styleSet styles.Styles) string {
	if len(t.Lines) == 0 {
		return NoTranscript().Render(styleSet)
	}

	end := t.ScrollOffset + t.visibleLines()
	if end > len(t.Lines) {
		end = len(t.Lines)
	}

	rendered := make([]string, 0, end-t.ScrollOffset+1)
	for _, line := range t.Lines[t.ScrollOffset:end] {
		styled := highlightLine(styleSet, line)
		if t.Width > 3 && lipgloss.Width(styled) > t.Width {
			styled = highlightLine(styleSet, truncateString(line, t.Width-3)+"...")
		}
		rendered = append(rendered, styled)
	}

	footer := fmt.Sprintf("%d-%d of %d", t.ScrollOffset+1, end, len(t.Lines))
	if !t.follow {
		footer += " (scrolled)"
	}
	rendered = append(rendered, styleSet.Muted.Render(footer))
	return strings.Join(rendered, "\n")
}

// highlightLine colours "Speaker: text" lines and chosen options.
func highlightLine(styleSet styles.Styles, line string) string {
	if strings.HasPrefix(line, "> ") {
		return styleSet.Focus.Render(line)
	}
	if speaker, text, ok := strings.Cut(line, ": "); ok && speaker != "" && !strings.Contains(speaker, " ") {
		return styleSet.Speaker.Render(speaker+":") + " " + styleSet.Text.Render(text)
	}
	return styleSet.Text.Render(line)
}

func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
