package styles

import "github.com/charmbracelet/lipgloss"

// Styles contains lipgloss styles derived from theme tokens.
type Styles struct {
	Theme   Theme
	Title   lipgloss.Style
	Text    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
	Panel   lipgloss.Style
	Focus   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Speaker lipgloss.Style

	// One style per game mode.
	ModeNormal   lipgloss.Style
	ModeCutscene lipgloss.Style
	ModeDialog   lipgloss.Style
	ModePaused   lipgloss.Style
}

// DefaultStyles builds styles from the default theme.
func DefaultStyles() Styles {
	return BuildStyles(DefaultTheme)
}

// BuildStyles converts theme tokens into lipgloss styles.
func BuildStyles(theme Theme) Styles {
	tokens := theme.Tokens
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}

	return Styles{
		Theme:   theme,
		Title:   fg(tokens.Text).Bold(true),
		Text:    fg(tokens.Text),
		Muted:   fg(tokens.TextMuted),
		Accent:  fg(tokens.Accent),
		Panel:   fg(tokens.Text).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(tokens.Border)),
		Focus:   fg(tokens.Focus).Bold(true),
		Success: fg(tokens.Success),
		Warning: fg(tokens.Warning),
		Error:   fg(tokens.Error),
		Info:    fg(tokens.Info),
		Speaker: fg(tokens.Speaker).Bold(true),

		ModeNormal:   fg(tokens.Success),
		ModeCutscene: fg(tokens.Accent).Bold(true),
		ModeDialog:   fg(tokens.Info).Bold(true),
		ModePaused:   fg(tokens.Warning),
	}
}
