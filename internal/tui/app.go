// Package tui implements the live terminal monitor for a running scene.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencode-ai/cutscene/internal/tui/components"
	"github.com/opencode-ai/cutscene/internal/tui/styles"
)

// Config configures the monitor.
type Config struct {
	Engine Engine

	// Lines is the engine output shown in the transcript panel.
	Lines *LineBuffer

	Title string
	Theme string

	// RefreshInterval defaults to 100ms.
	RefreshInterval time.Duration
}

// Run launches the monitor and blocks until the user quits.
func Run(cfg Config) error {
	if cfg.Engine == nil {
		return fmt.Errorf("tui: engine is required")
	}
	program := tea.NewProgram(newModel(cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

type model struct {
	cfg        Config
	styles     styles.Styles
	transcript *components.Transcript
	width      int
	height     int

	snap        Snapshot
	lastUpdated time.Time
	lineVersion int
	status      string
	err         error
}

const (
	minWidth       = 50
	minHeight      = 14
	defaultRefresh = 100 * time.Millisecond
	callTimeout    = 2 * time.Second
)

func newModel(cfg Config) model {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefresh
	}
	if cfg.Title == "" {
		cfg.Title = "cutscene"
	}
	theme, _ := styles.ThemeByName(cfg.Theme)
	return model{
		cfg:         cfg,
		styles:      styles.BuildStyles(theme),
		transcript:  components.NewTranscript(),
		lineVersion: -1,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(snapshotCmd(m.cfg.Engine, callTimeout), tickCmd(m.cfg.RefreshInterval))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = msg.Width - 4
		m.transcript.Height = max(msg.Height/2, 4)
	case tickMsg:
		m.syncTranscript()
		return m, tea.Batch(snapshotCmd(m.cfg.Engine, callTimeout), tickCmd(m.cfg.RefreshInterval))
	case SnapshotMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.snap = msg.Snapshot
			m.lastUpdated = time.Now()
		}
	case ActionResultMsg:
		if msg.Err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.Action, msg.Err)
		} else {
			m.status = msg.Action
		}
		m.syncTranscript()
		return m, snapshotCmd(m.cfg.Engine, callTimeout)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	engine := m.cfg.Engine
	key := msg.String()
	switch key {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case " ", "p":
		return m, engineCmd("pause toggled", callTimeout, engine.TogglePause)
	case "k":
		return m, engineCmd("all sequences killed", callTimeout, engine.Reset)
	case "up":
		m.transcript.ScrollUp(1)
	case "down":
		m.transcript.ScrollDown(1)
	case "pgup":
		m.transcript.ScrollUp(m.transcript.Height)
	case "pgdown":
		m.transcript.ScrollDown(m.transcript.Height)
	case "end", "G":
		m.transcript.ScrollToBottom()
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' && m.snap.Menu != nil {
			option := int(key[0] - '1')
			label := fmt.Sprintf("chose option %d", option+1)
			return m, engineCmd(label, callTimeout, func(ctx context.Context) error {
				return engine.Choose(ctx, option)
			})
		}
	}
	return m, nil
}

func (m *model) syncTranscript() {
	if m.cfg.Lines == nil {
		return
	}
	lines, version := m.cfg.Lines.Lines()
	if version == m.lineVersion {
		return
	}
	m.lineVersion = version
	m.transcript.SetLines(lines)
}

func (m model) View() string {
	if m.width > 0 && m.height > 0 && (m.width < minWidth || m.height < minHeight) {
		return strings.Join([]string{
			m.styles.Warning.Render(fmt.Sprintf("Terminal too small (%dx%d).", m.width, m.height)),
			m.styles.Muted.Render(fmt.Sprintf("Resize to at least %dx%d.", minWidth, minHeight)),
			m.styles.Muted.Render("Press q to quit."),
		}, "\n") + "\n"
	}

	header := fmt.Sprintf("%s  %s", m.styles.Title.Render(m.cfg.Title), components.RenderModeBadge(m.styles, m.snap.Mode))
	if !m.snap.GameTime.IsZero() {
		header += m.styles.Muted.Render(fmt.Sprintf("  game %s  frame %d", m.snap.GameTime.Format("15:04:05.00"), m.snap.Ticks))
	}

	lines := []string{header, ""}

	if len(m.snap.Sequences) == 0 {
		lines = append(lines, components.NoActiveSequences().Render(m.styles))
	} else {
		cards := make([]string, 0, len(m.snap.Sequences))
		for _, st := range m.snap.Sequences {
			cards = append(cards, components.RenderSequenceCard(m.styles, st, m.snap.GameTime))
		}
		lines = append(lines, strings.Join(cards, "\n"))
	}

	if m.snap.Menu != nil {
		lines = append(lines, "", m.snap.Menu.Render(m.styles))
	}

	lines = append(lines, "", m.styles.Accent.Render("Transcript"), m.transcript.Render(m.styles))

	if m.err != nil {
		lines = append(lines, "", m.styles.Error.Render(m.err.Error()))
	} else if m.status != "" {
		lines = append(lines, "", m.styles.Info.Render(m.status))
	}

	lines = append(lines, "", components.RenderKeyBar(m.styles, []components.KeyHint{
		{Key: "1-9", Label: "choose", Enabled: m.snap.Menu != nil},
		{Key: "space", Label: "pause", Enabled: true},
		{Key: "k", Label: "kill all", Enabled: len(m.snap.Sequences) > 0},
		{Key: "up/down", Label: "scroll", Enabled: true},
		{Key: "q", Label: "quit", Enabled: true},
	}))

	return strings.Join(lines, "\n") + "\n"
}
