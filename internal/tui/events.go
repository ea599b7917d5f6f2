package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/manager"
	"github.com/opencode-ai/cutscene/internal/tui/components"
)

// Snapshot is the engine state shown in one frame of the monitor.
type Snapshot struct {
	Mode      gamestate.Mode
	GameTime  time.Time
	Sequences []manager.Status
	Menu      *components.ChoiceMenu
	Ticks     int64
	Idle      bool
}

// Engine is what the monitor reads and drives.
type Engine interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Choose(ctx context.Context, option int) error
	TogglePause(ctx context.Context) error
	Reset(ctx context.Context) error
}

type tickMsg time.Time

// SnapshotMsg carries a fresh engine snapshot.
type SnapshotMsg struct {
	Snapshot Snapshot
	Err      error
}

// ActionResultMsg reports the outcome of a key-triggered engine call.
type ActionResultMsg struct {
	Action string
	Err    error
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func snapshotCmd(engine Engine, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := engine.Snapshot(ctx)
		return SnapshotMsg{Snapshot: snap, Err: err}
	}
}

func engineCmd(action string, timeout time.Duration, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ActionResultMsg{Action: action, Err: fn(ctx)}
	}
}
