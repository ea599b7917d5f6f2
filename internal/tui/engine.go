package tui

import (
	"context"
	"fmt"

	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/scene"
	"github.com/opencode-ai/cutscene/internal/scheduler"
	"github.com/opencode-ai/cutscene/internal/tui/components"
)

// SceneEngine adapts a scene driven by a running scheduler. Every call is
// executed on the scheduler goroutine.
type SceneEngine struct {
	Scene     *scene.Scene
	Scheduler *scheduler.Scheduler
}

// Snapshot implements Engine.
func (e SceneEngine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := e.Scheduler.Call(ctx, func() {
		snap.Mode = e.Scene.Mode().Current()
		snap.Sequences = e.Scene.Manager().Active()
		snap.Idle = e.Scene.Idle()
		if c := e.Scene.OpenConversation(); c != nil {
			menu := &components.ChoiceMenu{Conversation: c.Name(), Prompt: c.Prompt()}
			for _, opt := range c.Options() {
				menu.Options = append(menu.Options, opt.Text)
			}
			snap.Menu = menu
		}
	})
	stats := e.Scheduler.Stats()
	snap.GameTime = stats.GameTime
	snap.Ticks = stats.Ticks
	return snap, err
}

// Choose implements Engine.
func (e SceneEngine) Choose(ctx context.Context, option int) error {
	var chooseErr error
	err := e.Scheduler.Call(ctx, func() {
		c := e.Scene.OpenConversation()
		if c == nil {
			chooseErr = fmt.Errorf("no conversation is open")
			return
		}
		chooseErr = c.Choose(option)
	})
	if err != nil {
		return err
	}
	return chooseErr
}

// TogglePause implements Engine.
func (e SceneEngine) TogglePause(ctx context.Context) error {
	return e.Scheduler.Call(ctx, func() {
		mode := e.Scene.Mode()
		if mode.Current() == gamestate.Paused {
			mode.Unpause()
			return
		}
		mode.Pause()
	})
}

// Reset implements Engine.
func (e SceneEngine) Reset(ctx context.Context) error {
	return e.Scheduler.Call(ctx, e.Scene.Reset)
}
