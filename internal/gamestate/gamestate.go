// Package gamestate owns the global interaction mode.
package gamestate

import (
	"sync"

	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/rs/zerolog"
)

// Mode is the global interaction mode.
type Mode int

const (
	// Normal gives the player free control.
	Normal Mode = iota
	// Cutscene suppresses input while sequences drive the game.
	Cutscene
	// DialogOptions means a dialogue-choice menu is open.
	DialogOptions
	// Paused freezes gameplay.
	Paused
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Cutscene:
		return "cutscene"
	case DialogOptions:
		return "dialog_options"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Change describes a mode transition.
type Change struct {
	Previous Mode
	Current  Mode
}

// Controller holds the current mode. All transitions go through its methods.
type Controller struct {
	mu          sync.RWMutex
	mode        Mode
	restore     Mode // mode to return to on Unpause
	subscribers []func(Change)
	logger      zerolog.Logger
}

// NewController returns a controller in Normal mode.
func NewController() *Controller {
	return &Controller{
		mode:    Normal,
		restore: Normal,
		logger:  logging.Component("gamestate"),
	}
}

// Current returns the current mode.
func (c *Controller) Current() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Subscribe registers fn for every mode change.
func (c *Controller) Subscribe(fn func(Change)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

// EnterCutscene switches to Cutscene. While paused, Cutscene becomes the
// mode restored by Unpause.
func (c *Controller) EnterCutscene() {
	c.mu.Lock()
	if c.mode == Paused {
		c.restore = Cutscene
		c.mu.Unlock()
		return
	}
	change, changed := c.setLocked(Cutscene)
	c.mu.Unlock()
	c.notify(change, changed)
}

// ExitCutscene returns to Normal if the game is in Cutscene. Other modes are left alone.
func (c *Controller) ExitCutscene() {
	c.mu.Lock()
	if c.mode == Paused {
		if c.restore == Cutscene {
			c.restore = Normal
		}
		c.mu.Unlock()
		return
	}
	if c.mode != Cutscene {
		c.mu.Unlock()
		return
	}
	change, changed := c.setLocked(Normal)
	c.mu.Unlock()
	c.notify(change, changed)
}

// EnterDialogOptions opens the dialogue-choice mode.
func (c *Controller) EnterDialogOptions() {
	c.mu.Lock()
	if c.mode == Paused {
		c.restore = DialogOptions
		c.mu.Unlock()
		return
	}
	change, changed := c.setLocked(DialogOptions)
	c.mu.Unlock()
	c.notify(change, changed)
}

// ExitDialogOptions returns to Normal if a dialogue-choice menu is open.
func (c *Controller) ExitDialogOptions() {
	c.mu.Lock()
	if c.mode == Paused {
		if c.restore == DialogOptions {
			c.restore = Normal
		}
		c.mu.Unlock()
		return
	}
	if c.mode != DialogOptions {
		c.mu.Unlock()
		return
	}
	change, changed := c.setLocked(Normal)
	c.mu.Unlock()
	c.notify(change, changed)
}

// Pause freezes the game, remembering the mode to restore.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.mode == Paused {
		c.mu.Unlock()
		return
	}
	c.restore = c.mode
	change, changed := c.setLocked(Paused)
	c.mu.Unlock()
	c.notify(change, changed)
}

// Unpause restores the mode that was active before Pause.
func (c *Controller) Unpause() {
	c.mu.Lock()
	if c.mode != Paused {
		c.mu.Unlock()
		return
	}
	change, changed := c.setLocked(c.restore)
	c.restore = Normal
	c.mu.Unlock()
	c.notify(change, changed)
}

func (c *Controller) setLocked(next Mode) (Change, bool) {
	prev := c.mode
	if prev == next {
		return Change{}, false
	}
	c.mode = next
	return Change{Previous: prev, Current: next}, true
}

func (c *Controller) notify(change Change, changed bool) {
	if !changed {
		return
	}
	c.logger.Debug().
		Str("from", change.Previous.String()).
		Str("to", change.Current.String()).
		Msg("mode changed")

	c.mu.RLock()
	subs := make([]func(Change), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
}
