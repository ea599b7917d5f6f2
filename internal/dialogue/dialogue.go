// Package dialogue implements dialogue-choice menus that sequences hand off into.
package dialogue

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/opencode-ai/cutscene/internal/sequences"
	"github.com/rs/zerolog"
)

var (
	// ErrNotOpen is returned by Choose when the menu is closed.
	ErrNotOpen = errors.New("conversation is not open")
	// ErrInvalidChoice is returned for an out-of-range option.
	ErrInvalidChoice = errors.New("invalid choice")
)

// Option is one choice and the sequence it starts.
type Option struct {
	Text     string
	Sequence string
}

// Conversation is a dialogue-choice menu.
type Conversation struct {
	name    string
	prompt  string
	options []Option

	mode    *gamestate.Controller
	arbiter action.Arbiter
	starter action.Starter
	out     io.Writer
	logger  zerolog.Logger

	mu     sync.Mutex
	open   bool
	opened int
	onOpen []func(*Conversation)
}

// Setting configures a Conversation.
type Setting func(*Conversation)

// WithArbiter makes closing the menu re-derive Cutscene, so a blocking
// sequence still running underneath keeps the game in Cutscene.
func WithArbiter(a action.Arbiter) Setting {
	return func(c *Conversation) {
		c.arbiter = a
	}
}

// New creates a closed conversation. mode, starter and out may be nil.
func New(name, prompt string, options []Option, mode *gamestate.Controller, starter action.Starter, out io.Writer, settings ...Setting) *Conversation {
	c := &Conversation{
		name:    name,
		prompt:  prompt,
		options: options,
		mode:    mode,
		starter: starter,
		out:     out,
		logger:  logging.Component("dialogue").With().Str("conversation", name).Logger(),
	}
	for _, set := range settings {
		if set != nil {
			set(c)
		}
	}
	return c
}

// FromSpec builds a conversation from its authored form.
func FromSpec(spec *sequences.ConversationSpec, mode *gamestate.Controller, starter action.Starter, out io.Writer, settings ...Setting) *Conversation {
	options := make([]Option, 0, len(spec.Options))
	for _, o := range spec.Options {
		options = append(options, Option{Text: o.Text, Sequence: o.Sequence})
	}
	return New(spec.Name, spec.Prompt, options, mode, starter, out, settings...)
}

// Name returns the conversation name.
func (c *Conversation) Name() string { return c.name }

// Prompt returns the menu prompt.
func (c *Conversation) Prompt() string { return c.prompt }

// Options returns a copy of the choices.
func (c *Conversation) Options() []Option {
	out := make([]Option, len(c.options))
	copy(out, c.options)
	return out
}

// IsOpen reports whether the menu is waiting for a choice.
func (c *Conversation) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Opened counts how many times the menu was opened.
func (c *Conversation) Opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// OnOpen registers fn to run every time the menu opens.
func (c *Conversation) OnOpen(fn func(*Conversation)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onOpen = append(c.onOpen, fn)
	c.mu.Unlock()
}

// Interact opens the menu and switches the game to DialogOptions.
func (c *Conversation) Interact() {
	c.mu.Lock()
	c.open = true
	c.opened++
	hooks := make([]func(*Conversation), len(c.onOpen))
	copy(hooks, c.onOpen)
	c.mu.Unlock()

	if c.mode == nil {
		c.logger.Warn().Msg("mode controller not available, menu opened without dialog mode")
	} else {
		c.mode.EnterDialogOptions()
	}
	c.logger.Debug().Int("options", len(c.options)).Msg("conversation opened")
	c.render()

	for _, fn := range hooks {
		fn(c)
	}
}

// Choose closes the menu and starts the chosen option's sequence.
func (c *Conversation) Choose(i int) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", c.name, ErrNotOpen)
	}
	if i < 0 || i >= len(c.options) {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w: %d", c.name, ErrInvalidChoice, i)
	}
	c.open = false
	opt := c.options[i]
	c.mu.Unlock()

	c.leaveMenu()
	c.logger.Debug().Int("choice", i).Str("sequence", opt.Sequence).Msg("option chosen")
	if c.out != nil {
		fmt.Fprintf(c.out, "> %s\n", opt.Text)
	}

	if opt.Sequence == "" {
		return nil
	}
	if c.starter == nil {
		c.logger.Warn().Str("sequence", opt.Sequence).Msg("no sequence starter available, option sequence not started")
		return nil
	}
	if err := c.starter.StartSequence(opt.Sequence, false); err != nil {
		return fmt.Errorf("start option sequence: %w", err)
	}
	return nil
}

// Close dismisses the menu without choosing.
func (c *Conversation) Close() {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()
	if wasOpen {
		c.leaveMenu()
	}
}

func (c *Conversation) leaveMenu() {
	if c.mode == nil {
		return
	}
	c.mode.ExitDialogOptions()
	if c.arbiter != nil {
		c.arbiter.RecomputeMode()
	}
}

func (c *Conversation) render() {
	if c.out == nil {
		return
	}
	if c.prompt != "" {
		fmt.Fprintln(c.out, c.prompt)
	}
	for i, opt := range c.options {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, opt.Text)
	}
}
