// Package action defines the instruction contract shared by every instruction
// kind: the poll-based Execute step, branch resolution, and the injected
// environment instructions run against.
package action

import (
	"io"
	"time"

	"github.com/opencode-ai/cutscene/internal/clock"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/variables"
	"github.com/rs/zerolog"
)

// Action is one executable step of a sequence.
type Action interface {
	// Attrs exposes the scheduling attributes common to every kind.
	Attrs() *Base

	// Execute performs one tick of work. Repeated calls while the action is
	// running only check whether its effect has finished.
	Execute(env *Env) Poll

	// Resolve is called once after Execute reports Done and decides where
	// the sequence goes next.
	Resolve(env *Env, at Location) Next
}

// Base carries the attributes every instruction kind embeds.
type Base struct {
	// ID is stable within the owning sequence and is what skip targets point at.
	ID int

	// Kind is the registered kind name.
	Kind string

	// Label is a free-form authoring note.
	Label string

	Enabled  bool
	WillWait bool

	// PollInterval is the minimum spacing between Execute calls while running.
	PollInterval time.Duration

	// End is the completion policy used by non-conditional kinds.
	End Outcome

	running bool
}

// NewBase returns an enabled base that continues on completion.
func NewBase(id int, kind string) Base {
	return Base{ID: id, Kind: kind, Enabled: true}
}

// Attrs returns b so embedding types satisfy part of Action.
func (b *Base) Attrs() *Base { return b }

// IsRunning reports whether Execute has started and not yet finished.
func (b *Base) IsRunning() bool { return b.running }

// SetRunning is reserved for the runner that owns the action.
func (b *Base) SetRunning(running bool) { b.running = running }

// Resolve applies the End outcome.
func (b *Base) Resolve(env *Env, at Location) Next {
	return b.End.Resolve(env, at)
}

// Location identifies where an action sits when it is resolved.
type Location struct {
	// Index is the position of the resolving action.
	Index int

	// Len is the length of the sequence.
	Len int

	// Positions maps stable action IDs to their current index.
	Positions map[int]int
}

// Positions builds the ID to index map for actions. Actions with ID 0 are skipped.
func Positions(actions []Action) map[int]int {
	positions := make(map[int]int, len(actions))
	for i, a := range actions {
		if a == nil {
			continue
		}
		id := a.Attrs().ID
		if id == 0 {
			continue
		}
		if _, dup := positions[id]; dup {
			continue
		}
		positions[id] = i
	}
	return positions
}

// Starter starts a named sequence without waiting for it.
type Starter interface {
	StartSequence(name string, asset bool) error
}

// Conversation is a dialogue-choice object a sequence can hand off into.
type Conversation interface {
	Name() string
	Interact()
}

// Arbiter re-derives Cutscene from what is still running. Code that leaves
// Paused or DialogOptions calls it so a running blocking sequence keeps
// the game in Cutscene.
type Arbiter interface {
	RecomputeMode()
}

// Env is the context instructions execute against.
type Env struct {
	Clock   clock.Clock
	Vars    *variables.Store
	Starter Starter
	Mode    *gamestate.Controller
	Arbiter Arbiter

	// Out receives textual effects such as spoken lines.
	Out io.Writer

	Logger zerolog.Logger
}

// Now returns the game time, falling back to the wall clock.
func (e *Env) Now() time.Time {
	if e == nil || e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

func (e *Env) logger() *zerolog.Logger {
	if e == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &e.Logger
}
