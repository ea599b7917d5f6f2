// Package actionlist runs ordered action sequences one step at a time.
//
// An ActionList is cooperative: Execute never blocks. When an action asks to
// be polled later, the list records the game time at which it wants to
// resume and returns; the owner calls Tick once per frame to continue it.
package actionlist

import (
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/rs/zerolog"
)

// DefaultMaxStepsPerTick bounds how many instant actions one list runs per tick.
const DefaultMaxStepsPerTick = 1000

// Kind classifies whether a running list blocks gameplay.
type Kind int

const (
	// Blocking lists force the Cutscene mode while they run.
	Blocking Kind = iota
	// Background lists run alongside normal gameplay.
	Background
)

func (k Kind) String() string {
	if k == Background {
		return "background"
	}
	return "blocking"
}

// Registry tracks running lists. Register is called when a list starts,
// Deregister when it ends normally, and Forget when it is killed.
type Registry interface {
	Register(l *ActionList)
	Deregister(l *ActionList)
	Forget(l *ActionList)
}

// Options configures a list.
type Options struct {
	Kind Kind

	// Conversation is started when the list ends, with no Normal frame in between.
	Conversation action.Conversation

	// AutosaveAfter requests an autosave once the list ends.
	AutosaveAfter bool

	// RunWhilePaused keeps the list ticking while the game is paused.
	RunWhilePaused bool

	// MaxStepsPerTick defaults to DefaultMaxStepsPerTick.
	MaxStepsPerTick int
}

// ActionList owns an ordered set of actions and the cursor walking them.
type ActionList struct {
	name     string
	actions  []action.Action
	opts     Options
	env      *action.Env
	registry Registry
	logger   zerolog.Logger

	cursor    int // next index, -1 when idle, len(actions) when about to end
	current   int // index of the action being polled, -1 when none
	resumeAt  time.Time
	positions map[int]int
	gen       uint64
	paused    bool
	runs      int
}

// New creates an idle list.
func New(name string, actions []action.Action, env *action.Env, registry Registry, opts Options) *ActionList {
	if opts.MaxStepsPerTick <= 0 {
		opts.MaxStepsPerTick = DefaultMaxStepsPerTick
	}
	if env == nil {
		env = &action.Env{Logger: logging.Component("action")}
	}
	return &ActionList{
		name:     name,
		actions:  actions,
		opts:     opts,
		env:      env,
		registry: registry,
		logger:   logging.Component("actionlist").With().Str("sequence", name).Logger(),
		cursor:   -1,
		current:  -1,
	}
}

// Name returns the list name.
func (l *ActionList) Name() string { return l.name }

// Kind returns the blocking classification.
func (l *ActionList) Kind() Kind { return l.opts.Kind }

// IsBlocking reports whether the list blocks gameplay while running.
func (l *ActionList) IsBlocking() bool { return l.opts.Kind == Blocking }

// Conversation returns the linked dialogue-choice object, if any.
func (l *ActionList) Conversation() action.Conversation { return l.opts.Conversation }

// AutosaveAfter reports whether an autosave follows a normal end.
func (l *ActionList) AutosaveAfter() bool { return l.opts.AutosaveAfter }

// RunWhilePaused reports whether the list ignores the Paused mode.
func (l *ActionList) RunWhilePaused() bool { return l.opts.RunWhilePaused }

// Actions returns the actions in order.
func (l *ActionList) Actions() []action.Action {
	out := make([]action.Action, len(l.actions))
	copy(out, l.actions)
	return out
}

// Len returns the number of actions.
func (l *ActionList) Len() int { return len(l.actions) }

// Cursor returns the next index, or -1 when idle.
func (l *ActionList) Cursor() int { return l.cursor }

// Current returns the index of the action waiting to be polled, or -1.
func (l *ActionList) Current() int { return l.current }

// ResumeAt is the game time of the next poll.
func (l *ActionList) ResumeAt() time.Time { return l.resumeAt }

// Runs counts how many times the list has been started.
func (l *ActionList) Runs() int { return l.runs }

// IsRunning reports whether the list is between start and end.
func (l *ActionList) IsRunning() bool { return l.cursor != -1 }

// IsPaused reports whether Pause was called on the running list.
func (l *ActionList) IsPaused() bool { return l.paused }

// Load replaces the name, actions and options of the list. A running list is
// killed first.
func (l *ActionList) Load(name string, actions []action.Action, opts Options) {
	if l.IsRunning() {
		l.Kill()
	}
	if opts.MaxStepsPerTick <= 0 {
		opts.MaxStepsPerTick = DefaultMaxStepsPerTick
	}
	l.name = name
	l.actions = actions
	l.opts = opts
	l.logger = logging.Component("actionlist").With().Str("sequence", name).Logger()
}

// Interact starts the list at start. Calling it on a running list restarts
// execution from start.
func (l *ActionList) Interact(start int) {
	if l.IsRunning() {
		l.logger.Debug().Int("from", l.cursor).Int("start", start).Msg("restarting running sequence")
		l.releaseCurrent()
	}

	l.gen++
	l.runs++
	l.positions = action.Positions(l.actions)
	l.paused = false
	l.resumeAt = time.Time{}
	l.current = -1
	l.cursor = start
	if l.cursor < 0 {
		l.cursor = len(l.actions)
	}

	l.logger.Debug().Int("start", start).Str("kind", l.opts.Kind.String()).Msg("sequence started")

	if l.registry == nil {
		l.logger.Warn().Msg("no registry available, sequence runs unregistered")
	} else {
		l.registry.Register(l)
	}

	l.advance(start, l.env.Now())
}

// Tick resumes the list if its pending action is due.
func (l *ActionList) Tick(now time.Time) {
	if !l.IsRunning() || l.paused {
		return
	}
	if now.Before(l.resumeAt) {
		return
	}
	if l.current >= 0 {
		l.poll(now)
		return
	}
	l.advance(l.cursor, now)
}

// Pause stops a running list from advancing until Resume.
func (l *ActionList) Pause() {
	if l.IsRunning() {
		l.paused = true
	}
}

// Resume lets a paused list advance again.
func (l *ActionList) Resume() {
	l.paused = false
}

// Kill stops the list immediately. The in-flight action is abandoned and
// nothing is resolved; the list is forgotten by the registry.
func (l *ActionList) Kill() {
	wasRunning := l.IsRunning()
	l.gen++
	l.releaseCurrent()
	l.cursor = -1
	l.current = -1
	l.resumeAt = time.Time{}
	l.paused = false

	if !wasRunning {
		return
	}
	l.logger.Debug().Msg("sequence killed")
	if l.registry != nil {
		l.registry.Forget(l)
	}
}

func (l *ActionList) releaseCurrent() {
	if l.current >= 0 && l.current < len(l.actions) && l.actions[l.current] != nil {
		l.actions[l.current].Attrs().SetRunning(false)
	}
}

// advance runs actions from i until one waits, the list ends, or the
// per-tick step budget is spent.
func (l *ActionList) advance(i int, now time.Time) {
	gen := l.gen
	for steps := 0; ; steps++ {
		if l.gen != gen {
			return
		}
		if i < 0 || i >= len(l.actions) {
			l.finish()
			return
		}
		if steps >= l.opts.MaxStepsPerTick {
			l.logger.Warn().Int("index", i).Int("steps", steps).Msg("step budget spent, yielding until next tick")
			l.cursor = i
			l.current = -1
			l.resumeAt = now
			return
		}

		a := l.actions[i]
		if a == nil || !a.Attrs().Enabled {
			i++
			continue
		}

		l.cursor = i + 1
		l.current = i
		poll := a.Execute(l.env)
		if l.gen != gen {
			return
		}
		if !poll.IsDone() {
			l.wait(a, poll, now)
			return
		}

		next, ok := l.complete(i, gen)
		if !ok {
			return
		}
		i = next
	}
}

func (l *ActionList) poll(now time.Time) {
	gen := l.gen
	i := l.current
	a := l.actions[i]

	poll := a.Execute(l.env)
	if l.gen != gen {
		return
	}
	if !poll.IsDone() {
		l.wait(a, poll, now)
		return
	}

	next, ok := l.complete(i, gen)
	if !ok {
		return
	}
	l.advance(next, now)
}

func (l *ActionList) wait(a action.Action, poll action.Poll, now time.Time) {
	attrs := a.Attrs()
	attrs.SetRunning(true)
	delay := poll.After()
	if attrs.PollInterval > delay {
		delay = attrs.PollInterval
	}
	l.resumeAt = now.Add(delay)
}

// complete resolves the finished action at i and returns the index to
// continue from. Termination is reported as len(actions).
func (l *ActionList) complete(i int, gen uint64) (int, bool) {
	a := l.actions[i]
	a.Attrs().SetRunning(false)
	l.current = -1

	next := a.Resolve(l.env, action.Location{
		Index:     i,
		Len:       len(l.actions),
		Positions: l.positions,
	})
	if l.gen != gen {
		return 0, false
	}

	if next.IsStop() {
		l.logger.Debug().Int("index", i).Msg("stop requested")
		l.cursor = len(l.actions)
		return l.cursor, true
	}
	if idx, ok := next.Jump(); ok {
		l.logger.Debug().Int("index", i).Int("target", idx).Msg("skipping")
		l.cursor = idx
		return idx, true
	}
	return l.cursor, true
}

func (l *ActionList) finish() {
	l.cursor = -1
	l.current = -1
	l.resumeAt = time.Time{}
	l.paused = false

	l.logger.Debug().Msg("sequence ended")
	if l.registry == nil {
		l.logger.Warn().Msg("no registry available, end of sequence not reported")
		return
	}
	l.registry.Deregister(l)
}
