package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/actionlist"
	"github.com/opencode-ai/cutscene/internal/clock"
	"github.com/opencode-ai/cutscene/internal/dialogue"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/stretchr/testify/require"
)

// step finishes after a fixed number of polls. onDone runs just before it
// resolves.
type step struct {
	action.Base
	polls  int
	onDone func()
}

func (s *step) Execute(env *action.Env) action.Poll {
	if s.polls > 0 {
		s.polls--
		return action.Pending(time.Second)
	}
	if s.onDone != nil {
		s.onDone()
	}
	return action.Done()
}

func newStep(id, polls int) *step {
	return &step{Base: action.NewBase(id, "step"), polls: polls}
}

type conversation struct {
	name  string
	calls int
	mode  *gamestate.Controller
	seen  []gamestate.Mode
}

func (c *conversation) Name() string { return c.name }

func (c *conversation) Interact() {
	c.calls++
	if c.mode != nil {
		c.seen = append(c.seen, c.mode.Current())
	}
}

type recordingSaver struct {
	calls int
	err   error
}

func (r *recordingSaver) Autosave(ctx context.Context) error {
	r.calls++
	return r.err
}

type fixture struct {
	clock *clock.Manual
	env   *action.Env
	mode  *gamestate.Controller
	mgr   *Manager
	saver *recordingSaver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	f := &fixture{
		clock: c,
		env:   &action.Env{Clock: c, Logger: logging.Discard()},
		mode:  gamestate.NewController(),
		saver: &recordingSaver{},
	}
	f.env.Mode = f.mode
	f.mgr = New(f.mode, f.env, WithSaver(f.saver))
	return f
}

func (f *fixture) list(name string, opts actionlist.Options, actions ...action.Action) *actionlist.ActionList {
	return actionlist.New(name, actions, f.env, f.mgr, opts)
}

func (f *fixture) advance(d time.Duration) {
	now := f.clock.Advance(d)
	f.mgr.Update(now)
}

func TestBlockingArbitration(t *testing.T) {
	f := newFixture(t)

	bg1 := f.list("bg1", actionlist.Options{Kind: actionlist.Background}, newStep(1, 5))
	bg2 := f.list("bg2", actionlist.Options{Kind: actionlist.Background}, newStep(1, 5))
	cut := f.list("cut", actionlist.Options{Kind: actionlist.Blocking}, newStep(1, 1))

	bg1.Interact(0)
	bg2.Interact(0)
	require.Equal(t, gamestate.Normal, f.mode.Current())
	require.Equal(t, 2, f.mgr.Len())

	cut.Interact(0)
	require.Equal(t, gamestate.Cutscene, f.mode.Current())
	require.True(t, f.mgr.IsBlockingActive())

	f.advance(time.Second)
	require.False(t, cut.IsRunning())
	require.Equal(t, gamestate.Normal, f.mode.Current())
	require.Equal(t, 2, f.mgr.Len())
}

func TestRegisterIgnoresDuplicates(t *testing.T) {
	f := newFixture(t)
	l := f.list("loop", actionlist.Options{Kind: actionlist.Background}, newStep(1, 3))

	l.Interact(0)
	l.Interact(0)
	require.Equal(t, 1, f.mgr.Len())
	require.True(t, f.mgr.IsActive(l))
}

func TestRecomputeLeavesExternalModes(t *testing.T) {
	f := newFixture(t)
	cut := f.list("cut", actionlist.Options{Kind: actionlist.Blocking}, newStep(1, 1))

	f.mode.EnterDialogOptions()
	f.mgr.RecomputeMode()
	require.Equal(t, gamestate.DialogOptions, f.mode.Current())

	f.mode.ExitDialogOptions()
	cut.Interact(0)
	require.Equal(t, gamestate.Cutscene, f.mode.Current())

	f.mode.Pause()
	cut.Kill()
	require.Equal(t, gamestate.Paused, f.mode.Current())

	f.mode.Unpause()
	require.Equal(t, gamestate.Normal, f.mode.Current())
}

func TestPausedListsHoldUnlessFlagged(t *testing.T) {
	f := newFixture(t)
	held := f.list("held", actionlist.Options{Kind: actionlist.Background}, newStep(1, 1))
	menu := f.list("menu", actionlist.Options{Kind: actionlist.Background, RunWhilePaused: true}, newStep(1, 1))

	held.Interact(0)
	menu.Interact(0)
	f.mode.Pause()

	f.advance(time.Second)
	require.True(t, held.IsRunning())
	require.False(t, menu.IsRunning())

	f.mode.Unpause()
	f.advance(0)
	require.False(t, held.IsRunning())
}

func TestConversationHandoff(t *testing.T) {
	f := newFixture(t)
	conv := &conversation{name: "merchant", mode: f.mode}

	var modes []gamestate.Mode
	f.mode.Subscribe(func(c gamestate.Change) { modes = append(modes, c.Current) })

	l := f.list("intro", actionlist.Options{Kind: actionlist.Blocking, Conversation: conv}, newStep(1, 1))
	l.Interact(0)
	require.Equal(t, conv, f.mgr.Pending())

	f.advance(time.Second)

	require.Equal(t, 1, conv.calls)
	require.Equal(t, []gamestate.Mode{gamestate.Cutscene}, conv.seen)
	require.Nil(t, f.mgr.Pending())
	require.NotContains(t, modes, gamestate.Normal)
	require.Equal(t, gamestate.Cutscene, f.mode.Current())
}

func TestMenuExitKeepsRunningBlockingList(t *testing.T) {
	f := newFixture(t)
	starter := &countingStarter{}
	menu := dialogue.New("merchant", "What will it be?", []dialogue.Option{
		{Text: "Buy", Sequence: "merchant-buy"},
		{Text: "Leave"},
	}, f.mode, starter, nil, dialogue.WithArbiter(f.mgr))

	long := f.list("ambush", actionlist.Options{Kind: actionlist.Blocking}, newStep(1, 10))
	intro := f.list("intro", actionlist.Options{Kind: actionlist.Blocking, Conversation: menu}, newStep(1, 1))
	long.Interact(0)
	intro.Interact(0)

	f.advance(time.Second)
	require.True(t, menu.IsOpen())
	require.Equal(t, gamestate.DialogOptions, f.mode.Current())
	require.True(t, long.IsRunning())

	require.NoError(t, menu.Choose(0))
	require.Equal(t, []string{"merchant-buy"}, starter.started)
	require.Equal(t, gamestate.Cutscene, f.mode.Current())

	menu.Interact()
	f.mode.Pause()
	menu.Close()
	f.mode.Unpause()
	require.Equal(t, gamestate.Cutscene, f.mode.Current())

	long.Kill()
	require.Equal(t, gamestate.Normal, f.mode.Current())
}

type countingStarter struct {
	started []string
}

func (c *countingStarter) StartSequence(name string, asset bool) error {
	c.started = append(c.started, name)
	return nil
}

func TestKilledListDoesNotHandOff(t *testing.T) {
	f := newFixture(t)
	conv := &conversation{name: "merchant"}
	l := f.list("intro", actionlist.Options{Kind: actionlist.Blocking, Conversation: conv}, newStep(1, 3))

	l.Interact(0)
	l.Kill()

	require.Zero(t, conv.calls)
	require.Nil(t, f.mgr.Pending())
	require.Equal(t, gamestate.Normal, f.mode.Current())
	require.Zero(t, f.mgr.Len())
}

func TestAutosaveAfterEnd(t *testing.T) {
	f := newFixture(t)
	l := f.list("chapter", actionlist.Options{Kind: actionlist.Blocking, AutosaveAfter: true}, newStep(1, 0))

	l.Interact(0)

	require.Equal(t, 1, f.saver.calls)
	event := drainUntil(t, f.mgr, EventAutosaveWritten)
	require.Equal(t, "chapter", event.Sequence)
}

func TestAutosaveSkippedWhenBlockingStarted(t *testing.T) {
	f := newFixture(t)
	b := f.list("b", actionlist.Options{Kind: actionlist.Blocking}, newStep(1, 2))

	first := newStep(1, 0)
	first.onDone = func() { b.Interact(0) }
	a := f.list("a", actionlist.Options{Kind: actionlist.Blocking, AutosaveAfter: true}, first)

	a.Interact(0)

	require.False(t, a.IsRunning())
	require.True(t, b.IsRunning())
	require.Zero(t, f.saver.calls)
	require.Equal(t, gamestate.Cutscene, f.mode.Current())
	drainUntil(t, f.mgr, EventAutosaveSkipped)
}

func TestAutosaveFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.saver.err = errors.New("disk full")
	l := f.list("chapter", actionlist.Options{Kind: actionlist.Background, AutosaveAfter: true}, newStep(1, 0))

	l.Interact(0)

	event := drainUntil(t, f.mgr, EventAutosaveFailed)
	require.Equal(t, "disk full", event.Detail)
}

func TestAssetRunnerBlocks(t *testing.T) {
	f := newFixture(t)

	f.mgr.RunAsset("asset:door", []action.Action{newStep(1, 2)}, actionlist.Options{Kind: actionlist.Blocking})
	require.Equal(t, gamestate.Cutscene, f.mode.Current())
	require.Zero(t, f.mgr.Len())

	statuses := f.mgr.Active()
	require.Len(t, statuses, 1)
	require.True(t, statuses[0].Asset)
	require.Equal(t, "asset:door", statuses[0].Name)

	f.advance(time.Second)
	f.advance(time.Second)
	require.False(t, f.mgr.AssetRunner().IsRunning())
	require.Equal(t, gamestate.Normal, f.mode.Current())
}

func TestKillAll(t *testing.T) {
	f := newFixture(t)
	conv := &conversation{name: "merchant"}

	f.list("a", actionlist.Options{Kind: actionlist.Background}, newStep(1, 9)).Interact(0)
	f.list("b", actionlist.Options{Kind: actionlist.Blocking, Conversation: conv}, newStep(1, 9)).Interact(0)
	f.mgr.RunAsset("asset:x", []action.Action{newStep(1, 9)}, actionlist.Options{})
	require.Equal(t, gamestate.Cutscene, f.mode.Current())

	f.mgr.KillAll()

	require.Zero(t, f.mgr.Len())
	require.Nil(t, f.mgr.Pending())
	require.Empty(t, f.mgr.Active())
	require.Equal(t, gamestate.Normal, f.mode.Current())
	require.Zero(t, conv.calls)
	require.Zero(t, f.saver.calls)
}

func TestMissingModeController(t *testing.T) {
	c := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	env := &action.Env{Clock: c, Logger: logging.Discard()}
	mgr := New(nil, env)
	conv := &conversation{name: "merchant"}

	l := actionlist.New("intro", []action.Action{newStep(1, 0)}, env, mgr, actionlist.Options{Conversation: conv})
	l.Interact(0)

	require.Equal(t, 1, conv.calls)
	require.Zero(t, mgr.Len())
}

func TestEventsCarryMode(t *testing.T) {
	f := newFixture(t)
	l := f.list("cut", actionlist.Options{Kind: actionlist.Blocking}, newStep(1, 1))
	l.Interact(0)

	event := drainUntil(t, f.mgr, EventSequenceStarted)
	require.Equal(t, gamestate.Cutscene, event.Mode)
	require.Equal(t, actionlist.Blocking, event.Kind)
}

func drainUntil(t *testing.T, m *Manager, typ EventType) Event {
	t.Helper()
	for {
		select {
		case event := <-m.Events():
			if event.Type == typ {
				return event
			}
		default:
			t.Fatalf("event %s not emitted", typ)
			return Event{}
		}
	}
}
