// Package manager tracks every running action list and derives the global
// mode from them.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/actionlist"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/opencode-ai/cutscene/internal/observe"
	"github.com/rs/zerolog"
)

// AssetRunnerName is the name the asset runner reports while idle.
const AssetRunnerName = "asset"

// Saver writes an autosave.
type Saver interface {
	Autosave(ctx context.Context) error
}

// Status is a snapshot of one running list.
type Status struct {
	Name     string
	Kind     actionlist.Kind
	Cursor   int
	Current  int
	Len      int
	Paused   bool
	Asset    bool
	ResumeAt time.Time
}

// Manager is the registry of running lists and the mode arbiter.
type Manager struct {
	mode    *gamestate.Controller
	saver   Saver
	metrics *observe.Metrics
	ctx     context.Context
	logger  zerolog.Logger

	mu         sync.RWMutex
	active     []*actionlist.ActionList
	pending    action.Conversation
	asset      *actionlist.ActionList
	killingAll bool

	events chan Event
}

// Option customizes a Manager.
type Option func(*Manager)

// WithSaver sets the autosave target.
func WithSaver(s Saver) Option {
	return func(m *Manager) { m.saver = s }
}

// WithMetrics records lifecycle metrics.
func WithMetrics(metrics *observe.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithContext sets the context used for autosaves and metrics.
func WithContext(ctx context.Context) Option {
	return func(m *Manager) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// WithEventBuffer sets the size of the event channel.
func WithEventBuffer(size int) Option {
	return func(m *Manager) {
		if size > 0 {
			m.events = make(chan Event, size)
		}
	}
}

// New creates a manager. mode may be nil, in which case mode arbitration is
// skipped with a warning each time it is attempted. env is handed to the
// asset runner.
func New(mode *gamestate.Controller, env *action.Env, opts ...Option) *Manager {
	m := &Manager{
		mode:   mode,
		ctx:    context.Background(),
		logger: logging.Component("manager"),
		events: make(chan Event, 100),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.asset = actionlist.New(AssetRunnerName, nil, env, m, actionlist.Options{Kind: actionlist.Blocking})
	return m
}

// Events returns lifecycle events. Events are dropped when the buffer is full.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Mode returns the mode controller.
func (m *Manager) Mode() *gamestate.Controller {
	return m.mode
}

// AssetRunner returns the always-present asset runner.
func (m *Manager) AssetRunner() *actionlist.ActionList {
	return m.asset
}

// RunAsset loads actions into the asset runner and starts it. A running
// asset is killed first.
func (m *Manager) RunAsset(name string, actions []action.Action, opts actionlist.Options) {
	m.asset.Load(name, actions, opts)
	m.asset.Interact(0)
}

// Register adds l to the active set, remembers its conversation, and
// recomputes the mode.
func (m *Manager) Register(l *actionlist.ActionList) {
	if l == nil {
		return
	}

	m.mu.Lock()
	added := false
	if l != m.asset && !m.containsLocked(l) {
		m.active = append(m.active, l)
		added = true
	}
	if conv := l.Conversation(); conv != nil {
		m.pending = conv
	}
	m.mu.Unlock()

	m.RecomputeMode()

	if added || l == m.asset {
		m.logger.Debug().Str("sequence", l.Name()).Str("kind", l.Kind().String()).Msg("sequence registered")
		m.emit(Event{Type: EventSequenceStarted, Sequence: l.Name(), Kind: l.Kind()})
		if m.metrics != nil {
			m.metrics.RecordSequenceStarted(m.ctx, l.Name(), l.Kind().String())
		}
	}
}

// Deregister removes a list that ended normally. A list linked to the
// pending conversation hands off into it without passing through Normal.
// An autosave follows if the list asked for one and no blocking list is
// still active.
func (m *Manager) Deregister(l *actionlist.ActionList) {
	if l == nil {
		return
	}

	m.mu.Lock()
	removed := m.removeLocked(l)
	conv := l.Conversation()
	handoff := conv != nil && m.pending != nil && conv == m.pending
	if handoff {
		m.pending = nil
	}
	m.mu.Unlock()

	if removed || l == m.asset {
		m.logger.Debug().Str("sequence", l.Name()).Msg("sequence deregistered")
		if m.metrics != nil {
			m.metrics.RecordSequenceEnded(m.ctx, l.Name(), l.Kind().String())
		}
	}

	if handoff {
		m.handoff(l, conv)
	} else {
		m.RecomputeMode()
	}
	if removed || l == m.asset {
		m.emit(Event{Type: EventSequenceEnded, Sequence: l.Name(), Kind: l.Kind()})
	}

	if l.AutosaveAfter() {
		m.autosave(l)
	}
}

// Forget removes a killed list. No hand-off or autosave happens.
func (m *Manager) Forget(l *actionlist.ActionList) {
	if l == nil {
		return
	}

	m.mu.Lock()
	if m.killingAll {
		m.mu.Unlock()
		return
	}
	removed := m.removeLocked(l)
	if conv := l.Conversation(); conv != nil && conv == m.pending {
		m.pending = nil
	}
	m.mu.Unlock()

	if removed || l == m.asset {
		m.recordKilled(l)
	}
	m.RecomputeMode()
}

// KillAll stops the asset runner and every registered list, then clears the
// active set. Used on scene changes and save loads.
func (m *Manager) KillAll() {
	m.mu.Lock()
	m.killingAll = true
	lists := make([]*actionlist.ActionList, len(m.active))
	copy(lists, m.active)
	m.mu.Unlock()

	assetRunning := m.asset.IsRunning()
	m.asset.Kill()
	for _, l := range lists {
		l.Kill()
	}

	m.mu.Lock()
	m.active = nil
	m.pending = nil
	m.killingAll = false
	m.mu.Unlock()

	if assetRunning {
		m.recordKilled(m.asset)
	}
	for _, l := range lists {
		m.recordKilled(l)
	}
	m.logger.Info().Int("killed", len(lists)).Bool("asset", assetRunning).Msg("all sequences killed")

	m.RecomputeMode()
}

// IsBlockingActive reports whether the asset runner or any registered
// blocking list is running. The save system uses it to gate autosaves.
func (m *Manager) IsBlockingActive() bool {
	if m.asset.IsRunning() {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.active {
		if l.IsBlocking() && l.IsRunning() {
			return true
		}
	}
	return false
}

// RecomputeMode enters Cutscene while anything blocks and leaves it when
// nothing does. Paused and DialogOptions are owned elsewhere and are not
// reverted here.
func (m *Manager) RecomputeMode() {
	if m.mode == nil {
		m.logger.Warn().Msg("mode controller not available, mode recomputation skipped")
		return
	}
	if m.IsBlockingActive() {
		m.mode.EnterCutscene()
		return
	}
	m.mode.ExitCutscene()
}

// Update ticks the asset runner and every active list. While the game is
// paused only lists flagged RunWhilePaused advance.
func (m *Manager) Update(now time.Time) {
	paused := m.mode != nil && m.mode.Current() == gamestate.Paused

	if !paused || m.asset.RunWhilePaused() {
		m.asset.Tick(now)
	}
	for _, l := range m.snapshot() {
		if paused && !l.RunWhilePaused() {
			continue
		}
		l.Tick(now)
	}
}

// IsActive reports whether l is registered.
func (m *Manager) IsActive(l *actionlist.ActionList) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.containsLocked(l)
}

// Pending returns the conversation waiting for a hand-off, if any.
func (m *Manager) Pending() action.Conversation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pending
}

// Active returns a status snapshot of the asset runner (when running) and
// every registered list.
func (m *Manager) Active() []Status {
	lists := m.snapshot()
	out := make([]Status, 0, len(lists)+1)
	if m.asset.IsRunning() {
		out = append(out, statusOf(m.asset, true))
	}
	for _, l := range lists {
		out = append(out, statusOf(l, false))
	}
	return out
}

// Len returns the number of registered lists.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

func statusOf(l *actionlist.ActionList, asset bool) Status {
	return Status{
		Name:     l.Name(),
		Kind:     l.Kind(),
		Cursor:   l.Cursor(),
		Current:  l.Current(),
		Len:      l.Len(),
		Paused:   l.IsPaused(),
		Asset:    asset,
		ResumeAt: l.ResumeAt(),
	}
}

func (m *Manager) handoff(l *actionlist.ActionList, conv action.Conversation) {
	m.logger.Debug().Str("sequence", l.Name()).Str("conversation", conv.Name()).Msg("handing off to conversation")
	if m.mode == nil {
		m.logger.Warn().Msg("mode controller not available, conversation starts without cutscene mode")
	} else {
		m.mode.EnterCutscene()
	}
	m.emit(Event{Type: EventConversationStarted, Sequence: l.Name(), Kind: l.Kind(), Detail: conv.Name()})
	conv.Interact()
}

func (m *Manager) autosave(l *actionlist.ActionList) {
	if m.saver == nil {
		m.logger.Warn().Str("sequence", l.Name()).Msg("no save system available, autosave skipped")
		return
	}
	if m.IsBlockingActive() {
		m.logger.Warn().Str("sequence", l.Name()).Msg("blocking sequence active, autosave skipped")
		m.emit(Event{Type: EventAutosaveSkipped, Sequence: l.Name(), Kind: l.Kind(), Detail: "blocking sequence active"})
		if m.metrics != nil {
			m.metrics.RecordAutosave(m.ctx, "skipped")
		}
		return
	}

	if err := m.saver.Autosave(m.ctx); err != nil {
		m.logger.Error().Err(err).Str("sequence", l.Name()).Msg("autosave failed")
		m.emit(Event{Type: EventAutosaveFailed, Sequence: l.Name(), Kind: l.Kind(), Detail: err.Error()})
		if m.metrics != nil {
			m.metrics.RecordAutosave(m.ctx, "failed")
		}
		return
	}

	m.logger.Info().Str("sequence", l.Name()).Msg("autosave written")
	m.emit(Event{Type: EventAutosaveWritten, Sequence: l.Name(), Kind: l.Kind()})
	if m.metrics != nil {
		m.metrics.RecordAutosave(m.ctx, "written")
	}
}

func (m *Manager) recordKilled(l *actionlist.ActionList) {
	m.logger.Debug().Str("sequence", l.Name()).Msg("sequence forgotten")
	m.emit(Event{Type: EventSequenceKilled, Sequence: l.Name(), Kind: l.Kind()})
	if m.metrics != nil {
		m.metrics.RecordSequenceKilled(m.ctx, l.Name())
	}
}

func (m *Manager) snapshot() []*actionlist.ActionList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*actionlist.ActionList, len(m.active))
	copy(out, m.active)
	return out
}

func (m *Manager) containsLocked(l *actionlist.ActionList) bool {
	for _, existing := range m.active {
		if existing == l {
			return true
		}
	}
	return false
}

func (m *Manager) removeLocked(l *actionlist.ActionList) bool {
	for i, existing := range m.active {
		if existing == l {
			m.active = append(m.active[:i], m.active[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Manager) emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if m.mode != nil {
		event.Mode = m.mode.Current()
	}
	select {
	case m.events <- event:
	default:
	}
}
