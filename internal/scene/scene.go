// Package scene wires sequences, the manager, dialogue and saves into one
// running game session.
package scene

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/actionlist"
	"github.com/opencode-ai/cutscene/internal/actions"
	"github.com/opencode-ai/cutscene/internal/clock"
	"github.com/opencode-ai/cutscene/internal/dialogue"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/opencode-ai/cutscene/internal/manager"
	"github.com/opencode-ai/cutscene/internal/models"
	"github.com/opencode-ai/cutscene/internal/observe"
	"github.com/opencode-ai/cutscene/internal/sequences"
	"github.com/opencode-ai/cutscene/internal/variables"
	"github.com/rs/zerolog"
)

var (
	// ErrConversationNotFound is returned for an unknown conversation name.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrNoSaveStore is returned when saving without a configured store.
	ErrNoSaveStore = errors.New("no save store configured")
)

// SaveStore persists snapshots.
type SaveStore interface {
	Create(ctx context.Context, save *models.Save) error
}

// Config configures a Scene.
type Config struct {
	Catalog *sequences.Catalog

	// Clock is the game clock. Defaults to the wall clock.
	Clock clock.Clock

	// Out receives spoken lines and menus.
	Out io.Writer

	// Saves receives autosaves. Nil disables saving.
	Saves SaveStore

	Metrics *observe.Metrics

	// Autosave is the global switch for sequences marked autosave_after.
	Autosave bool

	MaxStepsPerTick int
	EventBuffer     int
	Context         context.Context
}

// Scene is the composition root of a game session.
type Scene struct {
	catalog *sequences.Catalog
	mode    *gamestate.Controller
	vars    *variables.Store
	env     *action.Env
	manager *manager.Manager
	saves   SaveStore
	cfg     Config
	logger  zerolog.Logger

	mu            sync.Mutex
	lists         map[string]*actionlist.ActionList
	conversations map[string]*dialogue.Conversation
}

// New builds a scene. Conversations declared by catalog sequences are
// created up front and variables start at their declared defaults.
func New(cfg Config) (*Scene, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("sequence catalog is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	s := &Scene{
		catalog:       cfg.Catalog,
		mode:          gamestate.NewController(),
		vars:          variables.NewStore(),
		saves:         cfg.Saves,
		cfg:           cfg,
		logger:        logging.Component("scene"),
		lists:         make(map[string]*actionlist.ActionList),
		conversations: make(map[string]*dialogue.Conversation),
	}

	s.env = &action.Env{
		Clock:   cfg.Clock,
		Vars:    s.vars,
		Starter: s,
		Mode:    s.mode,
		Out:     cfg.Out,
		Logger:  logging.Component("action"),
	}

	opts := []manager.Option{manager.WithContext(cfg.Context), manager.WithEventBuffer(cfg.EventBuffer)}
	if cfg.Saves != nil {
		opts = append(opts, manager.WithSaver(s))
	}
	if cfg.Metrics != nil {
		opts = append(opts, manager.WithMetrics(cfg.Metrics))
		metrics := cfg.Metrics
		s.mode.Subscribe(func(c gamestate.Change) {
			metrics.RecordModeChange(cfg.Context, c.Previous.String(), c.Current.String())
		})
	}
	s.manager = manager.New(s.mode, s.env, opts...)
	s.env.Arbiter = s.manager

	if err := s.seedVariables(); err != nil {
		return nil, err
	}
	s.buildConversations()

	return s, nil
}

// Mode returns the global mode controller.
func (s *Scene) Mode() *gamestate.Controller { return s.mode }

// Vars returns the global variable store.
func (s *Scene) Vars() *variables.Store { return s.vars }

// Manager returns the registry of running sequences.
func (s *Scene) Manager() *manager.Manager { return s.manager }

// Env returns the environment actions run against.
func (s *Scene) Env() *action.Env { return s.env }

// Catalog returns the sequence catalog.
func (s *Scene) Catalog() *sequences.Catalog { return s.catalog }

// Update advances every running sequence to now.
func (s *Scene) Update(now time.Time) {
	s.manager.Update(now)
}

// Play starts the named sequence from its first action.
func (s *Scene) Play(name string) error {
	return s.StartSequence(name, false)
}

// StartSequence starts name on its scene runner, or on the asset runner
// when asset is set or the sequence is authored as an asset. A running
// scene sequence restarts from the beginning.
func (s *Scene) StartSequence(name string, asset bool) error {
	seq, err := s.catalog.Get(name)
	if err != nil {
		return err
	}

	if asset || seq.Asset {
		built, err := actions.BuildSequence(seq)
		if err != nil {
			return err
		}
		s.logger.Debug().Str("sequence", name).Msg("starting asset")
		s.manager.RunAsset(name, built, s.options(seq))
		return nil
	}

	l, err := s.list(seq)
	if err != nil {
		return err
	}
	s.logger.Debug().Str("sequence", name).Msg("starting sequence")
	l.Interact(0)
	return nil
}

// Stop kills the named scene sequence if it is running.
func (s *Scene) Stop(name string) bool {
	s.mu.Lock()
	l, ok := s.lists[name]
	s.mu.Unlock()
	if !ok || !l.IsRunning() {
		return false
	}
	l.Kill()
	return true
}

// Reset kills everything, as a scene change does.
func (s *Scene) Reset() {
	s.manager.KillAll()
	s.mu.Lock()
	for _, c := range s.conversations {
		c.Close()
	}
	s.mu.Unlock()
}

// Conversation returns a declared conversation.
func (s *Scene) Conversation(name string) (*dialogue.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, name)
	}
	return c, nil
}

// Conversations returns every declared conversation, sorted by name.
func (s *Scene) Conversations() []*dialogue.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*dialogue.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// OpenConversation returns the conversation currently waiting for a choice.
func (s *Scene) OpenConversation() *dialogue.Conversation {
	for _, c := range s.Conversations() {
		if c.IsOpen() {
			return c
		}
	}
	return nil
}

// Idle reports whether nothing is running and no menu is open.
func (s *Scene) Idle() bool {
	return len(s.manager.Active()) == 0 && s.OpenConversation() == nil
}

func (s *Scene) list(seq *sequences.Sequence) (*actionlist.ActionList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lists[seq.Name]; ok {
		return l, nil
	}
	built, err := actions.BuildSequence(seq)
	if err != nil {
		return nil, err
	}
	l := actionlist.New(seq.Name, built, s.env, s.manager, s.optionsLocked(seq))
	s.lists[seq.Name] = l
	return l, nil
}

func (s *Scene) options(seq *sequences.Sequence) actionlist.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.optionsLocked(seq)
}

func (s *Scene) optionsLocked(seq *sequences.Sequence) actionlist.Options {
	opts := actionlist.Options{
		Kind:            actionlist.Blocking,
		AutosaveAfter:   seq.AutosaveAfter && s.cfg.Autosave,
		RunWhilePaused:  seq.RunWhilePaused,
		MaxStepsPerTick: s.cfg.MaxStepsPerTick,
	}
	if !seq.IsBlocking() {
		opts.Kind = actionlist.Background
	}
	if seq.Conversation != nil {
		if c, ok := s.conversations[seq.Conversation.Name]; ok {
			opts.Conversation = c
		}
	}
	return opts
}

func (s *Scene) seedVariables() error {
	for _, seq := range s.catalog.List() {
		for _, v := range seq.Variables {
			if v.Default == "" {
				continue
			}
			if _, err := s.vars.Get(v.Name); err == nil {
				continue
			}
			if err := s.vars.Set(v.Name, variables.Parse(v.Default)); err != nil {
				return fmt.Errorf("sequence %q variable %q: %w", seq.Name, v.Name, err)
			}
		}
	}
	return nil
}

func (s *Scene) buildConversations() {
	for _, seq := range s.catalog.List() {
		spec := seq.Conversation
		if spec == nil {
			continue
		}
		if _, exists := s.conversations[spec.Name]; exists {
			continue
		}
		s.conversations[spec.Name] = dialogue.FromSpec(spec, s.mode, s, s.cfg.Out, dialogue.WithArbiter(s.manager))
	}
}
