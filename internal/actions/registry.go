// Package actions holds the concrete action kinds and the factory registry
// that builds them from authored specs.
package actions

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/models"
	"github.com/opencode-ai/cutscene/internal/sequences"
)

var (
	// ErrUnknownKind is returned when no factory is registered for a kind.
	ErrUnknownKind = errors.New("unknown action kind")
)

// Factory builds one action from its authored spec.
type Factory func(spec sequences.ActionSpec) (action.Action, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

func init() {
	Register(KindPause, newPause)
	Register(KindSay, newSay)
	Register(KindSetVariable, newSetVariable)
	Register(KindCheckVariable, newCheckVariable)
	Register(KindCheckScript, newCheckScript)
	Register(KindRunSequence, newRunSequence)
	Register(KindComment, newComment)
	Register(KindSetMode, newSetMode)
}

// Register installs f for kind, replacing any previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Kinds returns every registered kind, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for kind := range factories {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

// Build constructs the action described by spec.
func Build(spec sequences.ActionSpec) (action.Action, error) {
	mu.RLock()
	f, ok := factories[spec.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	a, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("build %s action %d: %w", spec.Kind, spec.ID, err)
	}
	return a, nil
}

// BuildSequence builds every action of seq and validates the result.
func BuildSequence(seq *sequences.Sequence) ([]action.Action, error) {
	if seq == nil {
		return nil, fmt.Errorf("sequence is required")
	}

	verrs := &models.ValidationErrors{}
	out := make([]action.Action, 0, len(seq.Actions))
	for i, spec := range seq.Actions {
		a, err := Build(spec)
		if err != nil {
			verrs.AddMessage(fmt.Sprintf("actions[%d]", i), err.Error())
			continue
		}
		out = append(out, a)
	}
	if err := verrs.Err(); err != nil {
		return nil, fmt.Errorf("sequence %q: %w", seq.Name, err)
	}
	if err := action.Validate(out); err != nil {
		return nil, fmt.Errorf("sequence %q: %w", seq.Name, err)
	}
	return out, nil
}
