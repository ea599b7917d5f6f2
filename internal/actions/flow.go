package actions

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/sequences"
)

// RunSequence starts another sequence without waiting for it.
type RunSequence struct {
	action.Base
	Sequence string
	Asset    bool
}

func newRunSequence(spec sequences.ActionSpec) (action.Action, error) {
	base, err := spec.Base()
	if err != nil {
		return nil, err
	}
	if spec.Sequence == "" {
		return nil, fmt.Errorf("sequence name is required")
	}
	return &RunSequence{Base: base, Sequence: spec.Sequence, Asset: spec.Asset}, nil
}

func (r *RunSequence) Execute(env *action.Env) action.Poll {
	if env.Starter == nil {
		env.Logger.Warn().Str("linked", r.Sequence).Msg("no sequence starter available, sequence not started")
		return action.Done()
	}
	if err := env.Starter.StartSequence(r.Sequence, r.Asset); err != nil {
		env.Logger.Warn().Err(err).Str("linked", r.Sequence).Msg("failed to start sequence")
	}
	return action.Done()
}

// ModeChange is a transition SetMode may request. Cutscene transitions are
// not listed: the manager owns them.
type ModeChange string

const (
	ModePause              ModeChange = "pause"
	ModeUnpause            ModeChange = "unpause"
	ModeOpenDialogOptions  ModeChange = "dialog_options"
	ModeCloseDialogOptions ModeChange = "close_dialog_options"
)

// SetMode asks the mode controller for a Paused or DialogOptions transition.
type SetMode struct {
	action.Base
	Change ModeChange
}

func newSetMode(spec sequences.ActionSpec) (action.Action, error) {
	base, err := spec.Base()
	if err != nil {
		return nil, err
	}
	change := ModeChange(strings.ReplaceAll(strings.ToLower(spec.Mode), "-", "_"))
	switch change {
	case ModePause, ModeUnpause, ModeOpenDialogOptions, ModeCloseDialogOptions:
	default:
		return nil, fmt.Errorf("unknown mode change %q", spec.Mode)
	}
	return &SetMode{Base: base, Change: change}, nil
}

func (s *SetMode) Execute(env *action.Env) action.Poll {
	if env.Mode == nil {
		env.Logger.Warn().Str("change", string(s.Change)).Msg("mode controller not available, change skipped")
		return action.Done()
	}
	switch s.Change {
	case ModePause:
		env.Mode.Pause()
	case ModeUnpause:
		env.Mode.Unpause()
	case ModeOpenDialogOptions:
		env.Mode.EnterDialogOptions()
	case ModeCloseDialogOptions:
		env.Mode.ExitDialogOptions()
	}
	if env.Arbiter != nil && s.Change == ModeCloseDialogOptions {
		env.Arbiter.RecomputeMode()
	}
	return action.Done()
}
