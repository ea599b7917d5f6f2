package sequences

import (
	"fmt"
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
)

// Outcome converts the authored policy into its runtime form.
func (o OutcomeSpec) Outcome() (action.Outcome, error) {
	policy, err := action.ParsePolicy(o.Policy)
	if err != nil {
		return action.Outcome{}, err
	}

	out := action.Outcome{Policy: policy}
	switch policy {
	case action.Skip:
		out.Target.ActionID = o.Target
		if o.Index != nil {
			out.Target.Index = *o.Index
		}
	case action.RunSequence:
		out.Linked = action.LinkedSequence{
			Name:      o.Sequence,
			Asset:     o.Asset,
			StopAfter: o.StopAfter,
		}
	}
	return out, nil
}

// Base builds the shared runtime attributes of the action.
func (a ActionSpec) Base() (action.Base, error) {
	b := action.NewBase(a.ID, a.Kind)
	b.Label = a.Label
	b.Enabled = !a.Disabled
	b.WillWait = a.WillWait()

	interval, err := parseOptionalDuration(a.PollInterval)
	if err != nil {
		return b, fmt.Errorf("action %d: invalid poll interval: %w", a.ID, err)
	}
	b.PollInterval = interval

	end, err := a.End.Outcome()
	if err != nil {
		return b, fmt.Errorf("action %d: end: %w", a.ID, err)
	}
	b.End = end
	return b, nil
}

// Branch builds the on_true/on_false outcomes of a conditional action.
func (a ActionSpec) Branch() (action.Branch, error) {
	onTrue, err := a.OnTrue.Outcome()
	if err != nil {
		return action.Branch{}, fmt.Errorf("action %d: on_true: %w", a.ID, err)
	}
	onFalse, err := a.OnFalse.Outcome()
	if err != nil {
		return action.Branch{}, fmt.Errorf("action %d: on_false: %w", a.ID, err)
	}
	return action.Branch{True: onTrue, False: onFalse}, nil
}

// DurationValue returns the parsed duration field, zero when unset.
func (a ActionSpec) DurationValue() (time.Duration, error) {
	return parseOptionalDuration(a.Duration)
}
