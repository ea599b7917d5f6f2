package actions

import (
	"fmt"
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/sequences"
)

// Pause holds the list for Duration of game time.
type Pause struct {
	action.Base
	Duration time.Duration

	timer timer
}

func newPause(spec sequences.ActionSpec) (action.Action, error) {
	base, err := spec.Base()
	if err != nil {
		return nil, err
	}
	d, err := spec.DurationValue()
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		return nil, fmt.Errorf("pause duration must be greater than 0")
	}
	return &Pause{Base: base, Duration: d}, nil
}

func (p *Pause) Execute(env *action.Env) action.Poll {
	if !p.WillWait {
		return action.Done()
	}
	return p.timer.poll(p.IsRunning(), env.Now(), p.Duration)
}
