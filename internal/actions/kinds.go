package actions

import (
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
)

// Registered kind names.
const (
	KindPause         = "pause"
	KindSay           = "say"
	KindSetVariable   = "set_variable"
	KindCheckVariable = "check_variable"
	KindCheckScript   = "check_script"
	KindRunSequence   = "run_sequence"
	KindComment       = "comment"
	KindSetMode       = "set_mode"
)

// timer is the shared wait state of kinds that hold the list for a duration.
type timer struct {
	until time.Time
}

// poll starts the timer on the first call and reports Done once d has
// elapsed in game time.
func (t *timer) poll(running bool, now time.Time, d time.Duration) action.Poll {
	if d <= 0 {
		return action.Done()
	}
	if !running {
		t.until = now.Add(d)
		return action.Pending(d)
	}
	if remaining := t.until.Sub(now); remaining > 0 {
		return action.Pending(remaining)
	}
	return action.Done()
}
