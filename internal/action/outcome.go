package action

import (
	"fmt"
	"strings"
	"time"
)

// Policy is what happens once an action completes.
type Policy int

const (
	// Continue advances to the next position.
	Continue Policy = iota
	// Stop terminates the sequence.
	Stop
	// Skip jumps to the outcome's target.
	Skip
	// RunSequence starts a linked sequence, then continues or stops.
	RunSequence
)

func (p Policy) String() string {
	switch p {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case Skip:
		return "skip"
	case RunSequence:
		return "run_sequence"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts the authoring names of a policy. Empty means Continue.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "continue":
		return Continue, nil
	case "stop":
		return Stop, nil
	case "skip", "skip_to", "jump":
		return Skip, nil
	case "run_sequence", "run_cutscene", "run":
		return RunSequence, nil
	default:
		return Continue, fmt.Errorf("unknown policy %q", s)
	}
}

// Target is a skip destination. ActionID is authoritative while it resolves
// to a position after the jumping action; Index is the fallback.
type Target struct {
	ActionID int
	Index    int
}

// LinkedSequence names the sequence started by RunSequence.
type LinkedSequence struct {
	Name      string
	Asset     bool
	StopAfter bool
}

// Outcome is one completion policy with its targets.
type Outcome struct {
	Policy Policy
	Target Target
	Linked LinkedSequence
}

// Resolve turns the outcome into a Next for the action at at.
func (o Outcome) Resolve(env *Env, at Location) Next {
	switch o.Policy {
	case Stop:
		return StopNext()
	case Skip:
		return o.Target.Resolve(at)
	case RunSequence:
		startLinked(env, o.Linked)
		if o.Linked.StopAfter {
			return StopNext()
		}
		return ContinueNext()
	default:
		return ContinueNext()
	}
}

// Resolve maps the target to a position. A stale or preceding ActionID falls
// back to Index. Index is clamped into the sequence; when clamping lands on or
// before at.Index the sequence terminates instead.
func (t Target) Resolve(at Location) Next {
	if t.ActionID != 0 {
		if idx, ok := at.Positions[t.ActionID]; ok && idx > at.Index && idx < at.Len {
			return JumpTo(idx)
		}
	}

	idx := t.Index
	if idx < 0 {
		idx = 0
	}
	if idx >= at.Len {
		idx = at.Len - 1
		if idx <= at.Index {
			return StopNext()
		}
	}
	return JumpTo(idx)
}

func startLinked(env *Env, linked LinkedSequence) {
	log := env.logger()
	if strings.TrimSpace(linked.Name) == "" {
		log.Warn().Msg("run_sequence outcome has no sequence name")
		return
	}
	if env == nil || env.Starter == nil {
		log.Warn().Str("linked", linked.Name).Msg("no sequence starter available, linked sequence not started")
		return
	}
	if err := env.Starter.StartSequence(linked.Name, linked.Asset); err != nil {
		log.Warn().Err(err).Str("linked", linked.Name).Msg("failed to start linked sequence")
	}
}

// Branch holds the outcomes of a conditional action.
type Branch struct {
	True  Outcome
	False Outcome
}

// Resolve applies the outcome selected by result.
func (b Branch) Resolve(env *Env, at Location, result bool) Next {
	if result {
		return b.True.Resolve(env, at)
	}
	return b.False.Resolve(env, at)
}

type nextKind int

const (
	nextContinue nextKind = iota
	nextStop
	nextJump
)

// Next is the result of Resolve.
type Next struct {
	kind  nextKind
	index int
}

// ContinueNext keeps the default continuation.
func ContinueNext() Next { return Next{kind: nextContinue} }

// StopNext terminates the sequence.
func StopNext() Next { return Next{kind: nextStop} }

// JumpTo moves the cursor to index.
func JumpTo(index int) Next { return Next{kind: nextJump, index: index} }

// IsContinue reports a plain continuation.
func (n Next) IsContinue() bool { return n.kind == nextContinue }

// IsStop reports termination.
func (n Next) IsStop() bool { return n.kind == nextStop }

// Jump returns the jump index, if any.
func (n Next) Jump() (int, bool) {
	return n.index, n.kind == nextJump
}

// Code returns the integer form: 0 continue, -1 stop, otherwise the index.
// A jump to 0 is reported as 0, so only use Code for display.
func (n Next) Code() int {
	switch n.kind {
	case nextStop:
		return -1
	case nextJump:
		return n.index
	default:
		return 0
	}
}

func (n Next) String() string {
	switch n.kind {
	case nextStop:
		return "stop"
	case nextJump:
		return fmt.Sprintf("jump(%d)", n.index)
	default:
		return "continue"
	}
}

// Poll is the result of Execute.
type Poll struct {
	done  bool
	after time.Duration
}

// Done reports that the action has finished.
func Done() Poll { return Poll{done: true} }

// Pending asks to be polled again after d. Zero means next tick.
func Pending(d time.Duration) Poll {
	if d < 0 {
		d = 0
	}
	return Poll{after: d}
}

// IsDone reports completion.
func (p Poll) IsDone() bool { return p.done }

// After is the requested re-poll delay.
func (p Poll) After() time.Duration { return p.after }
