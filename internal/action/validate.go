package action

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/cutscene/internal/models"
)

// Outcomes returns the outcomes an action can resolve with.
func (b *Base) Outcomes() []Outcome {
	return []Outcome{b.End}
}

// Outcomes returns both branches.
func (b Branch) Outcomes() []Outcome {
	return []Outcome{b.True, b.False}
}

type outcomer interface {
	Outcomes() []Outcome
}

// Validate checks an action list for authoring mistakes: missing actions,
// duplicate IDs, skip targets whose ID no longer exists, and linked
// sequences without a name. Stale targets still run (they fall back to the
// stored index) but are reported so authors can fix them.
func Validate(actions []Action) error {
	validation := &models.ValidationErrors{}
	seen := make(map[int]int, len(actions))

	for i, a := range actions {
		field := fmt.Sprintf("actions[%d]", i)
		if a == nil {
			validation.AddMessage(field, "action is nil")
			continue
		}
		id := a.Attrs().ID
		if id == 0 {
			continue
		}
		if prev, dup := seen[id]; dup {
			validation.AddMessage(field, fmt.Sprintf("duplicate id %d (also at index %d)", id, prev))
			continue
		}
		seen[id] = i
	}

	for i, a := range actions {
		if a == nil {
			continue
		}
		o, ok := a.(outcomer)
		if !ok {
			continue
		}
		field := fmt.Sprintf("actions[%d]", i)
		for _, outcome := range o.Outcomes() {
			switch outcome.Policy {
			case Skip:
				if outcome.Target.ActionID == 0 {
					continue
				}
				if _, ok := seen[outcome.Target.ActionID]; !ok {
					validation.AddMessage(field, fmt.Sprintf("skip target id %d does not exist, index %d will be used", outcome.Target.ActionID, outcome.Target.Index))
				}
			case RunSequence:
				if strings.TrimSpace(outcome.Linked.Name) == "" {
					validation.AddMessage(field, "run_sequence outcome requires a sequence name")
				}
			}
		}
	}

	return validation.Err()
}
