// Package sequences provides loading of authored action sequences.
package sequences

import "errors"

var (
	// ErrSequenceNotFound is returned when a named sequence is not in the catalog.
	ErrSequenceNotFound = errors.New("sequence not found")
)

// Sequence is an authored, ordered list of actions.
type Sequence struct {
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	Type           SequenceType      `yaml:"type,omitempty"`
	Asset          bool              `yaml:"asset,omitempty"`
	AutosaveAfter  bool              `yaml:"autosave_after,omitempty"`
	RunWhilePaused bool              `yaml:"run_while_paused,omitempty"`
	Conversation   *ConversationSpec `yaml:"conversation,omitempty"`
	Variables      []SequenceVar     `yaml:"variables,omitempty"`
	Actions        []ActionSpec      `yaml:"actions"`
	Tags           []string          `yaml:"tags,omitempty"`
	Source         string            `yaml:"-"` // file path or "builtin"
}

// SequenceType says whether a running sequence blocks gameplay.
type SequenceType string

const (
	SequenceTypeBlocking   SequenceType = "blocking"
	SequenceTypeBackground SequenceType = "background"
)

// SequenceVar declares a global variable the sequence reads, with the value
// it starts from when nothing has set it yet.
type SequenceVar struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Default     string `yaml:"default,omitempty"`
}

// ActionSpec is one authored action. Kind selects the factory; the remaining
// fields are read by the kinds that need them.
type ActionSpec struct {
	ID           int    `yaml:"id"`
	Kind         string `yaml:"kind"`
	Label        string `yaml:"label,omitempty"`
	Disabled     bool   `yaml:"disabled,omitempty"`
	Wait         *bool  `yaml:"wait,omitempty"`
	PollInterval string `yaml:"poll_interval,omitempty"`

	End     OutcomeSpec `yaml:"end,omitempty"`
	OnTrue  OutcomeSpec `yaml:"on_true,omitempty"`
	OnFalse OutcomeSpec `yaml:"on_false,omitempty"`

	Duration string `yaml:"duration,omitempty"`
	Speaker  string `yaml:"speaker,omitempty"`
	Text     string `yaml:"text,omitempty"`
	Variable string `yaml:"variable,omitempty"`
	Operator string `yaml:"operator,omitempty"`
	Value    string `yaml:"value,omitempty"`
	Script   string `yaml:"script,omitempty"`
	Sequence string `yaml:"sequence,omitempty"`
	Asset    bool   `yaml:"asset,omitempty"`
	Mode     string `yaml:"mode,omitempty"`
}

// OutcomeSpec is the authored form of a completion policy. Target is the
// stable action id; Index is the cached position used when the id goes stale.
type OutcomeSpec struct {
	Policy    string `yaml:"policy,omitempty"`
	Target    int    `yaml:"target,omitempty"`
	Index     *int   `yaml:"index,omitempty"`
	Sequence  string `yaml:"sequence,omitempty"`
	Asset     bool   `yaml:"asset,omitempty"`
	StopAfter bool   `yaml:"stop_after,omitempty"`
}

// ConversationSpec is a dialogue-choice menu the sequence hands off into
// when it ends.
type ConversationSpec struct {
	Name    string       `yaml:"name"`
	Prompt  string       `yaml:"prompt,omitempty"`
	Options []OptionSpec `yaml:"options"`
}

// OptionSpec is one dialogue choice and the sequence it starts.
type OptionSpec struct {
	Text     string `yaml:"text"`
	Sequence string `yaml:"sequence,omitempty"`
}

// IsBlocking reports whether the sequence blocks gameplay. Untyped sequences block.
func (s *Sequence) IsBlocking() bool {
	return s.Type != SequenceTypeBackground
}

// WillWait reports the authored wait flag, defaulting to true.
func (a ActionSpec) WillWait() bool {
	return a.Wait == nil || *a.Wait
}
