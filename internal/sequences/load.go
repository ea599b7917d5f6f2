package sequences

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
	"gopkg.in/yaml.v3"
)

// LoadSequence reads a single sequence from disk.
func LoadSequence(path string) (*Sequence, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sequence path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence %s: %w", path, err)
	}

	seq, err := ParseSequence(data)
	if err != nil {
		return nil, fmt.Errorf("parse sequence %s: %w", path, err)
	}
	seq.Source = path
	return seq, nil
}

// LoadSequencesFromDir loads all sequences from a directory.
func LoadSequencesFromDir(dir string) ([]*Sequence, error) {
	if strings.TrimSpace(dir) == "" {
		return []*Sequence{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Sequence{}, nil
		}
		return nil, fmt.Errorf("read sequences dir %s: %w", dir, err)
	}

	sequences := make([]*Sequence, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, name)
		seq, err := LoadSequence(path)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, seq)
	}

	sort.Slice(sequences, func(i, j int) bool {
		return sequences[i].Name < sequences[j].Name
	})

	return sequences, nil
}

// ParseSequence decodes and normalizes one YAML sequence.
func ParseSequence(data []byte) (*Sequence, error) {
	var seq Sequence
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}
	if err := normalizeSequence(&seq); err != nil {
		return nil, err
	}
	return &seq, nil
}

func normalizeSequence(seq *Sequence) error {
	seq.Name = strings.TrimSpace(seq.Name)
	if seq.Name == "" {
		return fmt.Errorf("sequence name is required")
	}
	seq.Description = strings.TrimSpace(seq.Description)

	seq.Type = SequenceType(strings.ToLower(strings.TrimSpace(string(seq.Type))))
	switch seq.Type {
	case "":
		seq.Type = SequenceTypeBlocking
	case SequenceTypeBlocking, SequenceTypeBackground:
	default:
		return fmt.Errorf("unknown sequence type %q", seq.Type)
	}

	if len(seq.Actions) == 0 {
		return fmt.Errorf("sequence actions are required")
	}

	seen := make(map[string]struct{})
	for i := range seq.Variables {
		name := strings.TrimSpace(seq.Variables[i].Name)
		if name == "" {
			return fmt.Errorf("sequence variable name is required")
		}
		if _, exists := seen[name]; exists {
			return fmt.Errorf("duplicate sequence variable %q", name)
		}
		seen[name] = struct{}{}
		seq.Variables[i].Name = name
	}

	if err := assignIDs(seq.Actions); err != nil {
		return err
	}

	positions := make(map[int]int, len(seq.Actions))
	for i, a := range seq.Actions {
		positions[a.ID] = i
	}

	for i := range seq.Actions {
		if err := normalizeAction(&seq.Actions[i], positions); err != nil {
			return fmt.Errorf("sequence action %d: %w", i+1, err)
		}
	}

	if seq.Conversation != nil {
		if err := normalizeConversation(seq.Conversation); err != nil {
			return fmt.Errorf("sequence conversation: %w", err)
		}
	}

	return nil
}

// assignIDs gives every action without an id the next free one, so skip
// targets always have something stable to point at.
func assignIDs(actions []ActionSpec) error {
	used := make(map[int]struct{}, len(actions))
	maxID := 0
	for i, a := range actions {
		if a.ID < 0 {
			return fmt.Errorf("sequence action %d: id must not be negative", i+1)
		}
		if a.ID == 0 {
			continue
		}
		if _, dup := used[a.ID]; dup {
			return fmt.Errorf("sequence action %d: duplicate id %d", i+1, a.ID)
		}
		used[a.ID] = struct{}{}
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	for i := range actions {
		if actions[i].ID == 0 {
			maxID++
			actions[i].ID = maxID
		}
	}
	return nil
}

func normalizeAction(a *ActionSpec, positions map[int]int) error {
	a.Kind = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(a.Kind)), "-", "_")
	if a.Kind == "" {
		return fmt.Errorf("action kind is required")
	}

	a.Label = strings.TrimSpace(a.Label)
	a.Speaker = strings.TrimSpace(a.Speaker)
	a.Variable = strings.TrimSpace(a.Variable)
	a.Operator = strings.TrimSpace(a.Operator)
	a.Script = strings.TrimSpace(a.Script)
	a.Sequence = strings.TrimSpace(a.Sequence)
	a.Mode = strings.TrimSpace(a.Mode)

	if _, err := parseOptionalDuration(a.PollInterval); err != nil {
		return fmt.Errorf("invalid poll interval: %w", err)
	}
	if _, err := parseOptionalDuration(a.Duration); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}

	for name, o := range map[string]*OutcomeSpec{"end": &a.End, "on_true": &a.OnTrue, "on_false": &a.OnFalse} {
		if err := normalizeOutcome(o, positions); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func normalizeOutcome(o *OutcomeSpec, positions map[int]int) error {
	policy, err := action.ParsePolicy(o.Policy)
	if err != nil {
		return err
	}
	o.Policy = policy.String()
	o.Sequence = strings.TrimSpace(o.Sequence)

	switch policy {
	case action.Skip:
		if o.Target == 0 && o.Index == nil {
			return fmt.Errorf("skip needs a target or an index")
		}
		if o.Index == nil {
			idx, ok := positions[o.Target]
			if !ok {
				return fmt.Errorf("skip target %d does not exist", o.Target)
			}
			o.Index = &idx
		}
	case action.RunSequence:
		if o.Sequence == "" {
			return fmt.Errorf("run_sequence needs a sequence name")
		}
	}
	return nil
}

func normalizeConversation(c *ConversationSpec) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("conversation name is required")
	}
	c.Prompt = strings.TrimSpace(c.Prompt)
	if len(c.Options) == 0 {
		return fmt.Errorf("conversation %q has no options", c.Name)
	}
	for i := range c.Options {
		c.Options[i].Text = strings.TrimSpace(c.Options[i].Text)
		c.Options[i].Sequence = strings.TrimSpace(c.Options[i].Sequence)
		if c.Options[i].Text == "" {
			return fmt.Errorf("conversation %q option %d: text is required", c.Name, i+1)
		}
	}
	return nil
}

func parseOptionalDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}
