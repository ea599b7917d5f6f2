package actions

import (
	"fmt"
	"strings"
	"time"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/sequences"
)

// Say speaks a line and, when waiting, holds the list while it is shown.
type Say struct {
	action.Base
	Speaker  string
	Text     string
	Duration time.Duration

	timer timer
}

func newSay(spec sequences.ActionSpec) (action.Action, error) {
	base, err := spec.Base()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Text) == "" {
		return nil, fmt.Errorf("say text is required")
	}
	d, err := spec.DurationValue()
	if err != nil {
		return nil, err
	}
	return &Say{Base: base, Speaker: spec.Speaker, Text: spec.Text, Duration: d}, nil
}

func (s *Say) Execute(env *action.Env) action.Poll {
	if !s.IsRunning() {
		s.speak(env)
	}
	if !s.WillWait {
		return action.Done()
	}
	return s.timer.poll(s.IsRunning(), env.Now(), s.Duration)
}

func (s *Say) speak(env *action.Env) {
	var vars map[string]any
	if env.Vars != nil {
		vars = env.Vars.Snapshot()
	}
	line, err := sequences.RenderText(fmt.Sprintf("say-%d", s.ID), s.Text, vars)
	if err != nil {
		env.Logger.Warn().Err(err).Int("action", s.ID).Msg("failed to render line, using raw text")
		line = s.Text
	}
	if s.Speaker != "" {
		line = s.Speaker + ": " + line
	}

	env.Logger.Debug().Int("action", s.ID).Str("speaker", s.Speaker).Msg("line spoken")
	if env.Out == nil {
		env.Logger.Info().Str("line", line).Msg("say")
		return
	}
	fmt.Fprintln(env.Out, line)
}

// Comment is an authoring note. It does nothing when executed.
type Comment struct {
	action.Base
}

func newComment(spec sequences.ActionSpec) (action.Action, error) {
	base, err := spec.Base()
	if err != nil {
		return nil, err
	}
	return &Comment{Base: base}, nil
}

func (c *Comment) Execute(env *action.Env) action.Poll {
	return action.Done()
}
