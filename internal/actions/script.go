package actions

import (
	"errors"
	"fmt"

	"github.com/Shopify/go-lua"
	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/sequences"
)

// CheckScript evaluates a Lua expression against the global variables and
// branches on its truthiness. Variables are visible as Lua globals, and
// mode() returns the current global mode name.
type CheckScript struct {
	action.Base
	Script string
	Branch action.Branch

	result bool
}

func newCheckScript(spec sequences.ActionSpec) (action.Action, error) {
	base, err := spec.Base()
	if err != nil {
		return nil, err
	}
	if spec.Script == "" {
		return nil, fmt.Errorf("script is required")
	}
	branch, err := spec.Branch()
	if err != nil {
		return nil, err
	}
	// Compile once so syntax errors surface at load time.
	if err := lua.LoadString(lua.NewState(), "return "+spec.Script); err != nil {
		return nil, fmt.Errorf("compile script: %w", err)
	}
	return &CheckScript{Base: base, Script: spec.Script, Branch: branch}, nil
}

func (c *CheckScript) Execute(env *action.Env) action.Poll {
	result, err := EvalScript(env, c.Script)
	if err != nil {
		env.Logger.Warn().Err(err).Int("action", c.ID).Msg("script failed, check is false")
	}
	c.result = result
	return action.Done()
}

func (c *CheckScript) Resolve(env *action.Env, at action.Location) action.Next {
	return c.Branch.Resolve(env, at, c.result)
}

func (c *CheckScript) Outcomes() []action.Outcome {
	return c.Branch.Outcomes()
}

// Result is the outcome of the last Execute.
func (c *CheckScript) Result() bool { return c.result }

// scriptInstructionLimit caps the Lua VM instructions one condition may run.
const scriptInstructionLimit = 200000

// ErrScriptBudget is returned when a condition runs past its instruction limit.
var ErrScriptBudget = errors.New("script exceeded instruction limit")

// EvalScript runs expr in a fresh Lua state and reports its truthiness.
// A script that runs past scriptInstructionLimit is stopped and reported as
// ErrScriptBudget.
func EvalScript(env *action.Env, expr string) (bool, error) {
	l := lua.NewState()
	lua.OpenLibraries(l)

	exhausted := false
	lua.SetDebugHook(l, func(l *lua.State, _ lua.Debug) {
		exhausted = true
		lua.Errorf(l, "%s", ErrScriptBudget.Error())
	}, lua.MaskCount, scriptInstructionLimit)

	if env.Vars != nil {
		for name, value := range env.Vars.Snapshot() {
			pushValue(l, value)
			l.SetGlobal(name)
		}
	}

	mode := ""
	if env.Mode != nil {
		mode = env.Mode.Current().String()
	}
	l.Register("mode", func(l *lua.State) int {
		l.PushString(mode)
		return 1
	})

	if err := lua.LoadString(l, "return "+expr); err != nil {
		return false, fmt.Errorf("compile script: %w", err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		if exhausted {
			return false, fmt.Errorf("run script: %w", ErrScriptBudget)
		}
		return false, fmt.Errorf("run script: %w", err)
	}
	result := l.ToBoolean(-1)
	l.Pop(1)
	return result, nil
}

func pushValue(l *lua.State, value any) {
	switch v := value.(type) {
	case int:
		l.PushInteger(v)
	case float64:
		l.PushNumber(v)
	case bool:
		l.PushBoolean(v)
	case string:
		l.PushString(v)
	default:
		l.PushNil()
	}
}
