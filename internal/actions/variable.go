package actions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opencode-ai/cutscene/internal/action"
	"github.com/opencode-ai/cutscene/internal/sequences"
	"github.com/opencode-ai/cutscene/internal/variables"
)

// SetVariable assigns or adds to a global variable.
type SetVariable struct {
	action.Base
	Variable string
	Add      bool
	Value    any
}

func newSetVariable(spec sequences.ActionSpec) (action.Action, error) {
	base, err := spec.Base()
	if err != nil {
		return nil, err
	}
	if spec.Variable == "" {
		return nil, fmt.Errorf("variable name is required")
	}

	s := &SetVariable{Base: base, Variable: spec.Variable, Value: variables.Parse(spec.Value)}
	switch strings.ToLower(spec.Operator) {
	case "", "set", "=":
	case "add", "+=":
		if _, ok := number(s.Value); !ok {
			return nil, fmt.Errorf("add needs a numeric value, got %q", spec.Value)
		}
		s.Add = true
	default:
		return nil, fmt.Errorf("unknown set_variable operator %q", spec.Operator)
	}
	return s, nil
}

func (s *SetVariable) Execute(env *action.Env) action.Poll {
	if env.Vars == nil {
		env.Logger.Warn().Str("variable", s.Variable).Msg("variable store not available, set skipped")
		return action.Done()
	}

	value := s.Value
	if s.Add {
		sum, err := add(env.Vars, s.Variable, s.Value)
		if err != nil {
			env.Logger.Warn().Err(err).Str("variable", s.Variable).Msg("add skipped")
			return action.Done()
		}
		value = sum
	}

	if err := env.Vars.Set(s.Variable, value); err != nil {
		env.Logger.Warn().Err(err).Str("variable", s.Variable).Msg("set skipped")
	}
	return action.Done()
}

func add(store *variables.Store, name string, delta any) (any, error) {
	current, err := store.Get(name)
	if errors.Is(err, variables.ErrVariableNotFound) {
		current = 0
	} else if err != nil {
		return nil, err
	}

	a, ok := number(current)
	if !ok {
		return nil, fmt.Errorf("variable %q is %T, not a number", name, current)
	}
	b, _ := number(delta)

	ai, aInt := current.(int)
	bi, bInt := delta.(int)
	if aInt && bInt {
		return ai + bi, nil
	}
	return a + b, nil
}

// CheckVariable compares a global variable against a constant and branches.
type CheckVariable struct {
	action.Base
	Variable string
	Operator string
	Value    any
	Branch   action.Branch

	result bool
}

var comparisonOperators = map[string]struct{}{
	"==": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {},
}

func newCheckVariable(spec sequences.ActionSpec) (action.Action, error) {
	base, err := spec.Base()
	if err != nil {
		return nil, err
	}
	if spec.Variable == "" {
		return nil, fmt.Errorf("variable name is required")
	}
	op := spec.Operator
	if op == "" {
		op = "=="
	}
	if _, ok := comparisonOperators[op]; !ok {
		return nil, fmt.Errorf("unknown comparison operator %q", spec.Operator)
	}
	branch, err := spec.Branch()
	if err != nil {
		return nil, err
	}
	return &CheckVariable{
		Base:     base,
		Variable: spec.Variable,
		Operator: op,
		Value:    variables.Parse(spec.Value),
		Branch:   branch,
	}, nil
}

func (c *CheckVariable) Execute(env *action.Env) action.Poll {
	c.result = false
	if env.Vars == nil {
		env.Logger.Warn().Str("variable", c.Variable).Msg("variable store not available, check is false")
		return action.Done()
	}

	current, err := env.Vars.Get(c.Variable)
	if err != nil {
		env.Logger.Debug().Str("variable", c.Variable).Msg("variable not set, check is false")
		return action.Done()
	}

	result, err := compare(current, c.Operator, c.Value)
	if err != nil {
		env.Logger.Warn().Err(err).Str("variable", c.Variable).Msg("comparison failed, check is false")
		return action.Done()
	}
	c.result = result
	return action.Done()
}

func (c *CheckVariable) Resolve(env *action.Env, at action.Location) action.Next {
	return c.Branch.Resolve(env, at, c.result)
}

func (c *CheckVariable) Outcomes() []action.Outcome {
	return c.Branch.Outcomes()
}

// Result is the outcome of the last Execute.
func (c *CheckVariable) Result() bool { return c.result }

func compare(left any, op string, right any) (bool, error) {
	if a, ok := number(left); ok {
		b, ok := number(right)
		if !ok {
			return false, fmt.Errorf("cannot compare number with %T", right)
		}
		return ordered(a, b, op)
	}

	switch l := left.(type) {
	case bool:
		r, ok := right.(bool)
		if !ok {
			return false, fmt.Errorf("cannot compare bool with %T", right)
		}
		switch op {
		case "==":
			return l == r, nil
		case "!=":
			return l != r, nil
		}
		return false, fmt.Errorf("operator %s is not defined for bool", op)
	case string:
		r, ok := right.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare string with %T", right)
		}
		return ordered(l, r, op)
	}
	return false, fmt.Errorf("unsupported value type %T", left)
}

func ordered[T int | float64 | string](a, b T, op string) (bool, error) {
	switch op {
	case "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
