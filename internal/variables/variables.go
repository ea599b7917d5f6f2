// Package variables provides the global variable store read and written by instructions.
package variables

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Store errors.
var (
	ErrVariableNotFound = errors.New("variable not found")
	ErrUnsupportedType  = errors.New("unsupported variable type")
)

// Store holds named values. Supported types are int, float64, bool and string.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

// Set assigns a value. Integer kinds are normalized to int.
func (s *Store) Set(name string, value any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("variable name is required")
	}
	normalized, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}

	s.mu.Lock()
	s.values[name] = normalized
	s.mu.Unlock()
	return nil
}

// Get returns a value.
func (s *Store) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, name)
	}
	return value, nil
}

// Names returns variable names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies every value.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for name, value := range s.values {
		out[name] = value
	}
	return out
}

// Restore replaces the store contents with snapshot.
func (s *Store) Restore(snapshot map[string]any) error {
	values := make(map[string]any, len(snapshot))
	for name, value := range snapshot {
		normalized, err := Normalize(value)
		if err != nil {
			return fmt.Errorf("restore %q: %w", name, err)
		}
		values[name] = normalized
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// Normalize converts supported Go values to int, float64, bool or string.
// Whole float64 values (as decoded from JSON) become int.
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float32:
		return normalizeFloat(float64(v)), nil
	case float64:
		return normalizeFloat(v), nil
	case bool, string:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
}

func normalizeFloat(f float64) any {
	if f == float64(int(f)) {
		return int(f)
	}
	return f
}

// Parse interprets text as an int, float, bool or string, in that order.
func Parse(text string) any {
	trimmed := strings.TrimSpace(text)
	if i, err := strconv.Atoi(trimmed); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return normalizeFloat(f)
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	return text
}
