package variables

import (
	"errors"
	"testing"
)

func TestSetAndGet(t *testing.T) {
	s := NewStore()
	if err := s.Set("visits", int64(3)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("visits")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected int 3, got %#v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("nope"); !errors.Is(err, ErrVariableNotFound) {
		t.Fatalf("expected ErrVariableNotFound, got %v", err)
	}
}

func TestSetRejectsUnsupported(t *testing.T) {
	s := NewStore()
	if err := s.Set("bad", []string{"x"}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if err := s.Set("  ", 1); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := NewStore()
	_ = s.Set("door_open", true)
	_ = s.Set("gold", 12)

	snap := s.Snapshot()
	_ = s.Set("gold", 0)

	// JSON round trips deliver float64 for numbers.
	snap["gold"] = float64(12)
	if err := s.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, _ := s.Get("gold")
	if got != 12 {
		t.Fatalf("expected gold 12, got %#v", got)
	}
	if names := s.Names(); len(names) != 2 || names[0] != "door_open" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestParse(t *testing.T) {
	cases := map[string]any{
		"1":     1,
		"2.5":   2.5,
		"true":  true,
		"False": false,
		"hello": "hello",
	}
	for in, want := range cases {
		if got := Parse(in); got != want {
			t.Errorf("Parse(%q) = %#v, want %#v", in, got, want)
		}
	}
}
