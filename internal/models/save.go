package models

import (
	"strings"
	"time"
)

// SaveKind distinguishes autosaves from player saves.
type SaveKind string

const (
	SaveKindAuto   SaveKind = "auto"
	SaveKindManual SaveKind = "manual"
)

// Save is a snapshot of the engine state that survives restarts.
type Save struct {
	ID string `json:"id"`

	Kind SaveKind `json:"kind"`

	// Label is a human description, such as the sequence that triggered it.
	Label string `json:"label,omitempty"`

	// Mode is the global mode when the snapshot was taken.
	Mode string `json:"mode"`

	// Variables holds the global variable store.
	Variables map[string]any `json:"variables"`

	// Active lists the sequences that were running.
	Active []string `json:"active,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the save is valid.
func (s *Save) Validate() error {
	validation := &ValidationErrors{}
	switch s.Kind {
	case SaveKindAuto, SaveKindManual:
	case "":
		validation.AddMessage("kind", "save kind is required")
	default:
		validation.AddMessage("kind", "unknown save kind "+string(s.Kind))
	}
	if strings.TrimSpace(s.Mode) == "" {
		validation.AddMessage("mode", "mode is required")
	}
	return validation.Err()
}
