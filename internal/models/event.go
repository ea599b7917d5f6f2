package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes events in the engine log.
type EventType string

const (
	// Sequence events
	EventTypeSequenceStarted EventType = "sequence.started"
	EventTypeSequenceEnded   EventType = "sequence.ended"
	EventTypeSequenceKilled  EventType = "sequence.killed"

	// Dialogue events
	EventTypeConversationHandoff EventType = "conversation.handoff"

	// Mode events
	EventTypeModeChanged EventType = "mode.changed"

	// Save events
	EventTypeAutosaveWritten EventType = "autosave.written"
	EventTypeAutosaveSkipped EventType = "autosave.skipped"
	EventTypeAutosaveFailed  EventType = "autosave.failed"

	// System events
	EventTypeError   EventType = "error"
	EventTypeWarning EventType = "warning"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeSequence     EntityType = "sequence"
	EntityTypeConversation EntityType = "conversation"
	EntityTypeGame         EntityType = "game"
	EntityTypeSave         EntityType = "save"
	EntityTypeSystem       EntityType = "system"
)

// Event represents an append-only log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity, usually a sequence name.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		validation.AddMessage("entity_type", "entity_type is required")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		validation.AddMessage("entity_id", "entity_id is required")
	}
	return validation.Err()
}

// SequencePayload is the payload for sequence.* events.
type SequencePayload struct {
	Kind string `json:"kind"`
	Mode string `json:"mode"`
}

// ConversationHandoffPayload is the payload for conversation.handoff events.
type ConversationHandoffPayload struct {
	Sequence     string `json:"sequence"`
	Conversation string `json:"conversation"`
}

// ModeChangedPayload is the payload for mode.changed events.
type ModeChangedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AutosavePayload is the payload for autosave.* events.
type AutosavePayload struct {
	Sequence string `json:"sequence"`
	Reason   string `json:"reason,omitempty"`
}
