package manager

import (
	"time"

	"github.com/opencode-ai/cutscene/internal/actionlist"
	"github.com/opencode-ai/cutscene/internal/gamestate"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventSequenceStarted     EventType = "sequence.started"
	EventSequenceEnded       EventType = "sequence.ended"
	EventSequenceKilled      EventType = "sequence.killed"
	EventConversationStarted EventType = "conversation.handoff"
	EventAutosaveWritten     EventType = "autosave.written"
	EventAutosaveSkipped     EventType = "autosave.skipped"
	EventAutosaveFailed      EventType = "autosave.failed"
)

// Event is emitted on every registry change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Sequence  string
	Kind      actionlist.Kind
	// Mode is the global mode after the change was applied.
	Mode   gamestate.Mode
	Detail string
}
