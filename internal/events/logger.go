// Package events records engine lifecycle changes into the event log.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/opencode-ai/cutscene/internal/manager"
	"github.com/opencode-ai/cutscene/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// LogSequenceEvent converts a manager event into a log entry.
func LogSequenceEvent(ctx context.Context, repo Repository, ev manager.Event) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if ev.Sequence == "" {
		return fmt.Errorf("sequence name is required")
	}

	event := &models.Event{
		Timestamp:  ev.Timestamp,
		EntityType: models.EntityTypeSequence,
		EntityID:   ev.Sequence,
	}

	var payload any
	switch ev.Type {
	case manager.EventSequenceStarted:
		event.Type = models.EventTypeSequenceStarted
		payload = models.SequencePayload{Kind: ev.Kind.String(), Mode: ev.Mode.String()}
	case manager.EventSequenceEnded:
		event.Type = models.EventTypeSequenceEnded
		payload = models.SequencePayload{Kind: ev.Kind.String(), Mode: ev.Mode.String()}
	case manager.EventSequenceKilled:
		event.Type = models.EventTypeSequenceKilled
		payload = models.SequencePayload{Kind: ev.Kind.String(), Mode: ev.Mode.String()}
	case manager.EventConversationStarted:
		event.Type = models.EventTypeConversationHandoff
		event.EntityType = models.EntityTypeConversation
		event.EntityID = ev.Detail
		payload = models.ConversationHandoffPayload{Sequence: ev.Sequence, Conversation: ev.Detail}
	case manager.EventAutosaveWritten:
		event.Type = models.EventTypeAutosaveWritten
		payload = models.AutosavePayload{Sequence: ev.Sequence}
	case manager.EventAutosaveSkipped:
		event.Type = models.EventTypeAutosaveSkipped
		payload = models.AutosavePayload{Sequence: ev.Sequence, Reason: ev.Detail}
	case manager.EventAutosaveFailed:
		event.Type = models.EventTypeAutosaveFailed
		payload = models.AutosavePayload{Sequence: ev.Sequence, Reason: ev.Detail}
	default:
		return fmt.Errorf("unknown manager event %q", ev.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", ev.Type, err)
	}
	event.Payload = data

	return repo.Create(ctx, event)
}

// LogModeChanged records a global mode transition.
func LogModeChanged(ctx context.Context, repo Repository, change gamestate.Change) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}

	payload, err := json.Marshal(models.ModeChangedPayload{
		From: change.Previous.String(),
		To:   change.Current.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mode payload: %w", err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       models.EventTypeModeChanged,
		EntityType: models.EntityTypeGame,
		EntityID:   "mode",
		Payload:    payload,
	})
}

// Consume writes every event from ch until it closes or ctx is done.
// Cancelling ctx stops the loop but never aborts a write already under way.
// Write failures are logged and do not stop the loop.
func Consume(ctx context.Context, repo Repository, ch <-chan manager.Event) {
	logger := logging.Component("events")
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := LogSequenceEvent(writeCtx, repo, ev); err != nil {
				logger.Warn().Err(err).Str("type", string(ev.Type)).Msg("failed to record event")
			}
		}
	}
}

// Drain writes every event currently buffered in ch without blocking.
func Drain(ctx context.Context, repo Repository, ch <-chan manager.Event) int {
	logger := logging.Component("events")
	written := 0
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return written
			}
			if err := LogSequenceEvent(ctx, repo, ev); err != nil {
				logger.Warn().Err(err).Str("type", string(ev.Type)).Msg("failed to record event")
				continue
			}
			written++
		default:
			return written
		}
	}
}
