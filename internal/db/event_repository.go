package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opencode-ai/cutscene/internal/models"
)

// Event repository errors.
var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
)

const (
	eventColumns      = `id, timestamp, type, entity_type, entity_id, payload_json, metadata_json`
	defaultEventLimit = 100
)

// EventRepository stores the append-only engine log.
type EventRepository struct {
	db *DB
}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventQuery filters the log. Nil fields match everything.
type EventQuery struct {
	Type       *models.EventType
	EntityType *models.EntityType
	EntityID   *string
	Since      *time.Time // inclusive
	Until      *time.Time // exclusive
	Cursor     string     // id of the last event of the previous page
	Limit      int

	// Newest returns the most recent events first.
	Newest bool
}

// EventPage is one page of a query. NextCursor is empty on the last page.
type EventPage struct {
	Events     []*models.Event
	NextCursor string
}

// Append records an event.
func (r *EventRepository) Append(ctx context.Context, event *models.Event) error {
	return r.Create(ctx, event)
}

// Create records an event, assigning its id and timestamp when unset.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.insert(ctx, r.db, event)
}

// CreateWithTx records an event inside tx.
func (r *EventRepository) CreateWithTx(ctx context.Context, tx *sql.Tx, event *models.Event) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	return r.insert(ctx, tx, event)
}

func (r *EventRepository) insert(ctx context.Context, exec execer, event *models.Event) error {
	if event == nil {
		return ErrInvalidEvent
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload := nullableText(string(event.Payload))
	var metadata sql.NullString
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = nullableText(string(data))
	}

	_, err := exec.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.Format(timeFormat),
		string(event.Type),
		string(event.EntityType),
		event.EntityID,
		payload,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.Type, err)
	}
	return nil
}

// Get returns one event.
func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	return r.scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

// Query returns a page of events in time order, oldest first unless
// q.Newest is set.
func (r *EventRepository) Query(ctx context.Context, q EventQuery) (*EventPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	var where []string
	var args []any
	filter := func(clause string, arg ...any) {
		where = append(where, clause)
		args = append(args, arg...)
	}

	if q.Type != nil {
		filter(`type = ?`, string(*q.Type))
	}
	if q.EntityType != nil {
		filter(`entity_type = ?`, string(*q.EntityType))
	}
	if q.EntityID != nil {
		filter(`entity_id = ?`, *q.EntityID)
	}
	if q.Since != nil {
		filter(`timestamp >= ?`, q.Since.UTC().Format(timeFormat))
	}
	if q.Until != nil {
		filter(`timestamp < ?`, q.Until.UTC().Format(timeFormat))
	}

	order, after := `ASC`, `>`
	if q.Newest {
		order, after = `DESC`, `<`
	}
	if q.Cursor != "" {
		filter(`(timestamp, id) `+after+` (SELECT timestamp, id FROM events WHERE id = ?)`, q.Cursor)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += fmt.Sprintf(` ORDER BY timestamp %s, id %s LIMIT ?`, order, order)
	// One extra row tells us whether another page exists.
	args = append(args, limit+1)

	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	page := &EventPage{Events: events}
	if len(events) > limit {
		page.Events = events[:limit]
		page.NextCursor = events[limit-1].ID
	}
	return page, nil
}

// Count returns how many events of eventType were recorded.
func (r *EventRepository) Count(ctx context.Context, eventType models.EventType) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE type = ?`, string(eventType)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s events: %w", eventType, err)
	}
	return count, nil
}

// ListByEntity returns the history of one entity, oldest first.
func (r *EventRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string, limit int) ([]*models.Event, error) {
	page, err := r.Query(ctx, EventQuery{EntityType: &entityType, EntityID: &entityID, Limit: limit})
	if err != nil {
		return nil, err
	}
	return page.Events, nil
}

// DeleteBefore removes events older than before and returns how many went.
func (r *EventRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`, before.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return result.RowsAffected()
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EventRepository) scanEvent(row rowScanner) (*models.Event, error) {
	var (
		event                  models.Event
		stamp, typ, entityType string
		payload, metadata      sql.NullString
	)
	if err := row.Scan(&event.ID, &stamp, &typ, &entityType, &event.EntityID, &payload, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}

	event.Type = models.EventType(typ)
	event.EntityType = models.EntityType(entityType)
	if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
		event.Timestamp = t
	}
	if payload.Valid {
		event.Payload = json.RawMessage(payload.String)
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
			r.db.logger.Warn().Err(err).Str("event_id", event.ID).Msg("unreadable event metadata")
		}
	}
	return &event, nil
}

func nullableText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
