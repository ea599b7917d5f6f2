package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opencode-ai/cutscene/internal/models"
)

// Save repository errors.
var (
	ErrSaveNotFound = errors.New("save not found")
	ErrInvalidSave  = errors.New("invalid save")
)

// SaveRepository handles save persistence.
type SaveRepository struct {
	db     *DB
	events *EventRepository
}

// NewSaveRepository creates a new SaveRepository.
func NewSaveRepository(db *DB) *SaveRepository {
	return &SaveRepository{db: db, events: NewEventRepository(db)}
}

// Create inserts a save.
func (r *SaveRepository) Create(ctx context.Context, save *models.Save) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, save)
	})
}

// CreateWithEvent inserts a save and its log entry atomically. The event's
// entity id defaults to the new save id.
func (r *SaveRepository) CreateWithEvent(ctx context.Context, save *models.Save, event *models.Event) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := r.insert(ctx, tx, save); err != nil {
			return err
		}
		if event == nil {
			return nil
		}
		if event.EntityID == "" {
			event.EntityID = save.ID
		}
		return r.events.CreateWithTx(ctx, tx, event)
	})
}

func (r *SaveRepository) insert(ctx context.Context, tx *sql.Tx, save *models.Save) error {
	if save == nil {
		return ErrInvalidSave
	}
	if err := save.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}

	if save.ID == "" {
		save.ID = uuid.New().String()
	}
	if save.CreatedAt.IsZero() {
		save.CreatedAt = time.Now().UTC()
	}
	if save.Variables == nil {
		save.Variables = map[string]any{}
	}

	varsJSON, err := json.Marshal(save.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}
	var activeJSON *string
	if len(save.Active) > 0 {
		data, err := json.Marshal(save.Active)
		if err != nil {
			return fmt.Errorf("failed to marshal active sequences: %w", err)
		}
		s := string(data)
		activeJSON = &s
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO saves (id, kind, label, mode, variables_json, active_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		save.ID,
		string(save.Kind),
		save.Label,
		save.Mode,
		string(varsJSON),
		activeJSON,
		save.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert save: %w", err)
	}
	return nil
}

const saveColumns = `id, kind, label, mode, variables_json, active_json, created_at`

// Get retrieves a save by ID.
func (r *SaveRepository) Get(ctx context.Context, id string) (*models.Save, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+saveColumns+` FROM saves WHERE id = ?`, id)
	return r.scanSave(row)
}

// Latest returns the newest save, optionally restricted to kind.
func (r *SaveRepository) Latest(ctx context.Context, kind models.SaveKind) (*models.Save, error) {
	query := `SELECT ` + saveColumns + ` FROM saves`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.scanSave(r.db.QueryRowContext(ctx, query, args...))
}

// List returns saves newest first.
func (r *SaveRepository) List(ctx context.Context, limit int) ([]*models.Save, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+saveColumns+` FROM saves
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query saves: %w", err)
	}
	defer rows.Close()

	var saves []*models.Save
	for rows.Next() {
		save, err := r.scanSave(rows)
		if err != nil {
			return nil, err
		}
		saves = append(saves, save)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saves: %w", err)
	}
	return saves, nil
}

// Prune keeps the newest keep saves of kind and deletes the rest.
func (r *SaveRepository) Prune(ctx context.Context, kind models.SaveKind, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM saves WHERE kind = ? AND id NOT IN (
			SELECT id FROM saves WHERE kind = ? ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, string(kind), string(kind), keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune saves: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return count, nil
}

func (r *SaveRepository) scanSave(row rowScanner) (*models.Save, error) {
	var save models.Save
	var kind, varsJSON, createdAt string
	var activeJSON sql.NullString

	err := row.Scan(
		&save.ID,
		&kind,
		&save.Label,
		&save.Mode,
		&varsJSON,
		&activeJSON,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaveNotFound
		}
		return nil, fmt.Errorf("failed to scan save: %w", err)
	}

	save.Kind = models.SaveKind(kind)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		save.CreatedAt = t
	}
	if err := json.Unmarshal([]byte(varsJSON), &save.Variables); err != nil {
		return nil, fmt.Errorf("failed to parse save variables: %w", err)
	}
	if activeJSON.Valid {
		if err := json.Unmarshal([]byte(activeJSON.String), &save.Active); err != nil {
			r.db.logger.Warn().Err(err).Str("save_id", save.ID).Msg("failed to parse active sequences")
		}
	}

	return &save, nil
}
