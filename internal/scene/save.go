package scene

import (
	"context"
	"fmt"

	"github.com/opencode-ai/cutscene/internal/models"
)

// Snapshot captures the mode, variables and running sequence names.
func (s *Scene) Snapshot(kind models.SaveKind, label string) *models.Save {
	active := make([]string, 0)
	for _, st := range s.manager.Active() {
		active = append(active, st.Name)
	}
	return &models.Save{
		Kind:      kind,
		Label:     label,
		Mode:      s.mode.Current().String(),
		Variables: s.vars.Snapshot(),
		Active:    active,
	}
}

// Autosave writes an automatic snapshot. The manager calls it after a
// sequence marked autosave_after ends and nothing blocking is running.
func (s *Scene) Autosave(ctx context.Context) error {
	return s.Save(ctx, models.SaveKindAuto, "autosave")
}

// Save writes a snapshot of kind.
func (s *Scene) Save(ctx context.Context, kind models.SaveKind, label string) error {
	if s.saves == nil {
		return ErrNoSaveStore
	}
	save := s.Snapshot(kind, label)
	if err := s.saves.Create(ctx, save); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	s.logger.Info().Str("save_id", save.ID).Str("kind", string(kind)).Msg("save written")
	return nil
}

// Load kills every running sequence and restores the saved variables.
// Running sequences are not resumed.
func (s *Scene) Load(save *models.Save) error {
	if save == nil {
		return fmt.Errorf("save is required")
	}
	s.Reset()
	if err := s.vars.Restore(save.Variables); err != nil {
		return fmt.Errorf("restore variables: %w", err)
	}
	s.logger.Info().Str("save_id", save.ID).Int("variables", len(save.Variables)).Msg("save loaded")
	return nil
}
