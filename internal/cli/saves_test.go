package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/cutscene/internal/db"
	"github.com/opencode-ai/cutscene/internal/models"
)

func TestParseSaveKind(t *testing.T) {
	kind, err := parseSaveKind(" Auto ", false)
	require.NoError(t, err)
	require.Equal(t, models.SaveKindAuto, kind)

	kind, err = parseSaveKind("", true)
	require.NoError(t, err)
	require.Empty(t, kind)

	_, err = parseSaveKind("", false)
	require.Error(t, err)
	_, err = parseSaveKind("quick", true)
	require.Error(t, err)
}

func TestFindSave(t *testing.T) {
	ctx := context.Background()
	repo := db.NewSaveRepository(testDatabase(t))

	first := &models.Save{Kind: models.SaveKindManual, Mode: "normal", Variables: map[string]any{"gold": 1}, CreatedAt: time.Now().Add(-time.Minute)}
	second := &models.Save{Kind: models.SaveKindAuto, Mode: "normal", Variables: map[string]any{"gold": 2}, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	got, err := findSave(ctx, repo, first.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)

	got, err = findSave(ctx, repo, "latest")
	require.NoError(t, err)
	require.Equal(t, second.ID, got.ID)

	if first.ID[:8] != second.ID[:8] {
		got, err = findSave(ctx, repo, shortID(second.ID))
		require.NoError(t, err)
		require.Equal(t, second.ID, got.ID)
	}

	_, err = findSave(ctx, repo, "zzzz")
	require.True(t, errors.Is(err, db.ErrSaveNotFound), "got %v", err)

	_, err = findSave(ctx, repo, " ")
	require.Error(t, err)
}

func TestShortID(t *testing.T) {
	require.Equal(t, "abc", shortID("abc"))
	require.Equal(t, "12345678", shortID("1234567890"))
}
