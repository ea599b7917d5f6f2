package scene

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opencode-ai/cutscene/internal/clock"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/models"
	"github.com/opencode-ai/cutscene/internal/sequences"
	"github.com/stretchr/testify/require"
)

type memorySaves struct {
	mu    sync.Mutex
	saves []*models.Save
	err   error
}

func (m *memorySaves) Create(_ context.Context, save *models.Save) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	save.ID = "save-" + string(rune('a'+len(m.saves)))
	m.saves = append(m.saves, save)
	return nil
}

func (m *memorySaves) all() []*models.Save {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Save(nil), m.saves...)
}

type fixture struct {
	clock *clock.Manual
	out   *bytes.Buffer
	saves *memorySaves
	scene *Scene
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	builtins, err := sequences.LoadBuiltinSequences()
	require.NoError(t, err)

	f := &fixture{
		clock: clock.NewManual(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		out:   &bytes.Buffer{},
		saves: &memorySaves{},
	}
	f.scene, err = New(Config{
		Catalog:  sequences.NewCatalog(builtins),
		Clock:    f.clock,
		Out:      f.out,
		Saves:    f.saves,
		Autosave: true,
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.scene.Update(f.clock.Advance(d))
}

func TestNewRequiresCatalog(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestNewSeedsVariableDefaults(t *testing.T) {
	f := newFixture(t)

	player, err := f.scene.Vars().Get("player")
	require.NoError(t, err)
	require.Equal(t, "traveller", player)

	gold, err := f.scene.Vars().Get("gold")
	require.NoError(t, err)
	require.Equal(t, 12, gold)
}

func TestIntroHandsOffToMerchant(t *testing.T) {
	f := newFixture(t)
	mode := f.scene.Mode()

	require.NoError(t, f.scene.Play("intro"))
	require.Equal(t, gamestate.Cutscene, mode.Current())
	require.Equal(t, "Guard: Halt, traveller. State your business.\n", f.out.String())

	f.advance(1500 * time.Millisecond)
	f.advance(500 * time.Millisecond)
	require.Contains(t, f.out.String(), "Merchant: Care to see my wares?")
	require.Equal(t, gamestate.Cutscene, mode.Current())

	f.advance(time.Second)
	require.Equal(t, gamestate.DialogOptions, mode.Current())
	merchant := f.scene.OpenConversation()
	require.NotNil(t, merchant)
	require.Equal(t, "merchant", merchant.Name())
	require.Contains(t, f.out.String(), "What will it be?")

	require.NoError(t, merchant.Choose(0))
	require.Equal(t, gamestate.Cutscene, mode.Current())
	require.Contains(t, f.out.String(), "Merchant: A fine choice. You have 2 gold left.")

	f.advance(time.Second)
	require.Equal(t, gamestate.Normal, mode.Current())
	require.True(t, f.scene.Idle())

	saves := f.saves.all()
	require.Len(t, saves, 1)
	require.Equal(t, models.SaveKindAuto, saves[0].Kind)
	require.Equal(t, 2, saves[0].Variables["gold"])
	require.Empty(t, saves[0].Active)
}

func TestPoorPlayerIsTurnedAway(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.scene.Vars().Set("gold", 3))

	require.NoError(t, f.scene.Play("merchant-buy"))
	require.Contains(t, f.out.String(), "Come back when your purse is heavier.")
	require.NotContains(t, f.out.String(), "A fine choice")

	gold, _ := f.scene.Vars().Get("gold")
	require.Equal(t, 3, gold)
}

func TestChapterEndSkipsAutosaveWhileCreditsRoll(t *testing.T) {
	f := newFixture(t)
	mode := f.scene.Mode()

	require.NoError(t, f.scene.Play("chapter-end"))
	require.Contains(t, f.out.String(), "wealthy soul")

	f.advance(time.Second)
	require.Contains(t, f.out.String(), "Credits: A cutscene engine demo")
	require.True(t, f.scene.Manager().AssetRunner().IsRunning())
	require.Equal(t, gamestate.Cutscene, mode.Current())
	require.Empty(t, f.saves.all(), "autosave must not run while the asset blocks")

	f.advance(time.Second)
	require.Contains(t, f.out.String(), "Credits: Thanks for playing")
	f.advance(time.Second)
	require.Equal(t, gamestate.Normal, mode.Current())
}

func TestAssetSequencesRunOnAssetRunner(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.scene.Play("credits"))
	status := f.scene.Manager().Active()
	require.Len(t, status, 1)
	require.True(t, status[0].Asset)
	require.Equal(t, "credits", status[0].Name)
	require.Equal(t, 0, f.scene.Manager().Len())
}

func TestStartUnknownSequence(t *testing.T) {
	f := newFixture(t)
	err := f.scene.Play("missing")
	require.True(t, errors.Is(err, sequences.ErrSequenceNotFound))
}

func TestStopAndReset(t *testing.T) {
	f := newFixture(t)

	require.False(t, f.scene.Stop("intro"))
	require.NoError(t, f.scene.Play("intro"))
	require.True(t, f.scene.Stop("intro"))
	require.Equal(t, gamestate.Normal, f.scene.Mode().Current())
	require.Nil(t, f.scene.OpenConversation(), "a killed list must not hand off")

	require.NoError(t, f.scene.Play("intro"))
	require.NoError(t, f.scene.Play("credits"))
	f.scene.Reset()
	require.True(t, f.scene.Idle())
	require.Equal(t, gamestate.Normal, f.scene.Mode().Current())
}

func TestSaveAndLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scene.Vars().Set("gold", 40))
	require.NoError(t, f.scene.Save(ctx, models.SaveKindManual, "before the gate"))

	saved := f.saves.all()[0]
	require.Equal(t, "before the gate", saved.Label)
	require.Equal(t, "normal", saved.Mode)

	require.NoError(t, f.scene.Vars().Set("gold", 1))
	require.NoError(t, f.scene.Play("intro"))
	require.NoError(t, f.scene.Load(saved))

	gold, _ := f.scene.Vars().Get("gold")
	require.Equal(t, 40, gold)
	require.True(t, f.scene.Idle())

	require.Error(t, f.scene.Load(nil))
}

func TestSaveWithoutStore(t *testing.T) {
	builtins, err := sequences.LoadBuiltinSequences()
	require.NoError(t, err)
	s, err := New(Config{Catalog: sequences.NewCatalog(builtins)})
	require.NoError(t, err)

	err = s.Autosave(context.Background())
	require.True(t, errors.Is(err, ErrNoSaveStore))
}

func TestConversationLookup(t *testing.T) {
	f := newFixture(t)

	c, err := f.scene.Conversation("merchant")
	require.NoError(t, err)
	require.Len(t, c.Options(), 2)

	_, err = f.scene.Conversation("innkeeper")
	require.True(t, errors.Is(err, ErrConversationNotFound))

	names := make([]string, 0)
	for _, c := range f.scene.Conversations() {
		names = append(names, c.Name())
	}
	require.Equal(t, "merchant", strings.Join(names, ","))
}
