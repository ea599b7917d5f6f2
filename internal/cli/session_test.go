package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/cutscene/internal/config"
	"github.com/opencode-ai/cutscene/internal/db"
	"github.com/opencode-ai/cutscene/internal/dialogue"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/models"
	"github.com/opencode-ai/cutscene/internal/sequences"
)

func testCatalog(t *testing.T, extra ...string) *sequences.Catalog {
	t.Helper()
	seqs, err := sequences.LoadBuiltinSequences()
	require.NoError(t, err)
	for _, data := range extra {
		seq, err := sequences.ParseSequence([]byte(data))
		require.NoError(t, err)
		seqs = append(seqs, seq)
	}
	return sequences.NewCatalog(seqs)
}

func testDatabase(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = database.MigrateUp(context.Background())
	require.NoError(t, err)
	return database
}

func fastConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Engine.TickInterval = 5 * time.Millisecond
	return cfg
}

func startSession(t *testing.T, catalog *sequences.Catalog, database *db.DB, out *bytes.Buffer, vars map[string]any) *session {
	t.Helper()
	sess, err := newSession(context.Background(), sessionOptions{
		Config:  fastConfig(),
		Catalog: catalog,
		Out:     out,
		DB:      database,
		Vars:    vars,
		Speed:   100,
	})
	require.NoError(t, err)
	t.Cleanup(sess.Close)
	return sess
}

func play(t *testing.T, sess *session, name string) {
	t.Helper()
	var playErr error
	require.NoError(t, sess.call(context.Background(), func() { playErr = sess.scene.Play(name) }))
	require.NoError(t, playErr)
}

func TestDriveIntroWithChoice(t *testing.T) {
	database := testDatabase(t)
	out := &bytes.Buffer{}
	sess := startSession(t, testCatalog(t), database, out, nil)
	play(t, sess, "intro")

	result, err := drive(context.Background(), sess, driveOptions{Choices: []int{1}, MaxDuration: time.Hour})
	require.NoError(t, err)
	require.Equal(t, []int{1}, result.Choices)
	require.False(t, result.TimedOut)
	require.Empty(t, result.Abandoned)
	require.GreaterOrEqual(t, result.GameTime, 4*time.Second)

	var gold any
	var mode gamestate.Mode
	require.NoError(t, sess.call(context.Background(), func() {
		gold, _ = sess.scene.Vars().Get("gold")
		mode = sess.scene.Mode().Current()
	}))
	require.Equal(t, 2, gold)
	require.Equal(t, gamestate.Normal, mode)
	require.Contains(t, out.String(), "Guard: Halt, traveller.")
	require.Contains(t, out.String(), "You have 2 gold left.")

	save, err := db.NewSaveRepository(database).Latest(context.Background(), models.SaveKindAuto)
	require.NoError(t, err)
	require.EqualValues(t, 2, save.Variables["gold"])

	sess.Close()
	started, err := db.NewEventRepository(database).Count(context.Background(), models.EventTypeSequenceStarted)
	require.NoError(t, err)
	require.GreaterOrEqual(t, started, 2)
}

func TestCloseKeepsFinalEvents(t *testing.T) {
	database := testDatabase(t)
	sess := startSession(t, testCatalog(t), database, &bytes.Buffer{}, nil)
	play(t, sess, "merchant-buy")

	_, err := drive(context.Background(), sess, driveOptions{MaxDuration: time.Hour})
	require.NoError(t, err)
	sess.Close()

	logged, err := db.NewEventRepository(database).ListByEntity(context.Background(), models.EntityTypeSequence, "merchant-buy", 0)
	require.NoError(t, err)
	var types []models.EventType
	for _, ev := range logged {
		types = append(types, ev.Type)
	}
	require.Contains(t, types, models.EventTypeSequenceStarted)
	require.Contains(t, types, models.EventTypeSequenceEnded)
	require.Contains(t, types, models.EventTypeAutosaveWritten)
}

func TestDriveClosesMenuWithoutChoices(t *testing.T) {
	sess := startSession(t, testCatalog(t), nil, &bytes.Buffer{}, map[string]any{"gold": 3})
	play(t, sess, "intro")

	result, err := drive(context.Background(), sess, driveOptions{MaxDuration: time.Hour})
	require.NoError(t, err)
	require.Equal(t, []string{"merchant"}, result.Abandoned)
	require.Empty(t, result.Choices)

	var gold any
	require.NoError(t, sess.call(context.Background(), func() { gold, _ = sess.scene.Vars().Get("gold") }))
	require.Equal(t, 3, gold)
}

func TestDriveStopsAtMaxDuration(t *testing.T) {
	catalog := testCatalog(t, "name: long-wait\nactions: [{kind: pause, duration: 1h}]\n")
	sess := startSession(t, catalog, nil, &bytes.Buffer{}, nil)
	play(t, sess, "long-wait")

	result, err := drive(context.Background(), sess, driveOptions{MaxDuration: 2 * time.Second})
	require.NoError(t, err)
	require.True(t, result.TimedOut)
	require.GreaterOrEqual(t, result.GameTime, 2*time.Second)
}

func TestDriveHonoursContext(t *testing.T) {
	catalog := testCatalog(t, "name: long-wait\nactions: [{kind: pause, duration: 1h}]\n")
	sess := startSession(t, catalog, nil, &bytes.Buffer{}, nil)
	play(t, sess, "long-wait")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := drive(ctx, sess, driveOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNextChoicePrompts(t *testing.T) {
	conv := dialogue.New("m", "Pick one", []dialogue.Option{{Text: "a"}, {Text: "b"}}, nil, nil, nil)
	out := &bytes.Buffer{}

	pending := []int{}
	choice, ok, err := nextChoice(conv, &pending, bufioReader("x\n5\n2\n"), out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, choice)
	require.Equal(t, 2, strings.Count(out.String(), "Enter a number between 1 and 2."))

	_, ok, err = nextChoice(conv, &pending, bufioReader(""), out)
	require.NoError(t, err)
	require.False(t, ok, "EOF closes the menu")

	pending = []int{1, 2}
	choice, ok, err = nextChoice(conv, &pending, nil, out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, choice)
	require.Equal(t, []int{2}, pending)
}

func TestNewSessionRejectsBadVariable(t *testing.T) {
	_, err := newSession(context.Background(), sessionOptions{
		Config:  fastConfig(),
		Catalog: testCatalog(t),
		Vars:    map[string]any{"bad": []string{"x"}},
	})
	require.Error(t, err)
}

func bufioReader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}
