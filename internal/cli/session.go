package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/opencode-ai/cutscene/internal/clock"
	"github.com/opencode-ai/cutscene/internal/config"
	"github.com/opencode-ai/cutscene/internal/db"
	"github.com/opencode-ai/cutscene/internal/events"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/opencode-ai/cutscene/internal/observe"
	"github.com/opencode-ai/cutscene/internal/scene"
	"github.com/opencode-ai/cutscene/internal/scheduler"
	"github.com/opencode-ai/cutscene/internal/sequences"
)

// sessionOptions configures one play session.
type sessionOptions struct {
	Config  *config.Config
	Catalog *sequences.Catalog
	Out     io.Writer

	// DB receives autosaves and the event log. Nil plays without persistence.
	DB *db.DB

	Vars  map[string]any
	Speed float64
}

// session wires a scene to its scheduler and, optionally, the database.
type session struct {
	scene *scene.Scene
	sched *scheduler.Scheduler
	clock *clock.Manual

	events     *db.EventRepository
	cancel     context.CancelFunc
	stopEvents context.CancelFunc
	logging    sync.WaitGroup
	closeOnce  sync.Once
}

func newSession(ctx context.Context, opts sessionOptions) (*session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx, cancel := context.WithCancel(ctx)

	gameClock := clock.NewManual(time.Now())
	sceneCfg := scene.Config{
		Catalog:         opts.Catalog,
		Clock:           gameClock,
		Out:             opts.Out,
		Metrics:         observe.DefaultMetrics(),
		Autosave:        cfg.Engine.Autosave,
		MaxStepsPerTick: cfg.Engine.MaxStepsPerTick,
		Context:         ctx,
	}
	var eventRepo *db.EventRepository
	if opts.DB != nil {
		sceneCfg.Saves = db.NewSaveRepository(opts.DB)
		eventRepo = db.NewEventRepository(opts.DB)
	}

	sc, err := scene.New(sceneCfg)
	if err != nil {
		cancel()
		return nil, err
	}
	for name, value := range opts.Vars {
		if err := sc.Vars().Set(name, value); err != nil {
			cancel()
			return nil, fmt.Errorf("set %s: %w", name, err)
		}
	}

	speed := opts.Speed
	if speed <= 0 {
		speed = cfg.Engine.TimeScale
	}
	sched := scheduler.New(scheduler.Config{
		TickInterval: cfg.Engine.TickInterval,
		TimeScale:    speed,
	}, gameClock, sc.Mode(), sc, scheduler.WithMetrics(observe.DefaultMetrics()))

	s := &session{scene: sc, sched: sched, clock: gameClock, events: eventRepo, cancel: cancel}

	if eventRepo != nil {
		logger := logging.Component("cli")
		writeCtx := context.WithoutCancel(ctx)
		sc.Mode().Subscribe(func(change gamestate.Change) {
			if err := events.LogModeChanged(writeCtx, eventRepo, change); err != nil {
				logger.Warn().Err(err).Msg("failed to record mode change")
			}
		})
		// The writer has its own stop signal so it outlives the scene
		// until Close has stopped the loop.
		consumeCtx, stopEvents := context.WithCancel(writeCtx)
		s.stopEvents = stopEvents
		s.logging.Add(1)
		go func() {
			defer s.logging.Done()
			events.Consume(consumeCtx, eventRepo, sc.Manager().Events())
		}()
	}

	if err := sched.Start(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// call runs fn on the scheduler goroutine.
func (s *session) call(ctx context.Context, fn func()) error {
	return s.sched.Call(ctx, fn)
}

// Close stops the loop and then the event writer, and flushes whatever the
// writer had not picked up yet. It is safe to call more than once.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		_ = s.sched.Stop()
		if s.stopEvents != nil {
			s.stopEvents()
		}
		s.logging.Wait()
		if s.events != nil {
			events.Drain(context.Background(), s.events, s.scene.Manager().Events())
		}
		s.cancel()
	})
}
