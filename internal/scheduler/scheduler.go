// Package scheduler drives the game clock and ticks running sequences on a
// single goroutine.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/opencode-ai/cutscene/internal/clock"
	"github.com/opencode-ai/cutscene/internal/gamestate"
	"github.com/opencode-ai/cutscene/internal/logging"
	"github.com/opencode-ai/cutscene/internal/observe"
	"github.com/rs/zerolog"
)

// Scheduler errors.
var (
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
	ErrSchedulerNotRunning     = errors.New("scheduler not running")
)

// Updater is ticked once per frame with the current game time.
type Updater interface {
	Update(now time.Time)
}

// Config contains scheduler configuration.
type Config struct {
	// TickInterval is the wall time between frames.
	// Default: 50 milliseconds.
	TickInterval time.Duration

	// TimeScale multiplies elapsed wall time before it is added to the
	// game clock. Default: 1.
	TimeScale float64

	// SubmitBuffer bounds queued work. Default: 64.
	SubmitBuffer int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval: 50 * time.Millisecond,
		TimeScale:    1,
		SubmitBuffer: 64,
	}
}

// Stats contains scheduler statistics.
type Stats struct {
	// Running indicates if the frame loop is active.
	Running bool

	// Paused indicates the frame loop is suspended.
	Paused bool

	// StartedAt is when the loop was started.
	StartedAt *time.Time

	// Ticks is the number of frames delivered to the updater.
	Ticks int64

	// FrozenTicks counts frames where the game was Paused and the clock
	// did not advance.
	FrozenTicks int64

	// Submitted is the number of functions run on the loop.
	Submitted int64

	// GameTime is the game clock after the last frame.
	GameTime time.Time

	// LastTickDuration is the wall time the last frame took.
	LastTickDuration time.Duration
}

// Scheduler owns the game clock and every tick of the updater. Work that
// touches sequences from another goroutine goes through Submit or Call.
type Scheduler struct {
	config  Config
	clock   *clock.Manual
	mode    *gamestate.Controller
	target  Updater
	metrics *observe.Metrics
	logger  zerolog.Logger

	// loop guards the updater so Step and the frame loop never overlap.
	loop sync.Mutex

	mu      sync.RWMutex
	running bool
	paused  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	submit  chan func()

	stats   Stats
	statsMu sync.RWMutex
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics records tick durations.
func WithMetrics(metrics *observe.Metrics) Option {
	return func(s *Scheduler) { s.metrics = metrics }
}

// New creates a scheduler that advances gameClock and ticks target. mode may
// be nil, in which case the clock always advances.
func New(config Config, gameClock *clock.Manual, mode *gamestate.Controller, target Updater, opts ...Option) *Scheduler {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultConfig().TickInterval
	}
	if config.TimeScale <= 0 {
		config.TimeScale = DefaultConfig().TimeScale
	}
	if config.SubmitBuffer <= 0 {
		config.SubmitBuffer = DefaultConfig().SubmitBuffer
	}

	s := &Scheduler{
		config: config,
		clock:  gameClock,
		mode:   mode,
		target: target,
		logger: logging.Component("scheduler"),
		submit: make(chan func(), config.SubmitBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Clock returns the game clock.
func (s *Scheduler) Clock() *clock.Manual {
	return s.clock
}

// Start begins the frame loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.paused = false

	now := time.Now().UTC()
	s.statsMu.Lock()
	s.stats.Running = true
	s.stats.Paused = false
	s.stats.StartedAt = &now
	s.statsMu.Unlock()

	s.logger.Info().
		Dur("tick_interval", s.config.TickInterval).
		Float64("time_scale", s.config.TimeScale).
		Msg("scheduler starting")

	s.wg.Add(1)
	go s.runLoop()

	return nil
}

// Stop halts the frame loop and waits for it to exit. Queued work that has
// not run yet is dropped.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}

	s.logger.Info().Msg("scheduler stopping")
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()

	s.statsMu.Lock()
	s.stats.Running = false
	s.statsMu.Unlock()

	s.logger.Info().Msg("scheduler stopped")
	return nil
}

// Pause suspends frames without stopping the loop. Submitted work still runs.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSchedulerNotRunning
	}
	if s.paused {
		return nil
	}

	s.paused = true
	s.statsMu.Lock()
	s.stats.Paused = true
	s.statsMu.Unlock()

	s.logger.Info().Msg("scheduler paused")
	return nil
}

// Resume resumes a paused scheduler.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrSchedulerNotRunning
	}
	if !s.paused {
		return nil
	}

	s.paused = false
	s.statsMu.Lock()
	s.stats.Paused = false
	s.statsMu.Unlock()

	s.logger.Info().Msg("scheduler resumed")
	return nil
}

// Submit queues fn to run on the loop goroutine. It blocks while the queue
// is full.
func (s *Scheduler) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	s.mu.RLock()
	running := s.running
	ctx := s.ctx
	s.mu.RUnlock()

	if !running {
		return ErrSchedulerNotRunning
	}

	select {
	case s.submit <- fn:
		return nil
	case <-ctx.Done():
		return ErrSchedulerNotRunning
	}
}

// Call runs fn on the loop goroutine and waits for it to return.
func (s *Scheduler) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := s.Submit(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}

	s.mu.RLock()
	loopCtx := s.ctx
	s.mu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-loopCtx.Done():
		return ErrSchedulerNotRunning
	}
}

// Step advances the game clock by dt, unless the game is Paused, and ticks
// the updater once. Tests use it to drive frames synchronously.
func (s *Scheduler) Step(dt time.Duration) time.Time {
	s.loop.Lock()
	defer s.loop.Unlock()
	return s.step(dt)
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-s.ctx.Done():
			return

		case fn := <-s.submit:
			s.statsMu.Lock()
			s.stats.Submitted++
			s.statsMu.Unlock()

			s.loop.Lock()
			fn()
			s.loop.Unlock()

		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			s.mu.RLock()
			paused := s.paused
			s.mu.RUnlock()
			if paused {
				continue
			}

			dt := time.Duration(float64(elapsed) * s.config.TimeScale)
			s.Step(dt)
		}
	}
}

func (s *Scheduler) step(dt time.Duration) time.Time {
	started := time.Now()

	frozen := s.mode != nil && s.mode.Current() == gamestate.Paused
	var now time.Time
	if frozen || dt <= 0 {
		now = s.clock.Now()
	} else {
		now = s.clock.Advance(dt)
	}

	if s.target != nil {
		s.target.Update(now)
	}

	took := time.Since(started)
	if s.metrics != nil {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		s.metrics.RecordTick(ctx, took, frozen)
	}

	s.statsMu.Lock()
	s.stats.Ticks++
	if frozen {
		s.stats.FrozenTicks++
	}
	s.stats.GameTime = now
	s.stats.LastTickDuration = took
	s.statsMu.Unlock()

	if took > s.config.TickInterval {
		s.logger.Warn().Dur("took", took).Dur("tick_interval", s.config.TickInterval).Msg("frame overran tick interval")
	}
	return now
}
