package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"groupwatch/internal/domain/entity"
)

// DefaultInterval is the period between scheduled cycles.
const DefaultInterval = 2 * time.Minute

// CycleObserver is told about every finished cycle, scheduled or on demand.
type CycleObserver func(stats *CycleStats, err error)

// cycleRunner is the part of Engine the Scheduler drives.
type cycleRunner interface {
	RunCycle(ctx context.Context) (*CycleStats, error)
	CheckGroup(ctx context.Context, id entity.GroupID) (*CheckResult, error)
}

// Scheduler runs the engine periodically and on demand, never more than one
// cycle at a time.
type Scheduler struct {
	engine   cycleRunner
	interval time.Duration
	observer CycleObserver

	running atomic.Bool
	last    atomic.Pointer[CycleStats]

	// cycleMu is held for the duration of every cycle so Start can wait
	// for an on-demand cycle before returning.
	cycleMu sync.Mutex

	baseMu sync.Mutex
	base   context.Context
}

// NewScheduler creates a Scheduler. A non-positive interval uses DefaultInterval.
// observer may be nil.
func NewScheduler(engine *Engine, interval time.Duration, observer CycleObserver) *Scheduler {
	return newScheduler(engine, interval, observer)
}

func newScheduler(engine cycleRunner, interval time.Duration, observer CycleObserver) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		observer: observer,
		base:     context.Background(),
	}
}

// Start runs one cycle immediately, then one every interval until ctx is
// done. Ticks that fire while a cycle is running are skipped. Cancelling ctx
// also cancels cycles started by Trigger. Start blocks and returns nil after
// the in-flight cycle, if any, has finished.
func (s *Scheduler) Start(ctx context.Context) error {
	s.baseMu.Lock()
	s.base = ctx
	s.baseMu.Unlock()
	defer s.waitIdle()

	s.tick(ctx)
	if ctx.Err() != nil {
		return nil
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))
	c := cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger)))
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("Start: schedule %q: %w", spec, err)
	}
	c.Start()
	slog.Info("scan scheduler started", slog.Duration("interval", s.interval))

	<-ctx.Done()
	slog.Info("scan scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// RunOnce runs a single cycle if none is running, otherwise it returns
// ErrCycleInProgress.
func (s *Scheduler) RunOnce(ctx context.Context) (*CycleStats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	stats, err := s.engine.RunCycle(ctx)
	if stats != nil {
		s.last.Store(stats)
	}
	if s.observer != nil {
		s.observer(stats, err)
	}
	return stats, err
}

// Trigger runs an out-of-band cycle for the control surface. The cycle
// ignores ctx cancellation, so a dropped client does not cut it short, but it
// stops when the context passed to Start is done.
func (s *Scheduler) Trigger(ctx context.Context) (*CycleStats, error) {
	s.baseMu.Lock()
	base := s.base
	s.baseMu.Unlock()

	cycleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(base, cancel)
	defer stop()

	return s.RunOnce(cycleCtx)
}

// CheckNow extracts a group id from input and checks that group under the
// same guard as a cycle.
func (s *Scheduler) CheckNow(ctx context.Context, input string) (*CheckResult, error) {
	id, err := entity.ExtractGroupID(input)
	if err != nil {
		return nil, err
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)

	return s.engine.CheckGroup(ctx, id)
}

// Running reports whether a cycle or check is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LastCycle returns the stats of the most recent cycle, or nil.
func (s *Scheduler) LastCycle() *CycleStats {
	return s.last.Load()
}

// waitIdle blocks until no cycle is running.
func (s *Scheduler) waitIdle() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.RunOnce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		skippedTicks.Inc()
		slog.Warn("scheduled scan skipped, previous cycle still running")
	default:
		slog.Error("scheduled scan failed", slog.Any("error", err))
	}
}
