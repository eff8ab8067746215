// Package scan runs watch cycles: it gathers candidate groups, checks each
// one against the group API, and alerts once per unclaimed group.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/observability/tracing"
	"groupwatch/internal/repository"
	"groupwatch/internal/resilience/retry"
)

// GroupFetcher returns the current state of one group.
type GroupFetcher interface {
	FetchGroup(ctx context.Context, id entity.GroupID) (*entity.GroupRecord, error)
}

// Notifier alerts on one unclaimed group. A nil error means the alert was
// acknowledged by at least one destination.
type Notifier interface {
	NotifyGroup(ctx context.Context, record *entity.GroupRecord) error
}

// DiscoverySource is a best-effort enumerator of candidate groups. Discover
// may return ids together with an error; both are used.
type DiscoverySource struct {
	Name     string
	Discover func(ctx context.Context) ([]entity.GroupID, error)
}

// Config controls a cycle. Zero values are valid.
type Config struct {
	// RateDelay separates consecutive group checks.
	RateDelay time.Duration

	// Seeds are raw candidate strings (ids or URLs) checked every cycle
	// in addition to the stored candidates.
	Seeds []string

	// PersistDiscovered appends discovered ids to the candidate store so later
	// cycles check them even when discovery no longer returns them.
	PersistDiscovered bool
}

// Deps are the collaborators of an Engine. Candidates, Reported, Fetcher and
// Notifier are required.
type Deps struct {
	Candidates repository.CandidateRepository
	Reported   repository.ReportedRepository
	Fetcher    GroupFetcher
	Notifier   Notifier
	Sources    []DiscoverySource

	// Sleep waits between checks. Defaults to retry.Sleep.
	Sleep retry.SleepFunc
	// Tracer defaults to the process tracer.
	Tracer trace.Tracer
}

// CycleStats summarizes one cycle.
type CycleStats struct {
	CycleID         string        `json:"cycle_id"`
	StartedAt       time.Time     `json:"started_at"`
	Candidates      int           `json:"candidates"`
	Discovered      int           `json:"discovered"`
	InvalidSeeds    int           `json:"invalid_seeds"`
	Checked         int           `json:"checked"`
	Owned           int           `json:"owned"`
	AlreadyReported int           `json:"already_reported"`
	Notified        int           `json:"notified"`
	FetchErrors     int           `json:"fetch_errors"`
	NotifyErrors    int           `json:"notify_errors"`
	PersistErrors   int           `json:"persist_errors"`
	Panics          int           `json:"panics"`
	Duration        time.Duration `json:"duration_ns"`
}

func (s *CycleStats) count(outcome string) {
	s.Checked++
	switch outcome {
	case OutcomeFetchError:
		s.FetchErrors++
	case OutcomeOwned:
		s.Owned++
	case OutcomeAlreadyReported:
		s.AlreadyReported++
	case OutcomeNotified:
		s.Notified++
	case OutcomeNotifyError:
		s.NotifyErrors++
	case OutcomePanic:
		s.Panics++
	}
}

// CheckResult is the outcome of checking a single group on demand.
type CheckResult struct {
	GroupID         entity.GroupID `json:"group_id"`
	Name            string         `json:"name,omitempty"`
	Unclaimed       bool           `json:"unclaimed"`
	Owner           string         `json:"owner,omitempty"`
	AlreadyReported bool           `json:"already_reported"`
	Notified        bool           `json:"notified"`
	NotifyError     string         `json:"notify_error,omitempty"`
}

// Engine executes scan cycles. It is not safe for concurrent cycles; the
// Scheduler serializes calls.
type Engine struct {
	candidates repository.CandidateRepository
	reported   repository.ReportedRepository
	fetcher    GroupFetcher
	notifier   Notifier
	sources    []DiscoverySource
	cfg        Config
	sleep      retry.SleepFunc
	tracer     trace.Tracer
	now        func() time.Time

	mu           sync.Mutex
	reportedSet  map[entity.GroupID]struct{}
	reportedSeen bool
}

// NewEngine creates an Engine.
func NewEngine(deps Deps, cfg Config) *Engine {
	e := &Engine{
		candidates:  deps.Candidates,
		reported:    deps.Reported,
		fetcher:     deps.Fetcher,
		notifier:    deps.Notifier,
		sources:     deps.Sources,
		cfg:         cfg,
		sleep:       deps.Sleep,
		tracer:      deps.Tracer,
		now:         time.Now,
		reportedSet: make(map[entity.GroupID]struct{}),
	}
	if e.sleep == nil {
		e.sleep = retry.Sleep
	}
	if e.tracer == nil {
		e.tracer = tracing.GetTracer()
	}
	return e
}

// RunCycle performs one full pass: load candidates, optionally discover more,
// then check every candidate in ascending numeric order. Per-group failures
// are logged and counted, never returned. The error is non-nil only when ctx
// ended mid-cycle or the cycle itself panicked; stats are returned either way.
func (e *Engine) RunCycle(ctx context.Context) (stats *CycleStats, err error) {
	stats = &CycleStats{
		CycleID:   uuid.New().String(),
		StartedAt: e.now().UTC(),
	}
	start := time.Now()
	logger := slog.Default().With(slog.String("cycle_id", stats.CycleID))

	ctx, span := e.tracer.Start(ctx, "scan.cycle",
		trace.WithAttributes(attribute.String("scan.cycle_id", stats.CycleID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("scan cycle panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
		}
		stats.Duration = time.Since(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("scan.candidates", stats.Candidates),
			attribute.Int("scan.notified", stats.Notified))
		recordCycle(err, stats.Duration, stats.Candidates)
	}()

	logger.Info("scan cycle started")

	ids := e.loadCandidates(ctx, logger, stats)
	e.loadReported(ctx, logger)

	if len(e.sources) > 0 {
		ids = e.discover(ctx, logger, ids, stats)
	}

	sorted := make([]entity.GroupID, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	entity.SortGroupIDs(sorted)
	stats.Candidates = len(sorted)

	for i, id := range sorted {
		if i > 0 {
			if err := e.sleep(ctx, e.cfg.RateDelay); err != nil {
				logger.Warn("scan cycle interrupted",
					slog.Int("checked", stats.Checked),
					slog.Any("error", err))
				return stats, fmt.Errorf("RunCycle: %w", err)
			}
		}
		outcome := e.checkOne(ctx, logger, id, stats)
		stats.count(outcome)
	}

	logger.Info("scan cycle completed",
		slog.Int("candidates", stats.Candidates),
		slog.Int("discovered", stats.Discovered),
		slog.Int("notified", stats.Notified),
		slog.Int("owned", stats.Owned),
		slog.Int("already_reported", stats.AlreadyReported),
		slog.Int("fetch_errors", stats.FetchErrors),
		slog.Int("notify_errors", stats.NotifyErrors),
		slog.Int("persist_errors", stats.PersistErrors),
		slog.Duration("duration", time.Since(start)))
	return stats, nil
}

// CheckGroup checks a single group outside a cycle, applying the same
// dedup rules: an unclaimed group that was never reported is alerted on
// and recorded.
func (e *Engine) CheckGroup(ctx context.Context, id entity.GroupID) (*CheckResult, error) {
	if !id.Valid() {
		return nil, entity.ErrInvalidGroupID
	}
	ctx, span := e.tracer.Start(ctx, "scan.check_now",
		trace.WithAttributes(attribute.String("group.id", string(id))))
	defer span.End()

	logger := slog.Default().With(slog.String("group_id", string(id)))
	if !e.reportedLoaded() {
		e.loadReported(ctx, logger)
	}

	record, err := e.fetcher.FetchGroup(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("CheckGroup: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("CheckGroup: empty record for %s", id)
	}

	res := &CheckResult{
		GroupID:   id,
		Name:      record.Name,
		Unclaimed: record.Unclaimed(),
		Owner:     record.Owner.Name(),
	}
	if !res.Unclaimed {
		return res, nil
	}
	if e.isReported(id) {
		res.AlreadyReported = true
		return res, nil
	}

	if err := e.notifier.NotifyGroup(ctx, record); err != nil {
		logger.Warn("notification failed, group stays unreported", slog.Any("error", err))
		res.NotifyError = err.Error()
		return res, nil
	}
	res.Notified = true
	_ = e.markReported(ctx, logger, id)
	return res, nil
}

// loadCandidates merges stored candidates with the configured seeds.
func (e *Engine) loadCandidates(ctx context.Context, logger *slog.Logger, stats *CycleStats) map[entity.GroupID]struct{} {
	ids := make(map[entity.GroupID]struct{})

	stored, err := e.candidates.Load(ctx)
	if err != nil {
		recordPersistFailure("candidates", "load")
		logger.Warn("failed to load candidates, continuing without them", slog.Any("error", err))
	}
	for _, id := range stored {
		if id.Valid() {
			ids[id] = struct{}{}
		}
	}

	for _, raw := range e.cfg.Seeds {
		id, err := entity.ExtractGroupID(raw)
		if err != nil {
			stats.InvalidSeeds++
			logger.Warn("skipping unparsable seed",
				slog.String("seed", raw),
				slog.Any("error", err))
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

// loadReported refreshes the in-memory reported set. On failure the set from
// the previous load is kept.
func (e *Engine) loadReported(ctx context.Context, logger *slog.Logger) {
	stored, err := e.reported.Load(ctx)
	if err != nil {
		recordPersistFailure("reported", "load")
		logger.Warn("failed to load reported groups, using last known set", slog.Any("error", err))
		return
	}

	set := make(map[entity.GroupID]struct{}, len(stored))
	for _, id := range stored {
		set[id] = struct{}{}
	}

	e.mu.Lock()
	// Keep ids alerted on since the last load whose write may have failed.
	for id := range e.reportedSet {
		set[id] = struct{}{}
	}
	e.reportedSet = set
	e.reportedSeen = true
	e.mu.Unlock()
	reportedGroups.Set(float64(len(set)))
}

func (e *Engine) discover(ctx context.Context, logger *slog.Logger, ids map[entity.GroupID]struct{}, stats *CycleStats) map[entity.GroupID]struct{} {
	ctx, span := e.tracer.Start(ctx, "scan.discover")
	defer span.End()

	for _, src := range e.sources {
		found, err := src.Discover(ctx)
		if err != nil {
			span.RecordError(err)
			logger.Warn("discovery source failed",
				slog.String("source", src.Name),
				slog.Int("found", len(found)),
				slog.Any("error", err))
		}
		for _, id := range found {
			if !id.Valid() {
				continue
			}
			if _, ok := ids[id]; ok {
				continue
			}
			ids[id] = struct{}{}
			stats.Discovered++
			if e.cfg.PersistDiscovered {
				if _, err := e.candidates.Append(ctx, id); err != nil {
					recordPersistFailure("candidates", "append")
					logger.Warn("failed to persist discovered group",
						slog.String("group_id", string(id)),
						slog.Any("error", err))
				}
			}
		}
	}
	span.SetAttributes(attribute.Int("scan.discovered", stats.Discovered))
	return ids
}

// checkOne runs the per-group pipeline and returns its outcome. Panics are
// contained here so the cycle moves on to the next group.
func (e *Engine) checkOne(ctx context.Context, logger *slog.Logger, id entity.GroupID, stats *CycleStats) (outcome string) {
	ctx, span := e.tracer.Start(ctx, "scan.check",
		trace.WithAttributes(attribute.String("group.id", string(id))))
	defer span.End()
	logger = logger.With(slog.String("group_id", string(id)))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while checking group",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			span.SetStatus(codes.Error, "panic")
			outcome = OutcomePanic
		}
		span.SetAttributes(attribute.String("scan.outcome", outcome))
		recordCheck(outcome)
	}()

	record, err := e.fetcher.FetchGroup(ctx, id)
	if err != nil || record == nil {
		if err == nil {
			err = errors.New("empty record")
		}
		span.RecordError(err)
		logger.Warn("fetch failed, skipping group", slog.Any("error", err))
		return OutcomeFetchError
	}

	if !record.Unclaimed() {
		logger.Debug("group has an owner", slog.String("owner", record.Owner.Name()))
		return OutcomeOwned
	}
	if e.isReported(id) {
		logger.Debug("unclaimed group already reported")
		return OutcomeAlreadyReported
	}

	logger.Info("unclaimed group found", slog.String("name", record.Name))
	if err := e.notifier.NotifyGroup(ctx, record); err != nil {
		span.RecordError(err)
		logger.Warn("notification failed, group stays unreported", slog.Any("error", err))
		return OutcomeNotifyError
	}

	if err := e.markReported(ctx, logger, id); err != nil {
		stats.PersistErrors++
	}
	return OutcomeNotified
}

// markReported records id in memory and in the reported store.
func (e *Engine) markReported(ctx context.Context, logger *slog.Logger, id entity.GroupID) error {
	e.mu.Lock()
	e.reportedSet[id] = struct{}{}
	size := len(e.reportedSet)
	e.mu.Unlock()
	reportedGroups.Set(float64(size))

	if err := e.reported.Add(ctx, id); err != nil {
		recordPersistFailure("reported", "add")
		logger.Error("failed to persist reported group, a later restart may alert again",
			slog.Any("error", err))
		return err
	}
	return nil
}

func (e *Engine) isReported(id entity.GroupID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.reportedSet[id]
	return ok
}

func (e *Engine) reportedLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reportedSeen
}
