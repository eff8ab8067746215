package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/repository"
)

var (
	storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupwatch_store_operation_duration_seconds",
			Help:    "Duration of group store operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"store", "op"},
	)

	storeOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwatch_store_operation_errors_total",
			Help: "Failed group store operations",
		},
		[]string{"store", "op"},
	)
)

// ObserveStoreOp records one store operation that began at start.
func ObserveStoreOp(store, op string, start time.Time, err error) {
	storeOpDuration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
	if err != nil {
		storeOpErrors.WithLabelValues(store, op).Inc()
	}
}

// RegisterDBStats exports connection pool statistics for db under db_name.
// A nil reg uses the default registerer.
func RegisterDBStats(reg prometheus.Registerer, db *sql.DB, name string) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(collectors.NewDBStatsCollector(db, name))
}

type candidates struct {
	next  repository.CandidateRepository
	store string
}

// InstrumentCandidates wraps repo so every call is observed under store.
func InstrumentCandidates(repo repository.CandidateRepository, store string) repository.CandidateRepository {
	return &candidates{next: repo, store: store + "_candidates"}
}

func (c *candidates) Load(ctx context.Context) (ids []entity.GroupID, err error) {
	defer func(start time.Time) { ObserveStoreOp(c.store, "load", start, err) }(time.Now())
	return c.next.Load(ctx)
}

func (c *candidates) Save(ctx context.Context, ids []entity.GroupID) (err error) {
	defer func(start time.Time) { ObserveStoreOp(c.store, "save", start, err) }(time.Now())
	return c.next.Save(ctx, ids)
}

func (c *candidates) Append(ctx context.Context, id entity.GroupID) (added bool, err error) {
	defer func(start time.Time) { ObserveStoreOp(c.store, "append", start, err) }(time.Now())
	return c.next.Append(ctx, id)
}

type reported struct {
	next  repository.ReportedRepository
	store string
}

// InstrumentReported wraps repo so every call is observed under store.
func InstrumentReported(repo repository.ReportedRepository, store string) repository.ReportedRepository {
	return &reported{next: repo, store: store + "_reported"}
}

func (r *reported) Load(ctx context.Context) (ids []entity.GroupID, err error) {
	defer func(start time.Time) { ObserveStoreOp(r.store, "load", start, err) }(time.Now())
	return r.next.Load(ctx)
}

func (r *reported) Save(ctx context.Context, ids []entity.GroupID) (err error) {
	defer func(start time.Time) { ObserveStoreOp(r.store, "save", start, err) }(time.Now())
	return r.next.Save(ctx, ids)
}

func (r *reported) Add(ctx context.Context, id entity.GroupID) (err error) {
	defer func(start time.Time) { ObserveStoreOp(r.store, "add", start, err) }(time.Now())
	return r.next.Add(ctx, id)
}
