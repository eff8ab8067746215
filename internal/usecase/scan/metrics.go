package scan

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check outcomes, used as the outcome label of groupwatch_scan_checks_total.
const (
	OutcomeFetchError      = "fetch_error"
	OutcomeOwned           = "owned"
	OutcomeAlreadyReported = "already_reported"
	OutcomeNotified        = "notified"
	OutcomeNotifyError     = "notify_error"
	OutcomePanic           = "panic"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwatch_scan_cycles_total",
			Help: "Completed scan cycles by status",
		},
		[]string{"status"}, // status: success|failure
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "groupwatch_scan_cycle_duration_seconds",
			Help:    "Duration of a full scan cycle in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
		},
	)

	cycleCandidates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupwatch_scan_candidates",
			Help: "Candidate groups checked in the last cycle",
		},
	)

	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwatch_scan_checks_total",
			Help: "Per-group checks by outcome",
		},
		[]string{"outcome"},
	)

	persistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwatch_scan_persist_failures_total",
			Help: "Store reads or writes that failed and fell back to memory",
		},
		[]string{"store", "op"},
	)

	skippedTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groupwatch_scan_skipped_ticks_total",
			Help: "Scheduled ticks skipped because a cycle was still running",
		},
	)

	reportedGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupwatch_reported_groups",
			Help: "Groups already alerted on, as last known in memory",
		},
	)

	lastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupwatch_scan_last_success_timestamp",
			Help: "Unix timestamp of the last completed cycle",
		},
	)
)

func recordCycle(err error, d time.Duration, candidates int) {
	status := "success"
	if err != nil {
		status = "failure"
	} else {
		lastSuccess.SetToCurrentTime()
	}
	cyclesTotal.WithLabelValues(status).Inc()
	cycleDuration.Observe(d.Seconds())
	cycleCandidates.Set(float64(candidates))
}

func recordCheck(outcome string) {
	checksTotal.WithLabelValues(outcome).Inc()
}

func recordPersistFailure(store, op string) {
	persistFailures.WithLabelValues(store, op).Inc()
}
