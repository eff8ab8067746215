package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"groupwatch/internal/pkg/config"
	"groupwatch/internal/usecase/scan"
)

// WorkerMetrics groups the process-level metrics of the worker:
//
//	groupwatch_worker_config_*                     configuration health (embedded)
//	groupwatch_worker_ready                        1 once the scheduler is armed
//	groupwatch_worker_alerts_total                 groups alerted on since start
//	groupwatch_worker_last_cycle_duration_seconds  duration of the latest cycle
//	groupwatch_worker_last_cycle_failed            1 if the latest cycle returned an error
type WorkerMetrics struct {
	*config.ConfigMetrics

	Ready             prometheus.Gauge
	AlertsTotal       prometheus.Counter
	LastCycleDuration prometheus.Gauge
	LastCycleFailed   prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics on reg, or on the default
// registerer when reg is nil.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("groupwatch_worker", reg),

		Ready: f.NewGauge(prometheus.GaugeOpts{
			Name: "groupwatch_worker_ready",
			Help: "1 once the scan scheduler is armed, 0 otherwise",
		}),
		AlertsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "groupwatch_worker_alerts_total",
			Help: "Unclaimed groups alerted on since process start",
		}),
		LastCycleDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "groupwatch_worker_last_cycle_duration_seconds",
			Help: "Duration of the most recent scan cycle",
		}),
		LastCycleFailed: f.NewGauge(prometheus.GaugeOpts{
			Name: "groupwatch_worker_last_cycle_failed",
			Help: "1 if the most recent scan cycle returned an error",
		}),
	}
}

// ObserveCycle records a finished cycle. It matches scan.CycleObserver.
func (m *WorkerMetrics) ObserveCycle(stats *scan.CycleStats, err error) {
	if err != nil {
		m.LastCycleFailed.Set(1)
	} else {
		m.LastCycleFailed.Set(0)
	}
	if stats == nil {
		return
	}
	m.AlertsTotal.Add(float64(stats.Notified))
	m.LastCycleDuration.Set(stats.Duration.Seconds())
}

// SetReady mirrors the readiness state.
func (m *WorkerMetrics) SetReady(ready bool) {
	if ready {
		m.Ready.Set(1)
		return
	}
	m.Ready.Set(0)
}
