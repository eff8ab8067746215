// Package circuitbreaker guards calls to the remote group API with
// github.com/sony/gobreaker and exports the breaker state as a metric.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	stateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groupwatch_circuit_breaker_state",
			Help: "Breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"breaker"},
	)

	rejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwatch_circuit_breaker_rejected_total",
			Help: "Calls refused without reaching the remote service",
		},
		[]string{"breaker"},
	)
)

// Config tunes a Breaker.
type Config struct {
	Name string

	// HalfOpenProbes is how many calls may pass while half-open.
	HalfOpenProbes uint32

	// Window clears the closed-state counts when it elapses.
	Window time.Duration

	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration

	// TripRatio is the failure share that opens the breaker once at
	// least MinCalls have been counted in the window.
	TripRatio float64
	MinCalls  uint32

	// IsSuccessful reports errors that must not count as failures,
	// e.g. a 404 for one missing group. Nil counts every error.
	IsSuccessful func(err error) bool
}

// GroupAPIConfig suits the sequential per-cycle lookups of the group API.
func GroupAPIConfig() Config {
	return Config{
		Name:           "group-api",
		HalfOpenProbes: 1,
		Window:         2 * time.Minute,
		Cooldown:       time.Minute,
		TripRatio:      0.8,
		MinCalls:       5,
	}
}

// Breaker is a named gobreaker.CircuitBreaker.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// New creates a closed Breaker.
func New(cfg Config) *Breaker {
	stateGauge.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))
	return &Breaker{
		name: cfg.Name,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.HalfOpenProbes,
			Interval:    cfg.Window,
			Timeout:     cfg.Cooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.Requests >= cfg.MinCalls &&
					float64(c.TotalFailures)/float64(c.Requests) >= cfg.TripRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				stateGauge.WithLabelValues(name).Set(stateValue(to))
				slog.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
			IsSuccessful: cfg.IsSuccessful,
		}),
	}
}

// Do runs fn through b. While b is open fn is not called and the error
// satisfies Rejected.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		if Rejected(err) {
			rejectedTotal.WithLabelValues(b.name).Inc()
		}
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Rejected reports whether err came from the breaker itself rather than
// the guarded call.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
