package config

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewConfigMetrics("test_component", reg)
	tracker := NewTracker(nil, metrics)

	got := Use(tracker, "max_retries", LoadResult[int]{Value: 2, Warning: "bad", FallbackApplied: true})
	assert.Equal(t, 2, got)
	assert.Equal(t, "ok", Use(tracker, "name", LoadResult[string]{Value: "ok"}))
	tracker.Finish()

	assert.True(t, tracker.FallbackApplied())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues("max_retries")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationErrorsTotal.WithLabelValues("max_retries")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
	assert.Greater(t, testutil.ToFloat64(metrics.LoadTimestamp), 0.0)
}

func TestTracker_NoFallback(t *testing.T) {
	metrics := NewConfigMetrics("clean_component", prometheus.NewRegistry())
	tracker := NewTracker(nil, metrics)

	Use(tracker, "field", LoadResult[bool]{Value: true})
	tracker.Finish()

	assert.False(t, tracker.FallbackApplied())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbackActive))
}

func TestTracker_NilMetrics(t *testing.T) {
	tracker := NewTracker(nil, nil)
	assert.NotPanics(t, func() {
		Use(tracker, "field", LoadResult[int]{Value: 1, FallbackApplied: true})
		tracker.Finish()
	})
}
