package groupapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts individual HTTP attempts against the group API.
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwatch_groupapi_requests_total",
			Help: "Total number of HTTP attempts against the group API",
		},
		[]string{"operation", "outcome"}, // outcome: ok|throttled|error
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupwatch_groupapi_request_duration_seconds",
			Help:    "Duration of a single HTTP attempt against the group API",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"operation"},
	)

	discoveryPageFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "groupwatch_discovery_page_failures_total",
			Help: "Discovery pages skipped after failing",
		},
	)
)
