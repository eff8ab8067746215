package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwatch_http_requests_total",
			Help: "Control API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// Buckets reach past a minute because POST /scan waits for a full cycle.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupwatch_http_request_duration_seconds",
			Help:    "Control API request duration in seconds",
			Buckets: []float64{.005, .025, .1, .5, 1, 5, 15, 60, 180},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupwatch_http_requests_in_flight",
			Help: "Control API requests currently being served",
		},
	)
)

// knownRoutes bounds the route label; anything else is reported as "other".
var knownRoutes = map[string]bool{
	"/health":     true,
	"/scan":       true,
	"/scan/last":  true,
	"/check":      true,
	"/candidates": true,
	"/reported":   true,
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// MetricsMiddleware records request count, latency and concurrency.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		route := routeLabel(r.URL.Path)
		rec := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
