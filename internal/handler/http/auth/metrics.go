package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "groupwatch_control_auth_total",
		Help: "Control API authentication attempts by result",
	},
	[]string{"result"}, // accepted | rejected | forbidden
)

func recordAttempt(result string) {
	authAttempts.WithLabelValues(result).Inc()
}
