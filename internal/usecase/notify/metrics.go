package notify

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"groupwatch/internal/infra/notifier"
)

// Delivery results.
const (
	resultDelivered   = "delivered"
	resultFailed      = "failed"
	resultRateLimited = "rate_limited"
	resultPaused      = "paused"
)

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupwatch_notification_deliveries_total",
			Help: "Alert deliveries per channel by result (delivered, failed, rate_limited, paused)",
		},
		[]string{"channel", "result"},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "groupwatch_notification_delivery_duration_seconds",
			Help:    "Time spent on one delivery attempt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	channelPaused = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "groupwatch_notification_channel_paused",
			Help: "1 while a channel is paused after consecutive failures",
		},
		[]string{"channel"},
	)

	channelsEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "groupwatch_notification_channels_enabled",
			Help: "Number of enabled notification channels",
		},
	)
)

func deliveryResult(err error) string {
	var rateErr *notifier.RateLimitError
	switch {
	case err == nil:
		return resultDelivered
	case errors.As(err, &rateErr):
		return resultRateLimited
	default:
		return resultFailed
	}
}

func observeDelivery(channel string, err error, d time.Duration) {
	deliveriesTotal.WithLabelValues(channel, deliveryResult(err)).Inc()
	deliveryDuration.WithLabelValues(channel).Observe(d.Seconds())
}
