// Package notifier delivers unclaimed-group alerts to external channels.
// Every implementation makes exactly one delivery attempt per call; retrying
// a failed alert is left to the next scan cycle.
package notifier

import "context"

// Notifier sends one alert message to a single destination.
type Notifier interface {
	// Notify delivers msg once. A nil error means the destination acknowledged it.
	// Throttling replies are returned as *RateLimitError and are not retried.
	Notify(ctx context.Context, msg Message) error
}
