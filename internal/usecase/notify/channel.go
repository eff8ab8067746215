// Package notify dispatches unclaimed-group alerts across the configured
// channels and tracks per-channel health.
package notify

import (
	"context"

	"groupwatch/internal/infra/notifier"
)

// Channel is one notification destination (Discord, Slack, Pub/Sub).
type Channel interface {
	// Name returns the lowercase channel identifier used in logs, metrics and health output.
	Name() string

	// IsEnabled reports whether the channel should receive alerts.
	IsEnabled() bool

	// Send delivers msg once. It must respect ctx cancellation.
	Send(ctx context.Context, msg notifier.Message) error
}

// NotifierChannel adapts an infra notifier to the Channel interface.
type NotifierChannel struct {
	name     string
	notifier notifier.Notifier
	enabled  bool
}

// NewChannel wraps n as a channel called name. A nil notifier yields a disabled channel.
func NewChannel(name string, n notifier.Notifier) *NotifierChannel {
	return &NotifierChannel{name: name, notifier: n, enabled: n != nil}
}

// Name implements Channel.
func (c *NotifierChannel) Name() string { return c.name }

// IsEnabled implements Channel.
func (c *NotifierChannel) IsEnabled() bool { return c.enabled }

// Send implements Channel.
func (c *NotifierChannel) Send(ctx context.Context, msg notifier.Message) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	return c.notifier.Notify(ctx, msg)
}
