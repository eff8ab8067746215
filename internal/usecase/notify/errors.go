package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrInvalidRecord indicates a nil record or one without a valid group id.
	ErrInvalidRecord = errors.New("invalid group record")

	// ErrNoChannels indicates that no enabled channel is configured.
	ErrNoChannels = errors.New("no notification channel enabled")

	// ErrNotDelivered indicates that no channel acknowledged the alert.
	ErrNotDelivered = errors.New("notification not delivered")

	// ErrCircuitBreakerOpen indicates that the channel is paused after
	// repeated failures. It reopens automatically after the pause.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open for this channel")
)
