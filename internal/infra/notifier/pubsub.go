package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"golang.org/x/time/rate"
)

// PubSubConfig contains configuration for Pub/Sub notifications.
type PubSubConfig struct {
	// Timeout bounds the publish acknowledgement wait
	Timeout time.Duration
}

// publishFunc publishes msg and blocks until the server acknowledges it.
type publishFunc func(ctx context.Context, msg *pubsub.Message) (serverID string, err error)

// PubSubNotifier publishes alerts as JSON messages on a Pub/Sub topic.
type PubSubNotifier struct {
	config  PubSubConfig
	publish publishFunc
	limiter *rate.Limiter
}

// NewPubSubNotifier creates a notifier that publishes to topic.
func NewPubSubNotifier(topic *pubsub.Topic, config PubSubConfig) *PubSubNotifier {
	return newPubSubNotifier(func(ctx context.Context, msg *pubsub.Message) (string, error) {
		return topic.Publish(ctx, msg).Get(ctx)
	}, config)
}

func newPubSubNotifier(publish publishFunc, config PubSubConfig) *PubSubNotifier {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &PubSubNotifier{
		config:  config,
		publish: publish,
		limiter: rate.NewLimiter(10, 10),
	}
}

// Notify implements Notifier. The message body is the JSON-encoded Message;
// attributes carry the group id and event type for subscription filters.
func (p *PubSubNotifier) Notify(ctx context.Context, msg Message) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal pubsub message: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	serverID, err := p.publish(pubCtx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"group_id": string(msg.GroupID),
			"event":    "group.unclaimed",
		},
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	slog.Info("Pub/Sub notification published",
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.String("group_id", string(msg.GroupID)),
		slog.String("message_id", serverID))
	return nil
}
