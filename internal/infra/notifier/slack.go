package notifier

import (
	"context"
	"fmt"
	"time"
)

// SlackConfig contains configuration for Slack webhook notifications.
type SlackConfig struct {
	// WebhookURL is the Slack Incoming Webhook URL (includes authentication token)
	WebhookURL string

	// Timeout bounds the single webhook request
	Timeout time.Duration
}

// SlackNotifier posts alerts to a Slack Incoming Webhook.
type SlackNotifier struct {
	hook *webhook
}

// NewSlackNotifier creates a SlackNotifier limited to 1 message per second.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{hook: newWebhook("Slack", config.WebhookURL, config.Timeout, 1, 1)}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`
	Text     *SlackTextObject  `json:"text,omitempty"`
	Fields   []SlackTextObject `json:"fields,omitempty"`
	Elements []SlackTextObject `json:"elements,omitempty"`
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

// Slack allows at most 10 fields per section block.
const maxSlackFields = 10

func buildBlockKitPayload(msg Message) SlackWebhookPayload {
	section := SlackBlock{
		Type: "section",
		Text: &SlackTextObject{
			Type: "mrkdwn",
			Text: fmt.Sprintf("*<%s|%s>*\n%s", msg.URL, msg.Title, msg.Description),
		},
	}

	fields := make([]SlackTextObject, 0, len(msg.Fields))
	for i, f := range msg.Fields {
		if i == maxSlackFields {
			break
		}
		fields = append(fields, SlackTextObject{Type: "mrkdwn", Text: fmt.Sprintf("*%s*\n%s", f.Name, f.Value)})
	}
	fieldBlock := SlackBlock{Type: "section", Fields: fields}

	contextBlock := SlackBlock{
		Type: "context",
		Elements: []SlackTextObject{{
			Type: "mrkdwn",
			Text: "Checked " + msg.Timestamp.UTC().Format(time.RFC3339),
		}},
	}

	return SlackWebhookPayload{
		Text:   fmt.Sprintf("Unclaimed group found: %s", msg.URL),
		Blocks: []SlackBlock{section, fieldBlock, contextBlock},
	}
}

// Notify implements Notifier with a single webhook request.
func (s *SlackNotifier) Notify(ctx context.Context, msg Message) error {
	return s.hook.post(ctx, string(msg.GroupID), buildBlockKitPayload(msg))
}
