package notifier

import (
	"context"
	"fmt"
	"time"
)

// DiscordConfig contains configuration for Discord webhook notifications.
type DiscordConfig struct {
	// WebhookURL is the Discord webhook URL (includes authentication token)
	WebhookURL string

	// Timeout bounds the single webhook request
	Timeout time.Duration
}

// DiscordNotifier posts alerts to a Discord webhook.
type DiscordNotifier struct {
	hook *webhook
}

// NewDiscordNotifier creates a DiscordNotifier limited to 0.5 req/s with a
// burst of 3, under Discord's 30 per minute webhook cap.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{hook: newWebhook("Discord", config.WebhookURL, config.Timeout, 0.5, 3)}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Content string         `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	URL         string              `json:"url"`
	Color       int                 `json:"color"`
	Fields      []DiscordEmbedField `json:"fields"`
	Footer      DiscordEmbedFooter  `json:"footer"`
	Timestamp   string              `json:"timestamp"`
}

// DiscordEmbedField is one name/value row of an embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// Discord warning orange (#FFA500)
const discordAlertColor = 16753920

func buildEmbedPayload(msg Message) DiscordWebhookPayload {
	fields := make([]DiscordEmbedField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, DiscordEmbedField(f))
	}

	return DiscordWebhookPayload{
		Content: fmt.Sprintf("⚠️ **Unclaimed group found!**\n%s", msg.URL),
		Embeds: []DiscordEmbed{{
			Title:       msg.Title,
			Description: msg.Description,
			URL:         msg.URL,
			Color:       discordAlertColor,
			Fields:      fields,
			Footer:      DiscordEmbedFooter{Text: "Group " + string(msg.GroupID)},
			Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339),
		}},
	}
}

// Notify implements Notifier with a single webhook request.
func (d *DiscordNotifier) Notify(ctx context.Context, msg Message) error {
	return d.hook.post(ctx, string(msg.GroupID), buildEmbedPayload(msg))
}
