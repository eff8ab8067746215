package respond

import "regexp"

var (
	// Discord: /api/webhooks/<id>/<token>, Slack: /services/<T>/<B>/<token>
	discordWebhookPattern = regexp.MustCompile(`(/api/webhooks/\d+/)[A-Za-z0-9_\-]+`)
	slackWebhookPattern   = regexp.MustCompile(`(/services/[A-Z0-9]+/[A-Z0-9]+/)[A-Za-z0-9]+`)
	bearerPattern         = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-_.=]+`)
	dsnPasswordPattern    = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns err's message with webhook tokens, bearer tokens
// and DSN passwords masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = discordWebhookPattern.ReplaceAllString(msg, "${1}****")
	msg = slackWebhookPattern.ReplaceAllString(msg, "${1}****")
	msg = bearerPattern.ReplaceAllString(msg, "${1}****")
	msg = dsnPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
