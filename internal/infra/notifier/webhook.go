package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

type requestIDKey struct{}

// WithRequestID tags ctx so delivery log lines can be correlated with the
// scan or control request that caused them.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RateLimitError is a 429 reply. The alert is not retried within the cycle.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded (retry after %v)", e.Service, e.RetryAfter)
}

// StatusError is any other non-2xx webhook reply.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	kind := "server"
	if e.Permanent() {
		kind = "client"
	}
	return fmt.Sprintf("%s %s error %d: %s", e.Service, kind, e.StatusCode, e.Body)
}

// Permanent reports a 4xx reply, which a resend of the same payload will
// not fix (revoked webhook, malformed body).
func (e *StatusError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

const (
	defaultWebhookTimeout = 10 * time.Second
	maxReplyBytes         = 64 << 10
	defaultRetryAfter     = 5 * time.Second
)

// webhook posts JSON payloads to one URL behind a token bucket.
type webhook struct {
	service string
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

func newWebhook(service, url string, timeout time.Duration, perSecond float64, burst int) *webhook {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &webhook{
		service: service,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// post makes exactly one delivery attempt.
func (w *webhook) post(ctx context.Context, groupID string, payload any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err := w.classify(resp, body); err != nil {
		return err
	}

	slog.Info("webhook notification delivered",
		slog.String("channel", w.service),
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.String("group_id", groupID))
	return nil
}

func (w *webhook) classify(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{Service: w.service, RetryAfter: retryAfter(resp, body)}
	default:
		return &StatusError{
			Service:    w.service,
			StatusCode: resp.StatusCode,
			Body:       truncateText(string(body), 200, ""),
		}
	}
}

// retryAfter prefers Discord's JSON retry_after (seconds, fractional),
// then the Retry-After header.
func retryAfter(resp *http.Response, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}
	if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	return defaultRetryAfter
}

// truncateText cuts text to maxRunes runes, ending with suffix when cut.
func truncateText(text string, maxRunes int, suffix string) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	keep := max(maxRunes-utf8.RuneCountInString(suffix), 0)
	return string([]rune(text)[:keep]) + suffix
}
