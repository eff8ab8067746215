// Package groupapi is the HTTP client for the remote group API. It fetches
// single group records and samples the search endpoint for discovery.
package groupapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/resilience/circuitbreaker"
	"groupwatch/internal/resilience/retry"
)

const (
	// DefaultBaseURL is the public group API.
	DefaultBaseURL = "https://groups.roblox.com"

	maxBodySize = 2 * 1024 * 1024 // 2MB
	userAgent   = "groupwatch/1.0"
)

// Config holds the client settings.
type Config struct {
	BaseURL string

	// RequestTimeout bounds each individual HTTP attempt.
	RequestTimeout time.Duration

	// Retry controls attempts and backoff for every request.
	Retry retry.Policy

	// PageDelay separates discovery page requests.
	PageDelay time.Duration

	// Keyword is sent as the search filter during discovery.
	Keyword string
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: 8 * time.Second,
		Retry:          retry.DefaultPolicy(),
		PageDelay:      900 * time.Millisecond,
	}
}

// Client talks to the group API through a retry policy and a circuit breaker.
type Client struct {
	http    *http.Client
	cfg     Config
	breaker *circuitbreaker.Breaker
	now     func() time.Time
}

// NewClient creates a Client. A nil httpClient uses a client without an
// overall timeout; per-attempt timeouts come from cfg.RequestTimeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 8 * time.Second
	}

	cbCfg := circuitbreaker.GroupAPIConfig()
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || !retry.IsRetryable(err)
	}

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		breaker: circuitbreaker.New(cbCfg),
		now:     time.Now,
	}
}

// FetchGroup returns the current state of group id. Any error means the state
// is unknown: callers must skip the group rather than treat it as unclaimed.
// Exhausted retries wrap retry.ErrRetriesExhausted.
func (c *Client) FetchGroup(ctx context.Context, id entity.GroupID) (*entity.GroupRecord, error) {
	if !id.Valid() {
		return nil, entity.ErrInvalidGroupID
	}
	endpoint := c.cfg.BaseURL + "/v1/groups/" + url.PathEscape(string(id))

	var body []byte
	err := c.cfg.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		b, err := c.get(ctx, "fetch_group", endpoint)
		if err != nil {
			slog.Debug("group fetch attempt failed",
				slog.String("group_id", string(id)),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		var httpErr *retry.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("FetchGroup %s: %w: %w", id, ErrGroupNotFound, err)
		}
		return nil, fmt.Errorf("FetchGroup %s: %w", id, err)
	}

	record, err := decodeGroup(body)
	if err != nil {
		return nil, fmt.Errorf("FetchGroup %s: %w", id, err)
	}
	// The requested id is authoritative; the body id is informational only.
	record.ID = id
	record.CheckedAt = c.now().UTC()
	return record, nil
}

// get performs one attempt through the circuit breaker with its own timeout.
// Non-2xx responses are returned as *retry.HTTPError.
func (c *Client) get(ctx context.Context, operation, endpoint string) ([]byte, error) {
	body, err := circuitbreaker.Do(c.breaker, func() ([]byte, error) {
		return c.doGet(ctx, operation, endpoint)
	})
	if circuitbreaker.Rejected(err) {
		slog.Warn("group api circuit breaker open, request rejected",
			slog.String("operation", operation),
			slog.String("state", c.breaker.State().String()))
	}
	return body, err
}

func (c *Client) doGet(ctx context.Context, operation, endpoint string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		requestsTotal.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &retry.HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(truncate(string(body), 200))}
		if retry.IsThrottled(httpErr) {
			requestsTotal.WithLabelValues(operation, "throttled").Inc()
		} else {
			requestsTotal.WithLabelValues(operation, "error").Inc()
		}
		return nil, httpErr
	}

	requestsTotal.WithLabelValues(operation, "ok").Inc()
	return body, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
