// Package worker holds the runtime settings, metrics and health endpoints of
// the groupwatch worker process.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/pkg/config"
)

// Notification channel names accepted in NOTIFY_CHANNEL.
const (
	ChannelDiscord = "discord"
	ChannelSlack   = "slack"
	ChannelPubSub  = "pubsub"
)

// Store backends accepted in STORE_BACKEND.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

var (
	// ErrMissingDestination means a selected notification channel has no
	// usable destination. The worker must not start without one.
	ErrMissingDestination = errors.New("notification destination not configured")

	// ErrUnknownChannel means NOTIFY_CHANNEL names an unsupported channel.
	ErrUnknownChannel = errors.New("unknown notification channel")
)

// WorkerConfig holds the worker settings. Every field has a default, and
// LoadConfigFromEnv replaces invalid values with those defaults.
type WorkerConfig struct {
	// CheckInterval separates scheduled cycles. Env: CHECK_INTERVAL (10s-24h, default 2m)
	CheckInterval time.Duration

	// RateDelay separates group checks inside a cycle. Env: RATE_DELAY (0-1m, default 900ms)
	RateDelay time.Duration

	// MaxRetries is the number of retries after the first attempt. Env: MAX_RETRIES (0-10, default 2)
	MaxRetries int

	// RetryBaseDelay scales the backoff. Env: RETRY_BASE_DELAY (10ms-30s, default 500ms)
	RetryBaseDelay time.Duration

	// RequestTimeout bounds each group API request. Env: REQUEST_TIMEOUT (1s-2m, default 8s)
	RequestTimeout time.Duration

	// GroupAPIBaseURL is the remote API root. Env: GROUP_API_BASE_URL
	GroupAPIBaseURL string

	// GroupURLTemplate renders the link in alerts; "{id}" is replaced. Env: GROUP_URL_TEMPLATE
	GroupURLTemplate string

	DiscoveryEnabled  bool     // DISCOVERY_ENABLED (default true)
	DiscoveryPages    int      // DISCOVERY_PAGES (1-50, default 3)
	DiscoveryPageSize int      // DISCOVERY_PAGE_SIZE (1-100, default 100)
	DiscoveryKeyword  string   // DISCOVERY_KEYWORD (default "group")
	DiscoveryPageURLs []string // DISCOVERY_PAGE_URLS, comma-separated HTML pages to scan for group links
	DiscoveryPersist  bool     // DISCOVERY_PERSIST (default false)

	// StoreBackend selects persistence. Env: STORE_BACKEND (file|postgres, default file)
	StoreBackend   string
	CandidatesFile string // CANDIDATES_FILE (default data/candidates.json)
	ReportedFile   string // REPORTED_FILE (default data/reported.json)
	DatabaseURL    string // DATABASE_URL, required for postgres

	// SeedFile is an optional YAML watchlist. Env: CANDIDATES_SEED_FILE
	SeedFile string

	HTTPPort    int // HTTP_PORT (1024-65535, default 8080)
	MetricsPort int // METRICS_PORT (1024-65535, default 9090)

	// ControlJWTSecret enables bearer auth on mutating control routes. Env: CONTROL_JWT_SECRET
	ControlJWTSecret string

	Notify NotifyConfig
}

// NotifyConfig selects notification channels and their destinations.
type NotifyConfig struct {
	Channels          []string      // NOTIFY_CHANNEL, comma-separated (default discord)
	DiscordWebhookURL string        // DISCORD_WEBHOOK_URL
	SlackWebhookURL   string        // SLACK_WEBHOOK_URL
	PubSubProjectID   string        // PUBSUB_PROJECT_ID
	PubSubTopicID     string        // PUBSUB_TOPIC_ID
	Timeout           time.Duration // NOTIFY_TIMEOUT (1s-1m, default 10s)
}

// DefaultConfig returns the worker defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CheckInterval:     2 * time.Minute,
		RateDelay:         900 * time.Millisecond,
		MaxRetries:        2,
		RetryBaseDelay:    500 * time.Millisecond,
		RequestTimeout:    8 * time.Second,
		GroupAPIBaseURL:   "https://groups.roblox.com",
		GroupURLTemplate:  "https://www.roblox.com/groups/{id}",
		DiscoveryEnabled:  true,
		DiscoveryPages:    3,
		DiscoveryPageSize: 100,
		DiscoveryKeyword:  "group",
		StoreBackend:      StoreFile,
		CandidatesFile:    "data/candidates.json",
		ReportedFile:      "data/reported.json",
		HTTPPort:          8080,
		MetricsPort:       9090,
		Notify: NotifyConfig{
			Channels: []string{ChannelDiscord},
			Timeout:  10 * time.Second,
		},
	}
}

// LoadConfigFromEnv loads the worker configuration with the fail-open
// strategy: invalid values fall back to defaults with a warning and a
// fallback metric. It never returns an error; destination checks happen in
// NotifyConfig.Validate.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	t := config.NewTracker(logger, cm)

	cfg.CheckInterval = config.Use(t, "check_interval", config.LoadEnvDuration("CHECK_INTERVAL", cfg.CheckInterval, durationIn(10*time.Second, 24*time.Hour)))
	cfg.RateDelay = config.Use(t, "rate_delay", config.LoadEnvDuration("RATE_DELAY", cfg.RateDelay, durationIn(0, time.Minute)))
	cfg.MaxRetries = config.Use(t, "max_retries", config.LoadEnvInt("MAX_RETRIES", cfg.MaxRetries, intIn(0, 10)))
	cfg.RetryBaseDelay = config.Use(t, "retry_base_delay", config.LoadEnvDuration("RETRY_BASE_DELAY", cfg.RetryBaseDelay, durationIn(10*time.Millisecond, 30*time.Second)))
	cfg.RequestTimeout = config.Use(t, "request_timeout", config.LoadEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout, durationIn(time.Second, 2*time.Minute)))
	cfg.GroupAPIBaseURL = config.Use(t, "group_api_base_url", config.LoadEnvWithFallback("GROUP_API_BASE_URL", cfg.GroupAPIBaseURL, config.ValidateHTTPURL))
	cfg.GroupURLTemplate = config.Use(t, "group_url_template", config.LoadEnvWithFallback("GROUP_URL_TEMPLATE", cfg.GroupURLTemplate, validateURLTemplate))

	cfg.DiscoveryEnabled = config.Use(t, "discovery_enabled", config.LoadEnvBool("DISCOVERY_ENABLED", cfg.DiscoveryEnabled))
	cfg.DiscoveryPages = config.Use(t, "discovery_pages", config.LoadEnvInt("DISCOVERY_PAGES", cfg.DiscoveryPages, intIn(1, 50)))
	cfg.DiscoveryPageSize = config.Use(t, "discovery_page_size", config.LoadEnvInt("DISCOVERY_PAGE_SIZE", cfg.DiscoveryPageSize, intIn(1, 100)))
	cfg.DiscoveryKeyword = config.LoadEnvString("DISCOVERY_KEYWORD", cfg.DiscoveryKeyword)
	cfg.DiscoveryPageURLs = config.LoadEnvList("DISCOVERY_PAGE_URLS", nil)
	cfg.DiscoveryPersist = config.Use(t, "discovery_persist", config.LoadEnvBool("DISCOVERY_PERSIST", cfg.DiscoveryPersist))

	cfg.StoreBackend = config.Use(t, "store_backend", config.LoadEnvWithFallback("STORE_BACKEND", cfg.StoreBackend, config.OneOf(StoreFile, StorePostgres)))
	cfg.CandidatesFile = config.LoadEnvString("CANDIDATES_FILE", cfg.CandidatesFile)
	cfg.ReportedFile = config.LoadEnvString("REPORTED_FILE", cfg.ReportedFile)
	cfg.DatabaseURL = config.LoadEnvString("DATABASE_URL", "")
	cfg.SeedFile = config.LoadEnvString("CANDIDATES_SEED_FILE", "")

	cfg.HTTPPort = config.Use(t, "http_port", config.LoadEnvInt("HTTP_PORT", cfg.HTTPPort, intIn(1024, 65535)))
	cfg.MetricsPort = config.Use(t, "metrics_port", config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, intIn(1024, 65535)))
	cfg.ControlJWTSecret = config.LoadEnvString("CONTROL_JWT_SECRET", "")

	cfg.Notify.Channels = normalizeChannels(config.LoadEnvList("NOTIFY_CHANNEL", cfg.Notify.Channels))
	cfg.Notify.DiscordWebhookURL = config.LoadEnvString("DISCORD_WEBHOOK_URL", "")
	cfg.Notify.SlackWebhookURL = config.LoadEnvString("SLACK_WEBHOOK_URL", "")
	cfg.Notify.PubSubProjectID = config.LoadEnvString("PUBSUB_PROJECT_ID", "")
	cfg.Notify.PubSubTopicID = config.LoadEnvString("PUBSUB_TOPIC_ID", "")
	cfg.Notify.Timeout = config.Use(t, "notify_timeout", config.LoadEnvDuration("NOTIFY_TIMEOUT", cfg.Notify.Timeout, durationIn(time.Second, time.Minute)))

	if cfg.StoreBackend == StorePostgres && cfg.DatabaseURL == "" {
		cfg.StoreBackend = config.Use(t, "store_backend", config.LoadResult[string]{
			Value:           StoreFile,
			Warning:         "STORE_BACKEND=postgres requires DATABASE_URL, falling back to default 'file'",
			FallbackApplied: true,
		})
	}

	t.Finish()
	return &cfg, nil
}

// Validate checks that every selected channel has a usable destination.
func (n NotifyConfig) Validate() error {
	if len(n.Channels) == 0 {
		return fmt.Errorf("%w: NOTIFY_CHANNEL is empty", ErrMissingDestination)
	}
	var errs []error
	for _, ch := range n.Channels {
		switch ch {
		case ChannelDiscord:
			if err := validateWebhook(n.DiscordWebhookURL, "DISCORD_WEBHOOK_URL", []string{"discord.com", "discordapp.com"}, "/api/webhooks/"); err != nil {
				errs = append(errs, err)
			}
		case ChannelSlack:
			if err := validateWebhook(n.SlackWebhookURL, "SLACK_WEBHOOK_URL", []string{"hooks.slack.com"}, "/services/"); err != nil {
				errs = append(errs, err)
			}
		case ChannelPubSub:
			if n.PubSubProjectID == "" || n.PubSubTopicID == "" {
				errs = append(errs, fmt.Errorf("%w: PUBSUB_PROJECT_ID and PUBSUB_TOPIC_ID are required", ErrMissingDestination))
			}
		default:
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownChannel, ch))
		}
	}
	return errors.Join(errs...)
}

func validateWebhook(raw, envKey string, hosts []string, pathPrefix string) error {
	if raw == "" {
		return fmt.Errorf("%w: %s is empty", ErrMissingDestination, envKey)
	}
	if err := entity.ValidateURL(raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMissingDestination, envKey, err)
	}
	u, _ := url.Parse(raw)
	if u.Scheme != "https" {
		return fmt.Errorf("%w: %s must use https", ErrMissingDestination, envKey)
	}
	hostOK := false
	for _, h := range hosts {
		if u.Host == h {
			hostOK = true
			break
		}
	}
	if !hostOK {
		return fmt.Errorf("%w: %s host %q not allowed", ErrMissingDestination, envKey, u.Host)
	}
	if !strings.HasPrefix(u.Path, pathPrefix) {
		return fmt.Errorf("%w: %s path must start with %s", ErrMissingDestination, envKey, pathPrefix)
	}
	return nil
}

func validateURLTemplate(s string) error {
	if !strings.Contains(s, "{id}") {
		return fmt.Errorf("template must contain {id}")
	}
	return entity.ValidateURL(strings.ReplaceAll(s, "{id}", "1"))
}

func normalizeChannels(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, ch := range in {
		ch = strings.ToLower(ch)
		if !seen[ch] {
			seen[ch] = true
			out = append(out, ch)
		}
	}
	return out
}

func durationIn(min, max time.Duration) func(time.Duration) error {
	return func(d time.Duration) error { return config.ValidateDuration(d, min, max) }
}

func intIn(min, max int) func(int) error {
	return func(v int) error { return config.ValidateIntRange(v, min, max) }
}
