package worker

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2*time.Minute, cfg.CheckInterval)
	assert.Equal(t, 900*time.Millisecond, cfg.RateDelay)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 8*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.DiscoveryEnabled)
	assert.Equal(t, 3, cfg.DiscoveryPages)
	assert.Equal(t, 100, cfg.DiscoveryPageSize)
	assert.False(t, cfg.DiscoveryPersist)
	assert.Equal(t, StoreFile, cfg.StoreBackend)
	assert.Equal(t, []string{ChannelDiscord}, cfg.Notify.Channels)
}

func TestLoadConfigFromEnv_Values(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "5m")
	t.Setenv("RATE_DELAY", "0s")
	t.Setenv("MAX_RETRIES", "4")
	t.Setenv("DISCOVERY_ENABLED", "false")
	t.Setenv("DISCOVERY_PAGE_URLS", "https://a.example/list, https://b.example/list")
	t.Setenv("DISCOVERY_PERSIST", "true")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/groupwatch")
	t.Setenv("NOTIFY_CHANNEL", "Slack,pubsub,slack")
	t.Setenv("GROUP_URL_TEMPLATE", "https://example.test/g/{id}")

	metrics := NewWorkerMetrics(prometheus.NewRegistry())
	cfg, err := LoadConfigFromEnv(slog.Default(), metrics)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.CheckInterval)
	assert.Equal(t, time.Duration(0), cfg.RateDelay)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.False(t, cfg.DiscoveryEnabled)
	assert.Equal(t, []string{"https://a.example/list", "https://b.example/list"}, cfg.DiscoveryPageURLs)
	assert.True(t, cfg.DiscoveryPersist)
	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, []string{ChannelSlack, ChannelPubSub}, cfg.Notify.Channels)
	assert.Equal(t, "https://example.test/g/{id}", cfg.GroupURLTemplate)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.FallbackActive))
}

func TestLoadConfigFromEnv_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
		check func(t *testing.T, cfg *WorkerConfig)
	}{
		{
			name: "interval too short", key: "CHECK_INTERVAL", value: "1s", field: "check_interval",
			check: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 2*time.Minute, cfg.CheckInterval) },
		},
		{
			name: "retries not a number", key: "MAX_RETRIES", value: "many", field: "max_retries",
			check: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 2, cfg.MaxRetries) },
		},
		{
			name: "page size too large", key: "DISCOVERY_PAGE_SIZE", value: "500", field: "discovery_page_size",
			check: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, 100, cfg.DiscoveryPageSize) },
		},
		{
			name: "base url without scheme", key: "GROUP_API_BASE_URL", value: "groups.example", field: "group_api_base_url",
			check: func(t *testing.T, cfg *WorkerConfig) {
				assert.Equal(t, "https://groups.roblox.com", cfg.GroupAPIBaseURL)
			},
		},
		{
			name: "template without placeholder", key: "GROUP_URL_TEMPLATE", value: "https://example.test/g", field: "group_url_template",
			check: func(t *testing.T, cfg *WorkerConfig) {
				assert.Equal(t, "https://www.roblox.com/groups/{id}", cfg.GroupURLTemplate)
			},
		},
		{
			name: "postgres without dsn", key: "STORE_BACKEND", value: "postgres", field: "store_backend",
			check: func(t *testing.T, cfg *WorkerConfig) { assert.Equal(t, StoreFile, cfg.StoreBackend) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			t.Setenv("DATABASE_URL", "")

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			metrics := NewWorkerMetrics(prometheus.NewRegistry())

			cfg, err := LoadConfigFromEnv(logger, metrics)
			require.NoError(t, err)

			tt.check(t, cfg)
			assert.Contains(t, buf.String(), "Configuration fallback applied")
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbacksTotal.WithLabelValues(tt.field)))
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FallbackActive))
		})
	}
}

func TestLoadConfigFromEnv_NilMetrics(t *testing.T) {
	t.Setenv("MAX_RETRIES", "-1")

	cfg, err := LoadConfigFromEnv(slog.Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxRetries)
}

func TestNotifyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     NotifyConfig
		wantErr error
	}{
		{
			name: "discord ok",
			cfg:  NotifyConfig{Channels: []string{ChannelDiscord}, DiscordWebhookURL: "https://discord.com/api/webhooks/1/abc"},
		},
		{
			name: "slack ok",
			cfg:  NotifyConfig{Channels: []string{ChannelSlack}, SlackWebhookURL: "https://hooks.slack.com/services/T/B/X"},
		},
		{
			name: "pubsub ok",
			cfg:  NotifyConfig{Channels: []string{ChannelPubSub}, PubSubProjectID: "p", PubSubTopicID: "t"},
		},
		{
			name:    "discord missing",
			cfg:     NotifyConfig{Channels: []string{ChannelDiscord}},
			wantErr: ErrMissingDestination,
		},
		{
			name:    "discord wrong host",
			cfg:     NotifyConfig{Channels: []string{ChannelDiscord}, DiscordWebhookURL: "https://evil.example/api/webhooks/1"},
			wantErr: ErrMissingDestination,
		},
		{
			name:    "discord private address",
			cfg:     NotifyConfig{Channels: []string{ChannelDiscord}, DiscordWebhookURL: "https://10.0.0.5/api/webhooks/1/abc"},
			wantErr: ErrMissingDestination,
		},
		{
			name:    "slack over http",
			cfg:     NotifyConfig{Channels: []string{ChannelSlack}, SlackWebhookURL: "http://hooks.slack.com/services/x"},
			wantErr: ErrMissingDestination,
		},
		{
			name:    "pubsub without topic",
			cfg:     NotifyConfig{Channels: []string{ChannelPubSub}, PubSubProjectID: "p"},
			wantErr: ErrMissingDestination,
		},
		{
			name:    "no channels",
			cfg:     NotifyConfig{},
			wantErr: ErrMissingDestination,
		},
		{
			name:    "unknown channel",
			cfg:     NotifyConfig{Channels: []string{"email"}},
			wantErr: ErrUnknownChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
