package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() Message {
	return Message{
		Title:       "Unclaimed group found: Builders",
		URL:         "https://www.roblox.com/groups/123456",
		GroupID:     "123456",
		GroupName:   "Builders",
		Description: "A place to build",
		Fields: []Field{
			{Name: "Group ID", Value: "123456", Inline: true},
			{Name: "Owner", Value: "none (unclaimed)", Inline: true},
		},
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDiscordNotifier_Notify_Success(t *testing.T) {
	var got DiscordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL, Timeout: time.Second})
	require.NoError(t, n.Notify(context.Background(), testMessage()))

	assert.Contains(t, got.Content, "https://www.roblox.com/groups/123456")
	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, "Unclaimed group found: Builders", embed.Title)
	assert.Equal(t, "A place to build", embed.Description)
	assert.Equal(t, "https://www.roblox.com/groups/123456", embed.URL)
	assert.Equal(t, discordAlertColor, embed.Color)
	assert.Equal(t, "Group 123456", embed.Footer.Text)
	assert.Equal(t, "2026-01-02T03:04:05Z", embed.Timestamp)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, DiscordEmbedField{Name: "Owner", Value: "none (unclaimed)", Inline: true}, embed.Fields[1])
}

func TestDiscordNotifier_Notify_RateLimitedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"You are being rate limited.","retry_after":1.5}`))
	}))
	defer server.Close()

	n := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL, Timeout: time.Second})
	err := n.Notify(context.Background(), testMessage())

	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr), "expected RateLimitError, got %v", err)
	assert.Equal(t, 1500*time.Millisecond, rateErr.RetryAfter)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDiscordNotifier_Notify_ErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"client error", http.StatusBadRequest, func(t *testing.T, err error) {
			var e *StatusError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, http.StatusBadRequest, e.StatusCode)
			assert.True(t, e.Permanent())
		}},
		{"server error", http.StatusBadGateway, func(t *testing.T, err error) {
			var e *StatusError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, http.StatusBadGateway, e.StatusCode)
			assert.False(t, e.Permanent())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			n := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL, Timeout: time.Second})
			err := n.Notify(context.Background(), testMessage())
			tt.check(t, err)
			assert.Equal(t, int32(1), calls.Load(), "exactly one delivery attempt")
		})
	}
}

func TestDiscordNotifier_Notify_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	n := NewDiscordNotifier(DiscordConfig{WebhookURL: server.URL, Timeout: 30 * time.Millisecond})
	err := n.Notify(context.Background(), testMessage())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "execute http request"), err.Error())
}
