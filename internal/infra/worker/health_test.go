package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupwatch/internal/usecase/notify"
)

type stubChannels []notify.ChannelHealthStatus

func (s stubChannels) GetChannelHealth() []notify.ChannelHealthStatus { return s }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthServer_Liveness(t *testing.T) {
	server := NewHealthServer(":0", nil, nil, nil)

	rec := get(t, server.Handler(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthServer_Readiness(t *testing.T) {
	metrics := NewWorkerMetrics(prometheus.NewRegistry())
	server := NewHealthServer(":0", nil, nil, metrics)
	handler := server.Handler()

	rec := get(t, handler, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not ready"}`, rec.Body.String())

	server.SetReady(true)
	rec = get(t, handler, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthServer_Channels(t *testing.T) {
	until := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)

	tests := []struct {
		name        string
		channels    ChannelHealthSource
		wantCode    int
		wantHealthy bool
	}{
		{
			name:        "all closed",
			channels:    stubChannels{{Name: "discord", Enabled: true}},
			wantCode:    http.StatusOK,
			wantHealthy: true,
		},
		{
			name: "enabled channel paused",
			channels: stubChannels{
				{Name: "discord", Enabled: true, CircuitBreakerOpen: true, DisabledUntil: &until},
				{Name: "slack", Enabled: true},
			},
			wantCode:    http.StatusServiceUnavailable,
			wantHealthy: false,
		},
		{
			name:        "disabled channel paused is ignored",
			channels:    stubChannels{{Name: "pubsub", Enabled: false, CircuitBreakerOpen: true}},
			wantCode:    http.StatusOK,
			wantHealthy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, NewHealthServer(":0", nil, tt.channels, nil).Handler(), "/health/channels")

			assert.Equal(t, tt.wantCode, rec.Code)
			var body channelHealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantHealthy, body.Healthy)
		})
	}

	rec := get(t, NewHealthServer(":0", nil, nil, nil).Handler(), "/health/channels")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthServer_Metrics(t *testing.T) {
	rec := get(t, NewHealthServer(":0", nil, nil, nil).Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthServer_StartAndShutdown(t *testing.T) {
	server := NewHealthServer("127.0.0.1:0", nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(7 * time.Second):
		t.Fatal("server did not shut down")
	}
}
