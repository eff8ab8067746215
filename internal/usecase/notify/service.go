package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/infra/notifier"
)

const (
	defaultFailureThreshold = 5
	defaultOpenDuration     = 5 * time.Minute
	defaultSendTimeout      = 10 * time.Second
)

// Service delivers unclaimed-group alerts.
type Service interface {
	// NotifyGroup sends one alert for record to every enabled channel and
	// returns nil if at least one channel acknowledged it. Nothing is retried.
	NotifyGroup(ctx context.Context, record *entity.GroupRecord) error

	// GetChannelHealth returns the circuit state of each channel.
	GetChannelHealth() []ChannelHealthStatus
}

// Config tunes the service. Zero values use defaults.
type Config struct {
	// GroupURLTemplate renders the link in each alert, see notifier.GroupURL.
	GroupURLTemplate string

	// SendTimeout bounds each channel delivery.
	SendTimeout time.Duration

	// FailureThreshold consecutive failures pause a channel for OpenDuration.
	FailureThreshold int
	OpenDuration     time.Duration
}

// ChannelHealthStatus represents the health status of a notification channel.
type ChannelHealthStatus struct {
	Name                string     `json:"name"`
	Enabled             bool       `json:"enabled"`
	CircuitBreakerOpen  bool       `json:"circuit_breaker_open"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	DisabledUntil       *time.Time `json:"disabled_until,omitempty"`
}

type service struct {
	channels []Channel
	cfg      Config
	now      func() time.Time

	healthMu sync.Mutex
	health   map[string]*channelHealth
}

type channelHealth struct {
	consecutiveFailures int
	disabledUntil       time.Time
}

// NewService creates a notification service over channels.
func NewService(channels []Channel, cfg Config) Service {
	return newService(channels, cfg, time.Now)
}

func newService(channels []Channel, cfg Config, now func() time.Time) *service {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = defaultOpenDuration
	}

	svc := &service{
		channels: channels,
		cfg:      cfg,
		now:      now,
		health:   make(map[string]*channelHealth, len(channels)),
	}
	enabled := 0
	for _, ch := range channels {
		svc.health[ch.Name()] = &channelHealth{}
		if ch.IsEnabled() {
			enabled++
		}
	}
	channelsEnabled.Set(float64(enabled))
	return svc
}

// NotifyGroup implements Service.NotifyGroup.
func (s *service) NotifyGroup(ctx context.Context, record *entity.GroupRecord) error {
	if record == nil || !record.ID.Valid() {
		return ErrInvalidRecord
	}

	requestID := notifier.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = notifier.WithRequestID(ctx, requestID)
	}

	msg := notifier.NewMessage(record, s.cfg.GroupURLTemplate)

	var (
		delivered int
		attempted int
		errs      []error
	)
	for _, ch := range s.channels {
		if !ch.IsEnabled() {
			continue
		}
		attempted++
		if err := s.send(ctx, requestID, ch, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		delivered++
	}

	if attempted == 0 {
		return ErrNoChannels
	}
	if delivered == 0 {
		return fmt.Errorf("%w: %w", ErrNotDelivered, errors.Join(errs...))
	}
	if len(errs) > 0 {
		slog.Warn("Notification delivered on some channels only",
			slog.String("request_id", requestID),
			slog.String("group_id", string(record.ID)),
			slog.Int("delivered", delivered),
			slog.Any("error", errors.Join(errs...)))
	}
	return nil
}

// send performs one delivery on ch, honoring and updating its circuit state.
func (s *service) send(ctx context.Context, requestID string, ch Channel, msg notifier.Message) (err error) {
	name := ch.Name()

	if until, open := s.openUntil(name); open {
		slog.Warn("Channel temporarily disabled due to circuit breaker",
			slog.String("request_id", requestID),
			slog.String("channel", name),
			slog.Time("disabled_until", until))
		deliveriesTotal.WithLabelValues(name, resultPaused).Inc()
		return ErrCircuitBreakerOpen
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in notification channel",
				slog.String("request_id", requestID),
				slog.String("channel", name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic in channel %s: %v", name, r)
			s.recordResult(name, err)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	start := time.Now()
	err = ch.Send(sendCtx, msg)
	duration := time.Since(start)
	s.recordResult(name, err)
	observeDelivery(name, err, duration)

	if err != nil {
		slog.Warn("Channel notification failed",
			slog.String("request_id", requestID),
			slog.String("channel", name),
			slog.String("group_id", string(msg.GroupID)),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
		return err
	}

	slog.Info("Channel notification sent successfully",
		slog.String("request_id", requestID),
		slog.String("channel", name),
		slog.String("group_id", string(msg.GroupID)),
		slog.Duration("send_duration", duration))
	return nil
}

func (s *service) openUntil(name string) (time.Time, bool) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	h := s.health[name]
	if h != nil && s.now().Before(h.disabledUntil) {
		return h.disabledUntil, true
	}
	return time.Time{}, false
}

func (s *service) recordResult(name string, err error) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	h, ok := s.health[name]
	if !ok {
		h = &channelHealth{}
		s.health[name] = h
	}
	if err == nil {
		h.consecutiveFailures = 0
		channelPaused.WithLabelValues(name).Set(0)
		return
	}
	h.consecutiveFailures++
	if h.consecutiveFailures >= s.cfg.FailureThreshold {
		h.disabledUntil = s.now().Add(s.cfg.OpenDuration)
		h.consecutiveFailures = 0
		slog.Error("Circuit breaker opened for channel",
			slog.String("channel", name),
			slog.Time("disabled_until", h.disabledUntil))
		channelPaused.WithLabelValues(name).Set(1)
	}
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	now := s.now()
	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		h := s.health[ch.Name()]
		status := ChannelHealthStatus{
			Name:                ch.Name(),
			Enabled:             ch.IsEnabled(),
			ConsecutiveFailures: h.consecutiveFailures,
		}
		if now.Before(h.disabledUntil) {
			until := h.disabledUntil
			status.CircuitBreakerOpen = true
			status.DisabledUntil = &until
		}
		statuses = append(statuses, status)
	}
	return statuses
}
