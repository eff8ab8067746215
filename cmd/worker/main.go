// Command worker runs the group watcher: a scheduled scan loop, the control
// API and the metrics/health endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"groupwatch/internal/domain/entity"
	hhttp "groupwatch/internal/handler/http"
	"groupwatch/internal/handler/http/auth"
	"groupwatch/internal/handler/http/control"
	"groupwatch/internal/infra/groupapi"
	"groupwatch/internal/infra/notifier"
	"groupwatch/internal/infra/scraper"
	workerPkg "groupwatch/internal/infra/worker"
	"groupwatch/internal/observability/logging"
	"groupwatch/internal/observability/metrics"
	"groupwatch/internal/observability/tracing"
	"groupwatch/internal/resilience/retry"
	"groupwatch/internal/usecase/notify"
	"groupwatch/internal/usecase/scan"
)

const serviceName = "groupwatch-worker"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	logger := logging.Setup(serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("worker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	shutdownTracing := tracing.InitProvider(serviceName, getVersion())
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	workerMetrics := workerPkg.NewWorkerMetrics(nil)
	cfg, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Notify.Validate(); err != nil {
		return fmt.Errorf("notification config: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.Duration("check_interval", cfg.CheckInterval),
		slog.Duration("rate_delay", cfg.RateDelay),
		slog.Any("notify_channels", cfg.Notify.Channels),
		slog.String("store_backend", cfg.StoreBackend),
		slog.Bool("discovery_enabled", cfg.DiscoveryEnabled),
		slog.Int("http_port", cfg.HTTPPort),
		slog.Int("metrics_port", cfg.MetricsPort))

	channels, closeChannels, err := setupChannels(ctx, logger, cfg.Notify)
	if err != nil {
		return err
	}
	defer closeChannels()
	notifyService := notify.NewService(channels, notify.Config{
		GroupURLTemplate: cfg.GroupURLTemplate,
		SendTimeout:      cfg.Notify.Timeout,
	})

	st, err := workerPkg.OpenStores(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()
	if st.DB() != nil {
		if err := metrics.RegisterDBStats(nil, st.DB(), "groupwatch"); err != nil {
			logger.Warn("db stats collector not registered", slog.Any("error", err))
		}
	}

	seeds, err := scan.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("seed file: %w", err)
	}
	if len(seeds) > 0 {
		logger.Info("seed watchlist loaded", slog.String("path", cfg.SeedFile), slog.Int("entries", len(seeds)))
	}

	policy := retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay}
	apiClient := groupapi.NewClient(groupapi.Config{
		BaseURL:        cfg.GroupAPIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		Retry:          policy,
		PageDelay:      cfg.RateDelay,
		Keyword:        cfg.DiscoveryKeyword,
	}, nil)

	engine := scan.NewEngine(scan.Deps{
		Candidates: st.Candidates,
		Reported:   st.Reported,
		Fetcher:    apiClient,
		Notifier:   notifyService,
		Sources:    discoverySources(cfg, apiClient, policy),
	}, scan.Config{
		RateDelay:         cfg.RateDelay,
		Seeds:             seeds,
		PersistDiscovered: cfg.DiscoveryPersist,
	})
	scheduler := scan.NewScheduler(engine, cfg.CheckInterval, workerMetrics.ObserveCycle)

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.MetricsPort), logger, notifyService, workerMetrics)

	mux := http.NewServeMux()
	control.Register(mux, control.Deps{
		Scanner:    scheduler,
		Candidates: st.Candidates,
		Reported:   st.Reported,
	}, auth.NewAuthenticator(cfg.ControlJWTSecret))
	if cfg.ControlJWTSecret == "" {
		logger.Warn("CONTROL_JWT_SECRET not set, mutating control routes are unauthenticated")
	}
	controlServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           hhttp.Wrap(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := healthServer.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return serveControl(gctx, logger, controlServer)
	})
	g.Go(func() error {
		healthServer.SetReady(true)
		defer healthServer.SetReady(false)
		return scheduler.Start(gctx)
	})
	return g.Wait()
}

// serveControl runs srv until ctx is done, then drains it for up to 10s.
func serveControl(ctx context.Context, logger *slog.Logger, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("control server starting", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("control server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down control server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control server shutdown: %w", err)
	}
	return nil
}

// setupChannels builds one notify.Channel per configured destination.
// The returned cleanup releases Pub/Sub resources.
func setupChannels(ctx context.Context, logger *slog.Logger, cfg workerPkg.NotifyConfig) ([]notify.Channel, func(), error) {
	var (
		channels []notify.Channel
		cleanups []func()
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	for _, name := range cfg.Channels {
		switch name {
		case workerPkg.ChannelDiscord:
			channels = append(channels, notify.NewChannel(name, notifier.NewDiscordNotifier(notifier.DiscordConfig{
				WebhookURL: cfg.DiscordWebhookURL,
				Timeout:    cfg.Timeout,
			})))
		case workerPkg.ChannelSlack:
			channels = append(channels, notify.NewChannel(name, notifier.NewSlackNotifier(notifier.SlackConfig{
				WebhookURL: cfg.SlackWebhookURL,
				Timeout:    cfg.Timeout,
			})))
		case workerPkg.ChannelPubSub:
			client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("pubsub client: %w", err)
			}
			topic := client.Topic(cfg.PubSubTopicID)
			cleanups = append(cleanups, func() {
				topic.Stop()
				if err := client.Close(); err != nil {
					logger.Warn("pubsub client close failed", slog.Any("error", err))
				}
			})
			channels = append(channels, notify.NewChannel(name, notifier.NewPubSubNotifier(topic, notifier.PubSubConfig{
				Timeout: cfg.Timeout,
			})))
		}
		logger.Info("notification channel initialized", slog.String("channel", name))
	}
	return channels, cleanup, nil
}

// discoverySources returns the enabled discovery sources: the group API
// search and, when page URLs are configured, HTML link scraping.
func discoverySources(cfg *workerPkg.WorkerConfig, apiClient *groupapi.Client, policy retry.Policy) []scan.DiscoverySource {
	if !cfg.DiscoveryEnabled {
		return nil
	}
	sources := []scan.DiscoverySource{{
		Name: "groupapi",
		Discover: func(ctx context.Context) ([]entity.GroupID, error) {
			return apiClient.Discover(ctx, cfg.DiscoveryPages, cfg.DiscoveryPageSize)
		},
	}}
	if len(cfg.DiscoveryPageURLs) > 0 {
		links := scraper.NewLinkScraper(&http.Client{Timeout: cfg.RequestTimeout}, policy)
		urls := cfg.DiscoveryPageURLs
		sources = append(sources, scan.DiscoverySource{
			Name: "links",
			Discover: func(ctx context.Context) ([]entity.GroupID, error) {
				return links.Discover(ctx, urls)
			},
		})
	}
	return sources
}

func getVersion() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
