package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/EcommerceGo/storefront/internal/cart"
	"github.com/utafrali/EcommerceGo/storefront/internal/config"
	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
	"github.com/utafrali/EcommerceGo/storefront/internal/event"
	handler "github.com/utafrali/EcommerceGo/storefront/internal/handler/http"
	"github.com/utafrali/EcommerceGo/storefront/internal/remote"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository"
	"github.com/utafrali/EcommerceGo/storefront/internal/repository/memory"
	redisrepo "github.com/utafrali/EcommerceGo/storefront/internal/repository/redis"
	"github.com/utafrali/EcommerceGo/storefront/internal/service"
	"github.com/utafrali/EcommerceGo/storefront/pkg/database"
	apperrors "github.com/utafrali/EcommerceGo/storefront/pkg/errors"
	"github.com/utafrali/EcommerceGo/storefront/pkg/health"
	"github.com/utafrali/EcommerceGo/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/EcommerceGo/storefront/pkg/kafka"
	"github.com/utafrali/EcommerceGo/storefront/pkg/middleware"
	"github.com/utafrali/EcommerceGo/storefront/pkg/tracing"
)

// CircuitOpenFallback answers storefront API calls while the breaker is open.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("storefront API is temporarily unavailable, please retry shortly")
}

// App wires together all dependencies and runs the storefront core.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	redis          *redis.Client
	producer       *pkgkafka.Producer
	unsubscribe    func()
	handler        http.Handler
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracingCfg := tracing.DefaultConfig("storefront-core")
	tracingCfg.Environment = cfg.Environment
	tracingCfg.OTLPEndpoint = cfg.OTELEndpoint
	tracingCfg.SampleRate = cfg.OTELSampleRate
	tracingCfg.Enabled = cfg.OTELEnabled
	tracerShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}
	healthHandler := health.NewHandler()

	// Identity store.
	var identity repository.IdentityRepository
	switch cfg.StoreBackend {
	case config.StoreRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPass
		redisCfg.DB = cfg.RedisDB
		client, err := database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			_ = tracerShutdown(context.Background())
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
			slog.String("installation_id", cfg.InstallationID),
		)
		a.redis = client
		identity = redisrepo.NewIdentityRepository(client, cfg.InstallationID)
		healthHandler.RegisterCritical("identity_store", database.RedisChecker(client))
	default:
		logger.Warn("using in-memory identity store; identity is lost on restart")
		identity = memory.NewIdentityRepository()
	}

	// Kafka activity events.
	if cfg.KafkaEnabled() {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}
	eventProducer := event.NewProducer(a.producer, cfg.InstallationID, logger)

	// Create HTTP client with circuit breaker for the storefront API.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.HTTPTimeoutDuration()
	httpCfg.MaxRetries = cfg.HTTPMaxRetries
	baseClient := httpclient.New(httpCfg)

	cbCfg := httpclient.DefaultCircuitBreakerConfig("storefront-api")
	cbCfg.MaxRequests = cfg.CBMaxRequests
	cbCfg.Interval = time.Duration(cfg.CBInterval) * time.Second
	cbCfg.Timeout = time.Duration(cfg.CBTimeout) * time.Second
	cbCfg.FailureRatio = cfg.CBFailureRatio
	cbCfg.MinRequests = cfg.CBMinRequests
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger).
		WithFallback(CircuitOpenFallback)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", cfg.CBTimeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)
	healthHandler.RegisterNonCritical("storefront_api", func(context.Context) error {
		if cbClient.State() == gobreaker.StateOpen {
			return errors.New("circuit breaker open")
		}
		return nil
	})

	api := remote.NewClient(cbClient, identity, remote.Config{
		BaseURL:    cfg.APIBaseURL,
		CDNBaseURL: cfg.CDNBaseURL,
		RateLimit:  cfg.APIRateLimit,
		RateBurst:  cfg.APIRateBurst,
	}, logger)

	// Build the dependency graph.
	container := cart.NewContainer()
	a.unsubscribe = container.Subscribe(func(items []domain.CartLineItem) {
		logger.Debug("cart changed", slog.Int("line_items", len(items)))
	})

	merge := service.NewMergeOrchestrator(api, identity, eventProducer, logger)
	syncService := service.NewSyncService(api, identity, container, eventProducer, logger, cfg.DiscardStaleFetches)
	services := handler.Services{
		Cart:    service.NewCartService(api, container, cfg.CDNBaseURL, logger),
		Sync:    syncService,
		Session: service.NewSessionService(api, identity, merge, syncService, container, logger),
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins
	cors.Environment = cfg.Environment

	a.handler = handler.NewRouter(services, healthHandler, logger, handler.RouterConfig{
		InstallationID: cfg.InstallationID,
		AllowedCIDRs:   cfg.BridgeAllowedCIDRs,
		CORS:           cors,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      70 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Handler returns the UI bridge router.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting UI bridge",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Redis client.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
