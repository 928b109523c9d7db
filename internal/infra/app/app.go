package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/core/port"
	"github.com/SATANA888791/mail-registry/internal/infra/config"
	"github.com/SATANA888791/mail-registry/internal/infra/database"
	"github.com/SATANA888791/mail-registry/internal/infra/kafka"
	"github.com/SATANA888791/mail-registry/internal/infra/logger"
	infraredis "github.com/SATANA888791/mail-registry/internal/infra/redis"
	"github.com/SATANA888791/mail-registry/internal/infra/security"
	"github.com/SATANA888791/mail-registry/internal/infra/telemetry"
	"github.com/SATANA888791/mail-registry/internal/repository/postgres"
	repoRedis "github.com/SATANA888791/mail-registry/internal/repository/redis"
	"github.com/SATANA888791/mail-registry/internal/transport/http/middleware"
	"github.com/SATANA888791/mail-registry/internal/transport/http/routes"
	"github.com/SATANA888791/mail-registry/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// App owns the process lifecycle: wiring, serving, and graceful shutdown.
type App struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *infraredis.Client
	producer *kafka.Producer
	server   *http.Server
}

// New wires configuration into a runnable application.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})

	metrics, err := telemetry.Attach(cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := infraredis.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var (
		producer  *kafka.Producer
		publisher port.NotificationPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka producer: %w", err)
		}
		publisher = kafka.NewEventPublisher(producer, cfg.App, log)
	} else {
		log.Warn("no kafka brokers configured, events will only be logged")
		publisher = kafka.NewStubPublisher(log)
	}

	tokens, err := security.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	presence := repoRedis.NewPresenceStore(redisClient.Client(), cfg.Redis.PresencePrefix, cfg.Redis.PresenceTTL)
	rateLimitStore := repoRedis.NewRateLimitRepository(redisClient.Client(), repoRedis.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       cfg.RateLimit.WindowDuration * 2,
	})

	clock := port.SystemClock{}

	numbering := usecase.NewNumberingService(repos.Sequences, repos.Letters, clock, log, metrics)
	letters := usecase.NewLetterService(repos.Letters, repos.Attachments, numbering, clock, log)
	auth := usecase.NewAuthService(
		repos.Accounts,
		repos.Attempts,
		repos.BlockHistory,
		publisher,
		tokens,
		clock,
		log,
		usecase.WithPresenceStore(presence),
		usecase.WithNotifications(cfg.Lockout.NotificationsEnabled),
		usecase.WithMetrics(metrics),
	)
	users := usecase.NewUserAdminService(
		repos.Accounts,
		repos.BlockHistory,
		repos.Attempts,
		publisher,
		presence,
		clock,
		log,
	)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		HTTPMetrics: newHTTPMetrics(),
		Services: routes.ServiceSet{
			Auth:      auth,
			Numbering: numbering,
			Letters:   letters,
			Users:     users,
		},
		Database: pool,
		Cache:    redisClient,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		cfg:      cfg,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		server:   server,
	}, nil
}

func newHTTPMetrics() *middleware.HTTPMetrics {
	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
		Namespace: "registry",
	})
	if err != nil {
		return nil
	}
	return metrics
}

// Run serves HTTP until the context is cancelled or a signal arrives, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown failed", zap.Error(err))
	}

	a.Close()
	return nil
}

// Close releases all backing resources.
func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka close failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.logger.Sync()
}
