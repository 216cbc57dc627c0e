package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/api"
	"github.com/ratehub/rating-notifications/internal/broker"
	"github.com/ratehub/rating-notifications/internal/config"
	"github.com/ratehub/rating-notifications/internal/db"
	"github.com/ratehub/rating-notifications/internal/metrics"
	"github.com/ratehub/rating-notifications/internal/ratelimiter"
	"github.com/ratehub/rating-notifications/internal/repository"
	"github.com/ratehub/rating-notifications/internal/service"
	"github.com/ratehub/rating-notifications/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- notification store (backend chosen by config) ----
	var st store.Store
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		client, err := db.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer client.Close() //nolint:errcheck
		st = store.NewRedisStore(client, cfg.Retention, logger)
	default:
		st = store.NewMemoryStore()
	}
	logger.Info("notification store ready", zap.String("backend", cfg.StoreBackend))

	// ---- broker (one connection and channel per process) ----
	conn, err := broker.Connect(ctx, cfg.AMQPURL, cfg.BrokerRetryAttempts, cfg.BrokerRetryInterval)
	if err != nil {
		logger.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("broker close error", zap.Error(err))
		}
	}()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	pub := broker.NewAMQPPublisher(conn.Channel(), cfg.QueueName, logger, m.PublishFailures.Inc)
	repo := repository.NewPgRatingRepository(pool)
	limiter := ratelimiter.New(cfg.PollRateLimit)
	ratings := service.NewRatingService(repo, pub, logger)
	notifications := service.NewNotificationService(st, logger)

	// ---- consumer ----
	// Context for the consumer loop; cancelled on shutdown signal.
	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()

	consumer := broker.NewConsumer(conn.Channel(), cfg.QueueName, st, logger, m.ConsumerHooks())
	if err := consumer.Start(consumerCtx); err != nil {
		logger.Fatal("failed to start consumer", zap.Error(err))
	}

	// ---- HTTP server ----
	router := api.NewRouter(ratings, notifications, limiter, m, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the consumer to stop accepting deliveries.
	cancelConsumer()

	// 3. Wait for the in-flight delivery to resolve its ack/nack before
	// the deferred broker close tears down the channel.
	consumer.Wait()

	logger.Info("server stopped cleanly")
}
