package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/cache"
	"github.com/haripatel07/ecommerce-backend/internal/catalog"
	"github.com/haripatel07/ecommerce-backend/internal/config"
	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/haripatel07/ecommerce-backend/internal/gateway"
	h "github.com/haripatel07/ecommerce-backend/internal/http"
	"github.com/haripatel07/ecommerce-backend/internal/publisher"
	"github.com/haripatel07/ecommerce-backend/internal/repository"
	s "github.com/haripatel07/ecommerce-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type orderPublisher interface {
	PublishOrderPaid(ctx context.Context, event domain.OrderPaidEvent) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect failed", "error", err)
		}
	}()
	logger.Info("connected to MongoDB", "database", cfg.MongoDatabase)

	orders := repository.NewMongoOrderRepository(mongoDB)
	if err := repository.EnsureIndexes(ctx, orders); err != nil {
		return err
	}
	products := repository.NewMongoProductRepository(mongoDB)

	var (
		productCache cache.ProductCache
		eventLog     cache.EventLog
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		logger.Info("redis ping succeeded", "addr", cfg.RedisAddr)

		productCache = cache.NewRedisProductCache(redisClient, cfg.ProductCacheTTL)
		eventLog = cache.NewRedisEventLog(redisClient, cfg.WebhookEventTTL)
	} else {
		logger.Warn("REDIS_ADDR empty, product cache and webhook dedupe disabled")
	}

	var events orderPublisher = publisher.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = publisher.NewKafkaPublisher(cfg.KafkaOrderPaidTopic, cfg.KafkaBrokers...)
		logger.Info("publishing order events", "topic", cfg.KafkaOrderPaidTopic, "brokers", cfg.KafkaBrokers)
	}
	defer events.Close()

	stripeGateway := gateway.NewStripeGateway(gateway.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		HTTPClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Logger: logger,
	})

	paymentService := s.NewPaymentService(
		catalog.New(products, productCache, logger),
		orders,
		stripeGateway,
		eventLog,
		events,
		cfg.Currency,
		logger,
	)

	router := h.NewRouter(paymentService, h.RouterConfig{
		JWTSecret:          cfg.JWTSecret,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		RequestLogging:     !cfg.IsProduction(),
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "ecommerce-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "currency", cfg.Currency.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
