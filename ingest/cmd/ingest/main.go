package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/telhawk-systems/telhawk-reviews/common/database"
	"github.com/telhawk-systems/telhawk-reviews/common/logging"
	"github.com/telhawk-systems/telhawk-reviews/common/messaging"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/config"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/dlq"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/events"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/handlers"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/ratelimit"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/repository"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/server"
	"github.com/telhawk-systems/telhawk-reviews/ingest/internal/service"

	natsclient "github.com/telhawk-systems/telhawk-reviews/common/messaging/nats"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("reviews-ingest"))
	logging.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", logging.Error(err))
		os.Exit(1)
	}

	slog.Info("Starting review request webhook service",
		slog.Int("port", cfg.Server.Port),
		slog.String("webhook_path", cfg.Webhook.Path),
		slog.String("event_type", cfg.Webhook.EventType),
		slog.String("max_skew", cfg.Webhook.MaxSkew.String()),
		slog.String("follow_up_delay", cfg.Webhook.FollowUpDelay.String()),
		slog.String("log_level", cfg.Logging.Level),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Initialize repository
	repo, err := openRepository(cfg)
	if err != nil {
		slog.Error("Failed to initialize repository", logging.Error(err))
		os.Exit(1)
	}
	defer repo.Close()

	// Initialize rate limiter
	var rateLimiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewRedisRateLimiter(cfg.RateLimit.RedisURL, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting", logging.Error(err))
		} else {
			rateLimiter = limiter
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.RateLimit.Requests),
				slog.String("window", cfg.RateLimit.Window.String()),
			)
		}
	} else {
		slog.Info("Rate limiting disabled in configuration")
	}
	defer rateLimiter.Close()

	ingestService := service.NewIngestService(service.Config{
		Secret:        cfg.Webhook.Secret,
		EventType:     cfg.Webhook.EventType,
		MaxSkew:       cfg.Webhook.MaxSkew,
		FollowUpDelay: cfg.Webhook.FollowUpDelay,
		WriteTimeout:  cfg.Database.WriteTimeout,
	}, repo, logger)

	// Initialize scheduled-event publisher
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "reviews-ingest"

		natsClient, err := natsclient.NewClient(natsCfg, logger.Logger)
		if err != nil {
			slog.Warn("Failed to connect to NATS, scheduled events will not be published", logging.Error(err))
		} else {
			defer natsClient.Close()
			publisher := events.NewPublisher(natsClient, cfg.NATS.Subject)
			ingestService.WithPublisher(publisher)
			slog.Info("Publishing scheduled events", slog.String("subject", publisher.Subject()))

			if cfg.NATS.DeadLetter {
				ingestService.WithDeadLetter(dlq.NewQueue(natsClient))
				slog.Info("Dead-lettering failed deliveries", slog.String("subject", messaging.SubjectDeadLetterAll))
			}
		}
	}

	// Initialize HTTP handlers
	handler := handlers.NewWebhookHandler(ingestService, handlers.Options{
		SignatureHeader:   cfg.Webhook.SignatureHeader,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		RateLimiter:       rateLimiter,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	}, logger)
	router := server.NewRouter(handler, cfg.Webhook.Path, logger.Logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Webhook service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Shutting down server", slog.String("signal", sig.String()))
	case err := <-serverErr:
		slog.Error("Server error", logging.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", logging.Error(err))
	}

	stats := ingestService.GetStats()
	slog.Info("Server stopped",
		slog.Int64("deliveries", stats.TotalDeliveries),
		slog.Int64("scheduled", stats.Scheduled),
	)
}

func openRepository(cfg *config.Config) (repository.Repository, error) {
	if cfg.Database.Type == config.DatabaseMemory {
		slog.Warn("Using in-memory repository (development only)")
		return repository.NewInMemoryRepository(), nil
	}

	connString := cfg.PostgresURL()

	migrator, err := database.NewMigrator(cfg.Database.MigrationsPath, connString)
	if err != nil {
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		return nil, err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		slog.Warn("Could not get migration version", logging.Error(err))
	} else {
		slog.Info("Database migration complete",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.NewPostgresRepository(ctx, connString)
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to PostgreSQL")
	return repo, nil
}
