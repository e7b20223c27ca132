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

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/talkwave/messenger-services/internal/notification_service/adapters/contacts"
	"github.com/talkwave/messenger-services/internal/notification_service/app"
	"github.com/talkwave/messenger-services/internal/notification_service/dispatch"
	"github.com/talkwave/messenger-services/internal/notification_service/domain"
	"github.com/talkwave/messenger-services/internal/notification_service/repository/postgres"
	"github.com/talkwave/messenger-services/internal/platform/config"
	"github.com/talkwave/messenger-services/internal/platform/database"
	"github.com/talkwave/messenger-services/internal/platform/logger"
	"github.com/talkwave/messenger-services/internal/platform/messagebroker"
	"github.com/talkwave/messenger-services/internal/platform/redisbus"
)

const (
	serviceName      = "notification_service"
	primaryStream    = "NOTIFICATIONS"
	deadLetterStream = "NOTIFICATIONS_DLQ"
	errorStream      = "NOTIFICATIONS_ERRORS"
	durableConsumer  = "notification_workers"
	shutdownTimeout  = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger = appLogger.With("service", serviceName)
	appLogger.Info("Starting service...")

	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"nats_url", cfg.NATSUrl,
		"redis_addr", cfg.RedisAddr,
		"postgres_dsn_present", cfg.PostgresDSN != "",
		"queue_subject", cfg.NotificationQueueSubject,
		"max_in_flight", cfg.NotificationMaxInFlight,
		"metrics_port", cfg.NotificationServiceMetricsPort,
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection pool initialized")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("NATS connection initialized")

	redisClient, err := redisbus.NewClient(mainCtx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()
	appLogger.Info("Redis connection initialized")

	// Declare the three durable queue destinations up front so they survive
	// broker restarts regardless of which side publishes first.
	stream, err := natsClient.EnsureStream(mainCtx, primaryStream, []string{cfg.NotificationQueueSubject})
	if err != nil {
		appLogger.Error("Failed to ensure primary stream", "error", err)
		os.Exit(1)
	}
	if _, err := natsClient.EnsureStream(mainCtx, deadLetterStream, []string{cfg.NotificationDeadLetterSubject}); err != nil {
		appLogger.Error("Failed to ensure dead-letter stream", "error", err)
		os.Exit(1)
	}
	if _, err := natsClient.EnsureStream(mainCtx, errorStream, []string{cfg.NotificationErrorSubject}); err != nil {
		appLogger.Error("Failed to ensure error stream", "error", err)
		os.Exit(1)
	}

	auditRepo := postgres.NewPgAuditRepository(dbPool, appLogger)
	resolver := contacts.NewHTTPResolver(cfg.ContactsBaseURL, cfg.ContactsAPIKey, nil, appLogger)

	registry := dispatch.NewRegistry()
	registry.Register(domain.TypeEmail, dispatch.NewEmailStrategy(resolver, dispatch.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.DispatchTimeout,
	}, appLogger))
	registry.Register(domain.TypeSMS, dispatch.NewSMSStrategy(resolver, dispatch.SMSGatewayConfig{
		APIURL:   cfg.SMSGatewayURL,
		APIKey:   cfg.SMSGatewayKey,
		SenderID: cfg.SMSSenderID,
		Timeout:  cfg.DispatchTimeout,
	}, nil, appLogger))
	registry.Register(domain.TypeTelegram, dispatch.NewTelegramStrategy(resolver, dispatch.TelegramConfig{
		APIURL:   cfg.TelegramAPIURL,
		BotToken: cfg.TelegramToken,
		Timeout:  cfg.DispatchTimeout,
	}, nil, appLogger))

	redisPublisher := redisbus.NewPublisher(redisClient, appLogger)
	escalator := app.NewFailureEscalationPipeline(natsClient, redisPublisher, auditRepo, app.EscalationConfig{
		DeadLetterSubject: cfg.NotificationDeadLetterSubject,
		ErrorSubject:      cfg.NotificationErrorSubject,
		RetryChannel:      cfg.RetryChannel,
	}, appLogger)

	consumer := app.NewNotificationQueueConsumer(
		registry,
		escalator,
		auditRepo,
		cfg.NotificationMaxInFlight,
		cfg.DispatchTimeout,
		appLogger,
	)

	heartbeat := app.NewHeartbeatPublisher(
		redisPublisher,
		cfg.HeartbeatChannel,
		cfg.HeartbeatInterval,
		serviceName,
		uuid.NewString(),
		appLogger,
	)

	g, groupCtx := errgroup.WithContext(mainCtx)

	consumeCtx, err := natsClient.ConsumeDurable(mainCtx, stream, durableConsumer, cfg.NotificationQueueSubject,
		func(msg jetstream.Msg) {
			consumer.HandleMessage(groupCtx, msg)
		})
	if err != nil {
		appLogger.Error("Failed to start queue consumer", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Queue consumer started", "stream", primaryStream, "durable", durableConsumer)

	g.Go(func() error {
		return heartbeat.Run(groupCtx)
	})

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.NotificationServiceMetricsPort),
		Handler: promhttp.Handler(),
	}
	g.Go(func() error {
		appLogger.Info("Metrics server listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	appLogger.Info("Service components initialized and workers started. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var groupErr error
	select {
	case sig := <-sigCh:
		appLogger.Info("Received termination signal", "signal", sig.String())
	case groupErr = <-watchGroup(g):
		appLogger.Error("A critical component failed, initiating shutdown", "error", groupErr)
	}

	appLogger.Info("Attempting graceful shutdown...")
	consumeCtx.Stop()
	consumer.Drain()
	mainCancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Error during graceful shutdown of components", "error", err)
	}

	appLogger.Info("Service shutdown complete.")
}

// watchGroup is a helper to monitor an errgroup for early exit.
func watchGroup(g *errgroup.Group) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Wait()
	}()
	return errCh
}
