package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vipul43/leadloop/internal/api"
	"github.com/vipul43/leadloop/internal/classifier"
	"github.com/vipul43/leadloop/internal/config"
	"github.com/vipul43/leadloop/internal/copywriter"
	"github.com/vipul43/leadloop/internal/database"
	"github.com/vipul43/leadloop/internal/events"
	"github.com/vipul43/leadloop/internal/lock"
	"github.com/vipul43/leadloop/internal/logger"
	"github.com/vipul43/leadloop/internal/mailbox"
	"github.com/vipul43/leadloop/internal/messaging"
	"github.com/vipul43/leadloop/internal/openrouter"
	"github.com/vipul43/leadloop/internal/repository"
	"github.com/vipul43/leadloop/internal/service"
	"github.com/vipul43/leadloop/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zlog, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)
	zlog.Info("Database connected successfully")

	if err := database.RunMigrations(db, zlog); err != nil {
		return err
	}
	zlog.Info("Migrations completed successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize repositories
	clientRepo := repository.NewClientRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	processedRepo := repository.NewProcessedMessageRepository(db)
	syncRepo := repository.NewMailboxSyncRepository(db)

	// Providers
	llm := openrouter.NewClient(cfg.OpenRouterAPIKey)
	llm.SetModel(cfg.OpenRouterModel)

	dispatcher := messaging.NewDispatcher(
		messaging.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber),
		zlog,
	)
	fetcher := mailbox.NewRouter(
		mailbox.NewIMAPFetcher(cfg.IMAPTimeout, zlog),
		mailbox.NewGmailFetcher(cfg.GmailClientID, cfg.GmailClientSecret, zlog),
	)

	locker, closeLocker, err := newLocker(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer closeLocker()

	publisher, closePublisher := newPublisher(cfg, zlog)
	defer closePublisher()

	// Initialize services
	sender := service.SenderDefaults{Name: cfg.SenderName, Address: cfg.SenderEmail}
	writer := copywriter.New(llm, zlog)

	leadService := service.NewLeadService(leadRepo, processedRepo, accountRepo, dispatcher, writer, publisher, sender, zlog)
	followupService := service.NewFollowupService(leadRepo, accountRepo, dispatcher, writer, publisher, sender, zlog)
	ingestionService := service.NewIngestionService(clientRepo, processedRepo, syncRepo, fetcher,
		classifier.New(llm, zlog), leadService, cfg.IMAPHost, zlog)
	accountService := service.NewAccountService(accountRepo, syncRepo, cfg.IngestionInterval, zlog)

	// Initialize watcher
	w := watcher.New(watcher.OptionsFromConfig(cfg), clientRepo, accountRepo, followupService, ingestionService, locker, zlog)

	handler := api.NewHandler(clientRepo, leadService, accountService, ingestionService, w, cfg.TwilioClientSlug, zlog)
	router := api.NewRouter(handler, api.RouterOptions{
		AdminKey:         cfg.AdminAPIKey,
		TwilioWebhookURL: cfg.TwilioWebhookURL,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		ReleaseMode:      cfg.Environment == "production",
	}, zlog)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 2)
	go func() {
		errChan <- w.Start(ctx)
	}()
	go func() {
		zlog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		zlog.Info("Shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("Component stopped", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}

	select {
	case <-shutdownCtx.Done():
		zlog.Warn("Shutdown timeout exceeded")
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("Watcher error", zap.Error(err))
		}
	}

	zlog.Info("Application stopped")
	return nil
}

// newLocker uses Redis when configured so several replicas share tenant locks
func newLocker(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		zlog.Info("REDIS_URL not set, using in-process locks")
		return lock.NewLocalLocker(), func() {}, nil
	}

	rdb, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	zlog.Info("Using Redis tenant locks")
	return lock.NewRedisLocker(rdb, zlog), func() { rdb.Close() }, nil
}

// newPublisher degrades to a no-op publisher when the broker is unset or unreachable
func newPublisher(cfg *config.Config, zlog *zap.Logger) (events.Publisher, func()) {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}, func() {}
	}

	publisher, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, zlog)
	if err != nil {
		zlog.Warn("AMQP unavailable, lead events disabled", zap.Error(err))
		return events.NopPublisher{}, func() {}
	}
	zlog.Info("Publishing lead events", zap.String("exchange", cfg.AMQPExchange))
	return publisher, func() { publisher.Close() }
}
