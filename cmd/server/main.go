package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"reportverify/internal/auth"
	"reportverify/internal/config"
	"reportverify/internal/email/noop"
	"reportverify/internal/email/ses"
	"reportverify/internal/handler"
	"reportverify/internal/logging"
	"reportverify/internal/port"
	"reportverify/internal/repository/postgres"
	"reportverify/internal/router"
	"reportverify/internal/service"
	s3storage "reportverify/internal/storage/s3"
	"reportverify/internal/verification"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	runRepo := postgres.NewVerificationRunRepo(db)

	// Initialize storage
	maxBytes := cfg.Verify.MaxUploadMB * 1024 * 1024
	s3Client, err := s3storage.NewS3Client(&cfg.S3, maxBytes)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	// Initialize services
	profile := verification.ProfileFrom(&cfg.Verify)
	verifySvc := service.NewVerificationService(runRepo, s3Client, notifier, profile, &cfg.S3, &cfg.Verify, logger)

	// Initialize handlers
	verificationH := handler.NewVerificationHandler(verifySvc)
	healthH := handler.NewHealthHandler(db)

	if cfg.Auth.Disabled {
		logger.Warn("API authentication is disabled")
	}

	// Setup router
	r := router.Setup(router.Options{
		Logger:         logger,
		Tokens:         auth.NewTokenService(&cfg.Auth),
		AuthDisabled:   cfg.Auth.Disabled,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadBytes: maxBytes,
	}, verificationH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Port), zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (port.Notifier, error) {
	switch cfg.Email.Provider {
	case "ses":
		n, err := ses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.AppURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES sender: %w", err)
		}
		return n, nil
	case "noop", "":
		return noop.NewNoopSender(cfg.Email.AppURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}
}
