package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitgrid/platform/internal/app"
	"github.com/fitgrid/platform/internal/auth"
	"github.com/fitgrid/platform/internal/gateway"
	"github.com/fitgrid/platform/internal/infra"
	"github.com/fitgrid/platform/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	// Run migrations
	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Parse JWT expiry durations
	serviceExpiry, err := time.ParseDuration(cfg.JWTServiceExpiry)
	if err != nil {
		return fmt.Errorf("parse service JWT expiry: %w", err)
	}
	adminExpiry, err := time.ParseDuration(cfg.JWTAdminExpiry)
	if err != nil {
		return fmt.Errorf("parse admin JWT expiry: %w", err)
	}
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, serviceExpiry, adminExpiry)

	// Gateway client and rail adapters
	gwClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewaySandboxBaseURL, cfg.GatewayTimeout)
	rails, err := gateway.NewRegistry(
		gateway.NewReferenceAdapter(gwClient),
		gateway.NewPushAdapter(gwClient),
	)
	if err != nil {
		return fmt.Errorf("build rail registry: %w", err)
	}

	// Services and router
	deps := app.RouterDeps{
		Pool:        pool,
		JWTMgr:      jwtMgr,
		Logger:      logger,
		Rails:       rails,
		CORSOrigins: cfg.CORSAllowedOrigins,
	}
	svcs := app.NewServices(deps)
	router := app.NewRouter(deps, svcs)

	// Background workers
	sweeper := service.NewSweeper(pool, svcs.TxRepo, svcs.OutboxRepo, cfg.SweepInterval, logger)
	sweeper.Start(ctx)

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	poller := infra.NewOutboxPoller(pool, producer, logger)
	poller.Start(ctx)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
