package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/makkenzo/license-checkout-service/internal/config"
	"github.com/makkenzo/license-checkout-service/internal/handler"
	"github.com/makkenzo/license-checkout-service/internal/mail"
	"github.com/makkenzo/license-checkout-service/internal/payment"
	"github.com/makkenzo/license-checkout-service/internal/service"
	"github.com/makkenzo/license-checkout-service/internal/storage/postgres"
	"github.com/makkenzo/license-checkout-service/internal/storage/redis"
	"github.com/makkenzo/license-checkout-service/internal/tasks"
	"github.com/makkenzo/license-checkout-service/internal/util"
	"github.com/makkenzo/license-checkout-service/internal/worker"
	"github.com/makkenzo/license-checkout-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration:\n%v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	if cfg.Log.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbPool.Close()

	if cfg.Database.ApplySchema {
		if err := postgres.ApplySchema(appCtx, dbPool, appLogger); err != nil {
			sugarLogger.Fatalf("Failed to apply database schema: %v", err)
		}
	}

	redisClient, err := redis.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	licenseRepo := postgres.NewLicenseRepository(dbPool, appLogger)
	apiKeyRepo := postgres.NewAPIKeyRepository(dbPool, appLogger)

	checkoutGateway := payment.NewStripeGateway(&cfg.Stripe, appLogger)
	webhookVerifier := payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret)
	mailer := mail.NewResendMailer(&cfg.Mail, appLogger)
	eventLedger := redis.NewEventLedger(redisClient, redis.DefaultEventTTL)
	tokenIssuer := util.NewActivationTokenIssuer(cfg.License.TokenSecret, cfg.License.TokenTTL)

	enqueuer := tasks.NewEnqueuer(worker.RedisConnOpt(&cfg.Redis), appLogger)
	defer enqueuer.Close()

	checkoutService := service.NewCheckoutService(checkoutGateway, appLogger)
	fulfillmentService := service.NewFulfillmentService(licenseRepo, mailer, eventLedger, cfg.License.MaxDevices, appLogger)
	licenseService := service.NewLicenseService(licenseRepo, enqueuer, tokenIssuer, appLogger)

	router := handler.NewRouter(handler.RouterDeps{
		Checkout: handler.NewCheckoutHandler(checkoutService, appLogger),
		Webhook:  handler.NewWebhookHandler(webhookVerifier, fulfillmentService, appLogger),
		License:  handler.NewLicenseHandler(licenseService, appLogger),
		Health: handler.NewHealthHandler(dbPool, handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}), appLogger),
		APIKeys:        apiKeyRepo,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         appLogger,
	})

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	g.Go(func() error {
		if err := worker.RunWorkers(groupCtx, cfg, licenseRepo, mailer, appLogger); err != nil {
			sugarLogger.Error("Asynq worker failed", zap.Error(err))
			return fmt.Errorf("asynq worker error: %w", err)
		}
		sugarLogger.Info("Asynq workers finished gracefully.")
		return nil
	})

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
	} else {
		sugarLogger.Info("Application shutdown successfully.")
	}
}
