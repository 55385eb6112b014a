package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bestielabs/bestie-platform/cmd/mainconfig"
	"github.com/bestielabs/bestie-platform/internal/billing"
	appconfig "github.com/bestielabs/bestie-platform/internal/config"
	"github.com/bestielabs/bestie-platform/internal/entitlement"
	"github.com/bestielabs/bestie-platform/internal/reply"
	"github.com/bestielabs/bestie-platform/internal/webhook"
	"github.com/bestielabs/bestie-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bestie-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	sqsClient := sqs.NewFromConfig(awsCfg)
	replyQueue := reply.NewSQSQueue(sqsClient, cfg.ReplyQueueURL)
	dynamoClient := dynamodb.NewFromConfig(awsCfg)
	jobStore := reply.NewJobStore(dynamoClient, cfg.ReplyJobsTable, logger)
	publisher := reply.NewPublisher(replyQueue, jobStore, logger)

	replyStore := reply.NewStore(pool)
	entitlementStore := entitlement.NewStore(pool)
	billingProcessor := billing.NewProcessor(entitlementStore, cfg.TrialDays, logger)

	handler := webhook.NewHandler(webhook.Config{
		Store:         replyStore,
		Profiles:      entitlementStore,
		Publisher:     publisher,
		Billing:       billingProcessor,
		Jobs:          jobStore,
		WebhookSecret: cfg.WebhookSecret,
		BillingSecret: cfg.BillingSecret,
		Logger:        logger,
	})
	r := webhook.NewRouter(webhook.RouterConfig{
		Handler:        handler,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
