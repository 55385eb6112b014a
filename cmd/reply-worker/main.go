package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/bestielabs/bestie-platform/cmd/mainconfig"
	"github.com/bestielabs/bestie-platform/internal/billing"
	"github.com/bestielabs/bestie-platform/internal/compose"
	appconfig "github.com/bestielabs/bestie-platform/internal/config"
	"github.com/bestielabs/bestie-platform/internal/dedup"
	"github.com/bestielabs/bestie-platform/internal/entitlement"
	"github.com/bestielabs/bestie-platform/internal/intent"
	"github.com/bestielabs/bestie-platform/internal/linkwrap"
	"github.com/bestielabs/bestie-platform/internal/observability/metrics"
	"github.com/bestielabs/bestie-platform/internal/products"
	"github.com/bestielabs/bestie-platform/internal/promo"
	"github.com/bestielabs/bestie-platform/internal/reply"
	"github.com/bestielabs/bestie-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bestie-platform reply worker", "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open delivery log database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	entitlementStore := entitlement.NewStore(pool)
	replyStore := reply.NewStore(pool)
	deliveryLog := reply.NewDeliveryLog(db)
	transcriptCache := reply.NewTranscriptCache(redisClient)
	guard := dedup.NewGuard(redisClient, cfg.DedupTTL, logger)

	gate := entitlement.NewGate(entitlementStore, cfg.TrialDays, logger,
		entitlement.WithEnforcement(cfg.EnforceSignup),
		entitlement.WithBypassPhone(cfg.DevBypassPhone),
		entitlement.WithCheckoutURL(cfg.VIPCheckoutURL),
	)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var generator compose.Generator
	var analyzer compose.MediaAnalyzer
	switch cfg.GeneratorProvider {
	case "bedrock":
		bedrockGen, err := compose.NewBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		if err != nil {
			logger.Error("failed to build bedrock generator", "error", err)
			os.Exit(1)
		}
		generator = bedrockGen
	default:
		geminiGen, err := compose.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to build gemini generator", "error", err)
			os.Exit(1)
		}
		defer func() { _ = geminiGen.Close() }()
		generator = geminiGen
		analyzer = geminiGen
	}
	composer := compose.NewComposer(generator, logger)

	if cfg.OutboundWebhookURL == "" {
		logger.Error("OUTBOUND_WEBHOOK_URL is required")
		os.Exit(1)
	}
	transport := reply.NewWebhookTransport(cfg.OutboundWebhookURL, cfg.OutboundAuthToken)

	injector := promo.NewInjector(
		reply.NewLogReader(transcriptCache, deliveryLog),
		cfg.VIPPitchEnabled,
		cfg.VIPDailyMax,
		cfg.VIPCooldown,
		logger,
	)

	pipeline := linkwrap.Pipeline{
		Rewriter: linkwrap.Rewriter{
			AssociateTag:   cfg.AmazonAssociateTag,
			SYLPublisherID: cfg.SYLPublisherID,
		},
		ProgramName: "VIP",
		ProgramURL:  cfg.VIPCheckoutURL,
		ChunkBudget: linkwrap.DefaultChunkBudget,
	}

	serviceOpts := []reply.ServiceOption{
		reply.WithIntentRouter(intent.NewRouter(intent.WithQuizURL(cfg.QuizURL))),
		reply.WithPitchInjector(injector),
		reply.WithDeliveryLog(deliveryLog),
		reply.WithTranscriptCache(transcriptCache),
		reply.WithPipeline(pipeline),
		reply.WithPartDelay(cfg.SMSPartDelay),
		reply.WithPipelineMetrics(metrics.NewPipelineMetrics(nil)),
	}
	if analyzer != nil {
		serviceOpts = append(serviceOpts, reply.WithMediaAnalyzer(analyzer))
	}
	if cfg.ProductSearchURL != "" {
		searcher := products.NewHTTPSearcher(cfg.ProductSearchURL, cfg.ProductSearchKey)
		builder := products.NewBuilder(searcher, 3, true, logger)
		serviceOpts = append(serviceOpts, reply.WithCandidateBuilder(builder))
	}

	service := reply.NewService(gate, entitlementStore, replyStore, guard, composer, transport, logger, serviceOpts...)

	var worker *reply.Worker
	if cfg.UseMemoryQueue {
		logger.Warn("using in-memory queue; jobs do not survive restarts")
		worker = reply.NewWorker(service, reply.NewMemoryQueue(0), logger,
			reply.WithWorkerCount(cfg.WorkerCount),
		)
	} else {
		queue := reply.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ReplyQueueURL)
		jobStore := reply.NewJobStore(dynamodb.NewFromConfig(awsCfg), cfg.ReplyJobsTable, logger)
		worker = reply.NewWorker(service, queue, logger,
			reply.WithWorkerCount(cfg.WorkerCount),
			reply.WithJobUpdater(jobStore),
		)
	}

	worker.Start(ctx)

	billingProcessor := billing.NewProcessor(entitlementStore, cfg.TrialDays, logger)
	go runTicker(ctx, time.Hour, func(tickCtx context.Context) {
		if _, err := billingProcessor.RolloverExpiredTrials(tickCtx); err != nil {
			logger.Error("trial rollover failed", "error", err)
		}
	})

	if cfg.ReengageEnabled {
		go runTicker(ctx, cfg.ReengageInterval, func(tickCtx context.Context) {
			sent, err := service.ReengageStale(tickCtx, cfg.ReengageAfter, 50)
			if err != nil {
				logger.Error("re-engagement sweep failed", "error", err)
				return
			}
			if sent > 0 {
				logger.Info("re-engagement nudges sent", "count", sent)
			}
		})
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down reply worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("reply worker stopped")
	case <-doneCtx.Done():
		logger.Error("reply worker shutdown timed out", "error", doneCtx.Err())
	}
}

func runTicker(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
