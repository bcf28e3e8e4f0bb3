package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"essaygenius/internal/config"
	"essaygenius/internal/domain/ports/adapter"
	aiAdapters "essaygenius/internal/infra/adapters/ai"
	"essaygenius/internal/infra/api"
	pg "essaygenius/internal/infra/db/postgres"
	"essaygenius/internal/infra/docgen"
	"essaygenius/internal/infra/logging"
	"essaygenius/internal/infra/metrics"
	"essaygenius/internal/infra/payment"
	red "essaygenius/internal/infra/redis"
	"essaygenius/internal/infra/storage"
	"essaygenius/internal/infra/worker"
	"essaygenius/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop AI)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	txm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)
	statusCache := red.NewStatusCache(redisClient, cfg.Redis.TTL)

	// ---- Object storage ----
	store, err := storage.NewMinioStore(ctx, &cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("object storage")
	}

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool, txm)
	profileRepo := pg.NewProfileRepo(pool)
	paperRepo := pg.NewPaperRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)

	// ---- AI adapter ----
	var ai adapter.AIServiceAdapter
	if cfg.Runtime.Dev && cfg.AI.APIKey == "" {
		logger.Warn().Msg("dev mode without api key, using noop AI adapter")
		ai = aiAdapters.NewNoopAIAdapter()
	} else {
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.EmbeddingModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
	}

	// ---- Payment gateway ----
	gateway := payment.NewStripeGateway(
		cfg.Payment.Stripe.SecretKey,
		cfg.Payment.Stripe.PriceID,
		cfg.Payment.Stripe.WebhookSecret,
		cfg.Payment.Stripe.FrontendURL,
	)

	// ---- Use cases ----
	creditUC := usecase.NewCreditUseCase(profileRepo, cfg.Pipeline.SignupCredits)
	guardrail := usecase.NewGuardrail(ai, cfg.AI.GuardrailModel)
	outlineUC := usecase.NewOutlineUseCase(ai, cfg.AI.CompletionModel)
	sourceUC := usecase.NewSourceUseCase(ai, cfg.AI.CompletionModel, cfg.AI.CompletionModel,
		cfg.Pipeline.SimilarityThreshold, cfg.Pipeline.SourceConcurrency)
	draftUC := usecase.NewDraftUseCase(ai, cfg.AI.DraftModel)
	paperUC := usecase.NewPaperUseCase(paperRepo, store, docgen.New())
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, creditUC, gateway, txm, logger)
	generationUC := usecase.NewGenerationUseCase(jobRepo, creditUC, locker, txm, cfg.Pipeline.EssayCost, logger)
	pipelineUC := usecase.NewPipelineUseCase(jobRepo, creditUC, guardrail, outlineUC, sourceUC,
		draftUC, paperUC, locker, cfg.Pipeline.EssayCost, logger)

	// ---- Workers ----
	pool2 := worker.NewPool(cfg.Pipeline.Workers)
	pool2.Start(ctx)
	processor := worker.NewJobProcessor(jobRepo, pipelineUC, cfg.Pipeline.PollInterval, logger)
	go processor.Start(ctx, pool2)

	// ---- HTTP ----
	auth := api.NewAuth(cfg.Auth.JWTSecret, creditUC, logger)
	rl := api.NewRateLimit(rateLimiter)
	handlers := api.NewHandlers(generationUC, paperUC, creditUC, paymentUC, gateway, statusCache, logger)
	server := api.NewServer(strconv.Itoa(cfg.Server.Port), cfg.Server.CORSOrigins, auth, rl, handlers, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	pool2.Stop()
	logger.Info().Msg("stopped")
}
