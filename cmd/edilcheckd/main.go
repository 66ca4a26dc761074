// edilcheckd is the compliance pipeline service: it ingests upload events,
// runs the validation pipeline asynchronously and serves the document API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/joho/godotenv"

	"github.com/edilcheck/compliance-pipeline/internal/async"
	"github.com/edilcheck/compliance-pipeline/internal/classify"
	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/genai"
	"github.com/edilcheck/compliance-pipeline/internal/ocrclient"
	"github.com/edilcheck/compliance-pipeline/internal/override"
	"github.com/edilcheck/compliance-pipeline/internal/pipeline"
	"github.com/edilcheck/compliance-pipeline/internal/probe"
	"github.com/edilcheck/compliance-pipeline/internal/repository"
	"github.com/edilcheck/compliance-pipeline/internal/retrieval"
	"github.com/edilcheck/compliance-pipeline/internal/rulebook"
	"github.com/edilcheck/compliance-pipeline/internal/server"
	"github.com/edilcheck/compliance-pipeline/internal/storage"
	"github.com/edilcheck/compliance-pipeline/internal/validator"
	"github.com/edilcheck/compliance-pipeline/internal/versioning"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// .env is optional outside local development
		slog.Debug("no .env file loaded", "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service.failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.Migrate(cfg.Database.DSN, cfg.Database.MigrationsPath, logger); err != nil {
		return err
	}

	objects, err := storage.NewS3Store(cfg.Storage, logger)
	if err != nil {
		return err
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Storage.ESAddresses,
	})
	if err != nil {
		return err
	}

	embedder := retrieval.NewHTTPEmbedder(
		cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.EmbedModel, cfg.Retrieval.EmbedDim, logger)
	retriever := retrieval.NewRetriever(es, embedder, retrieval.Config{
		Index:    cfg.Storage.ESIndex,
		TopK:     cfg.Retrieval.TopK,
		MinScore: cfg.Retrieval.MinScore,
	}, logger)

	catalog := rulebook.NewCatalog(
		storage.NewRulebookSource(objects, cfg.Rulebook.ObjectKey),
		cfg.Rulebook.CacheTTL, logger)

	llm := genai.NewClient(genai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	valid := validator.New(llm, validator.Config{
		Model:         cfg.LLM.Model,
		LegacyModel:   cfg.LLM.LegacyModel,
		UseStructured: cfg.Pipeline.UseGenerativeValidation,
		AllowFallback: cfg.Pipeline.AllowLegacyFallback,
		TopK:          cfg.Retrieval.TopK,
	}, logger)

	runs := repository.NewRuns(pool)
	versions := versioning.NewManager(repository.NewStore(pool, logger), logger)

	orch := pipeline.NewOrchestrator(
		objects,
		probe.NewProber(probe.Config{}, logger),
		ocrclient.NewClient(ocrclient.Config{Endpoint: cfg.Pipeline.OCREndpoint}, logger),
		classify.Classify,
		catalog,
		retriever,
		valid,
		override.NewApplier(logger),
		versions,
		runs,
		pipeline.Config{
			Gating: probe.GatingConfig{
				MinTotalChars:      cfg.Gating.MinTotalChars,
				MinPageChars:       cfg.Gating.MinPageChars,
				BatchPageThreshold: cfg.Gating.BatchPageThreshold,
			},
			RunTimeout:        cfg.Pipeline.RunTimeout,
			EnableIdempotency: cfg.Pipeline.EnableIdempotency,
		},
		logger,
	)

	queue := async.NewQueue(orch, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.RunTimeout),
	)
	queue.Start()
	defer queue.Shutdown()

	srv := server.New(pool, queue,
		repository.NewDocuments(pool),
		repository.NewAudits(pool),
		catalog, logger)
	return srv.Run(ctx, cfg.Server.Addr)
}
