// runpipeline processes a single local PDF through the full pipeline with
// in-memory persistence and prints the verdict. Useful for tuning gating
// thresholds, the rulebook and prompts without the service stack.
//
// Usage: runpipeline -file attestato.pdf -tenant t1 -company c1 [-doctype DURC]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/edilcheck/compliance-pipeline/internal/classify"
	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
	"github.com/edilcheck/compliance-pipeline/internal/genai"
	"github.com/edilcheck/compliance-pipeline/internal/ocrclient"
	"github.com/edilcheck/compliance-pipeline/internal/override"
	"github.com/edilcheck/compliance-pipeline/internal/pipeline"
	"github.com/edilcheck/compliance-pipeline/internal/probe"
	"github.com/edilcheck/compliance-pipeline/internal/retrieval"
	"github.com/edilcheck/compliance-pipeline/internal/rulebook"
	"github.com/edilcheck/compliance-pipeline/internal/validator"
	"github.com/edilcheck/compliance-pipeline/internal/versioning"
)

// fileObjects serves one local file regardless of the requested key.
type fileObjects struct {
	path string
}

func (f fileObjects) Get(_ context.Context, _ string) ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f fileObjects) URI(_ string) string {
	return "file://" + f.path
}

// noSearch skips retrieval; the validator's confidence cap applies.
type noSearch struct{}

func (noSearch) Retrieve(_ context.Context, _, _ string) []entity.RetrievedChunk {
	return nil
}

var _ retrieval.Searcher = noSearch{}

func main() {
	file := flag.String("file", "", "path to the PDF to process")
	tenant := flag.String("tenant", "local", "tenant id")
	company := flag.String("company", "local", "company id")
	docType := flag.String("doctype", "", "pin the document type instead of classifying")
	flag.Parse()
	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: runpipeline -file <pdf> [-tenant t] [-company c] [-doctype T]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		fmt.Fprintln(os.Stderr, "LLM_API_KEY is required")
		os.Exit(2)
	}

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

	// nil source serves the bundled rulebook snapshot
	catalog := rulebook.NewCatalog(nil, cfg.Rulebook.CacheTTL, logger)

	store := versioning.NewMemoryStore()
	runs := pipeline.NewMemoryRuns()

	orch := pipeline.NewOrchestrator(
		fileObjects{path: *file},
		probe.NewProber(probe.Config{}, logger),
		ocrclient.NewClient(ocrclient.Config{Endpoint: cfg.Pipeline.OCREndpoint}, logger),
		classify.Classify,
		catalog,
		noSearch{},
		valid,
		override.NewApplier(logger),
		versioning.NewManager(store, logger),
		runs,
		pipeline.Config{
			Gating: probe.GatingConfig{
				MinTotalChars:      cfg.Gating.MinTotalChars,
				MinPageChars:       cfg.Gating.MinPageChars,
				BatchPageThreshold: cfg.Gating.BatchPageThreshold,
			},
			RunTimeout: cfg.Pipeline.RunTimeout,
		},
		logger,
	)
	ev := pipeline.UploadEvent{
		ObjectName:  fmt.Sprintf("docs/%s/%s/%s", *tenant, *company, filepath.Base(*file)),
		ContentType: "application/pdf",
		Generation:  "local",
	}
	if *docType != "" {
		ev.Metadata = map[string]string{"docType": *docType}
	}

	report, err := orch.Process(context.Background(), ev)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
	if report.Skipped {
		fmt.Printf("skipped: %s\n", report.SkipReason)
		return
	}

	rec, ok := store.Get(report.DocumentID)
	if !ok {
		fmt.Println("no document persisted")
		return
	}
	out, err := json.MarshalIndent(rec.Verdict, "", "  ")
	if err != nil {
		logger.Error("encode verdict", "error", err)
		os.Exit(1)
	}
	fmt.Printf("%s v%d (%s)\n%s\n", report.DocType, report.Version, report.Status, out)
}
