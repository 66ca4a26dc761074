// Package pipeline orchestrates one document run end to end: probe, OCR
// gating, classification, retrieval, generative validation, deterministic
// overrides and versioned persistence. Each stage transition is recorded on
// the run so failures are observable and retriable.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edilcheck/compliance-pipeline/constants"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
	"github.com/edilcheck/compliance-pipeline/internal/ocrclient"
	"github.com/edilcheck/compliance-pipeline/internal/probe"
	"github.com/edilcheck/compliance-pipeline/internal/retrieval"
	"github.com/edilcheck/compliance-pipeline/internal/rulebook"
	"github.com/edilcheck/compliance-pipeline/internal/validator"
	"github.com/edilcheck/compliance-pipeline/internal/versioning"
)

// Prober extracts native PDF text with per-page density stats.
type Prober interface {
	Probe(ctx context.Context, pdfBytes []byte) (probe.Result, error)
}

// ObjectReader fetches uploaded bytes and resolves storage URIs.
type ObjectReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	URI(key string) string
}

// Classifier labels raw text with a document type, "" when unsure.
type Classifier func(fullText string) string

// Catalog is the rulebook surface the orchestrator needs.
type Catalog interface {
	RulesFor(ctx context.Context, docType string) *rulebook.RuleSet
	RequiredPIIFields(ctx context.Context, docType string) []string
}

// Validating produces the verdict for one document.
type Validating interface {
	Validate(ctx context.Context, in validator.Input) (entity.Verdict, error)
}

// Overriding applies deterministic post-validation rules in place.
type Overriding interface {
	Apply(verdict *entity.Verdict)
}

// Versioner persists a verdict as a document version.
type Versioner interface {
	CreateVersionedDocument(ctx context.Context, tenantID, companyID, docType, contentHash string, verdict entity.Verdict) (versioning.Result, error)
}

// RunTracker records the lifecycle of one processing attempt.
type RunTracker interface {
	Start(ctx context.Context, tenantID, companyID, objectName, generation, contentHash string) (*entity.PipelineRun, error)
	SetState(ctx context.Context, id uuid.UUID, state constants.RunState) error
	SetOCRMode(ctx context.Context, id uuid.UUID, mode constants.OCRMode) error
	FinishSuccess(ctx context.Context, id, documentID uuid.UUID, version int) error
	FinishFailure(ctx context.Context, id uuid.UUID, reason string) error
	HasSucceeded(ctx context.Context, tenantID, objectName, generation, contentHash string) (bool, error)
}

type Config struct {
	Gating            probe.GatingConfig
	RunTimeout        time.Duration
	EnableIdempotency bool
}

// Report summarizes a completed (or skipped) run.
type Report struct {
	Skipped    bool
	SkipReason string
	RunID      uuid.UUID
	DocumentID uuid.UUID
	Version    int
	DocType    string
	Status     string
	NewVersion bool
}

type Orchestrator struct {
	objects   ObjectReader
	prober    Prober
	ocr       ocrclient.Engine
	classify  Classifier
	catalog   Catalog
	retriever retrieval.Searcher
	validate  Validating
	override  Overriding
	versions  Versioner
	runs      RunTracker
	cfg       Config
	logger    *slog.Logger
}

func NewOrchestrator(
	objects ObjectReader,
	prober Prober,
	ocr ocrclient.Engine,
	classify Classifier,
	catalog Catalog,
	retriever retrieval.Searcher,
	validate Validating,
	override Overriding,
	versions Versioner,
	runs RunTracker,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 180 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		objects: objects, prober: prober, ocr: ocr, classify: classify,
		catalog: catalog, retriever: retriever, validate: validate,
		override: override, versions: versions, runs: runs,
		cfg: cfg, logger: logger,
	}
}

// Process runs the full pipeline for one upload event. Non-PDF objects and
// already-processed generations are skipped without error; every other
// failure finishes the run in ERROR state and is returned.
func (o *Orchestrator) Process(ctx context.Context, ev UploadEvent) (Report, error) {
	if !constants.IsPDFContentType(ev.ContentType) {
		o.logger.Info("pipeline.skip_non_pdf",
			"object", ev.ObjectName, "content_type", ev.ContentType)
		return Report{Skipped: true, SkipReason: "not a PDF"}, nil
	}

	path, err := ParseObjectPath(ev.ObjectName)
	if err != nil {
		o.logger.Warn("pipeline.skip_unaddressable", "object", ev.ObjectName, "error", err)
		return Report{Skipped: true, SkipReason: "object outside docs/ layout"}, nil
	}

	pdfBytes, err := o.objects.Get(ctx, ev.ObjectName)
	if err != nil {
		return Report{}, fmt.Errorf("fetch upload %s: %w", ev.ObjectName, err)
	}
	sum := sha256.Sum256(pdfBytes)
	contentHash := hex.EncodeToString(sum[:])

	if o.cfg.EnableIdempotency {
		done, err := o.runs.HasSucceeded(ctx, path.TenantID, ev.ObjectName, ev.Generation, contentHash)
		if err != nil {
			return Report{}, fmt.Errorf("idempotency check: %w", err)
		}
		if done {
			o.logger.Info("pipeline.skip_duplicate",
				"object", ev.ObjectName, "generation", ev.Generation)
			return Report{Skipped: true, SkipReason: "generation already processed"}, nil
		}
	}

	run, err := o.runs.Start(ctx, path.TenantID, path.CompanyID, ev.ObjectName, ev.Generation, contentHash)
	if err != nil {
		return Report{}, fmt.Errorf("start run: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	report, err := o.run(runCtx, run, ev, path, pdfBytes, contentHash)
	if err != nil {
		// the run record outlives the deadline that killed the run
		if ferr := o.runs.FinishFailure(context.WithoutCancel(ctx), run.ID, err.Error()); ferr != nil {
			o.logger.Error("pipeline.finish_failure_error", "run_id", run.ID, "error", ferr)
		}
		o.logger.Error("pipeline.run_failed",
			"run_id", run.ID, "object", ev.ObjectName, "error", err)
		return Report{RunID: run.ID}, err
	}
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, run *entity.PipelineRun, ev UploadEvent, path ObjectPath, pdfBytes []byte, contentHash string) (Report, error) {
	start := time.Now()

	o.setState(ctx, run.ID, constants.RunStateProbing)
	probed, err := o.prober.Probe(ctx, pdfBytes)
	if err != nil {
		return Report{}, fmt.Errorf("probe: %w", err)
	}

	decision := probe.Decide(probed, o.cfg.Gating, probe.GatingOverrides{
		ForceOCR: ev.forceOCR(),
		SkipOCR:  ev.skipOCR(),
	})
	if err := o.runs.SetOCRMode(ctx, run.ID, decision.Mode); err != nil {
		o.logger.Warn("pipeline.set_ocr_mode_error", "run_id", run.ID, "error", err)
	}
	o.logger.Info("pipeline.gating",
		"run_id", run.ID, "mode", decision.Mode, "reason", decision.Reason,
		"pages", probed.Pages, "total_chars", probed.TotalChars)

	fullText := probed.FullText
	if decision.NeedsOCR {
		o.setState(ctx, run.ID, constants.RunStateOCR)
		var pages []string
		switch decision.Mode {
		case constants.OCRModeBatch:
			pages, err = o.ocr.Batch(ctx, o.objects.URI(ev.ObjectName))
		default:
			pages, err = o.ocr.Sync(ctx, pdfBytes)
		}
		if err != nil {
			return Report{}, fmt.Errorf("ocr (%s): %w", decision.Mode, err)
		}
		fullText = strings.Join(pages, "\f")
	}

	o.setState(ctx, run.ID, constants.RunStateClassifying)
	docType := ev.declaredDocType()
	if docType == "" {
		docType = o.classify(fullText)
	}

	o.setState(ctx, run.ID, constants.RunStateRetrieving)
	var (
		wg     sync.WaitGroup
		chunks []entity.RetrievedChunk
		rules  *rulebook.RuleSet
		pii    []string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		chunks = o.retriever.Retrieve(ctx, path.TenantID, retrieval.BuildQuery(docType))
	}()
	go func() {
		defer wg.Done()
		rules = o.catalog.RulesFor(ctx, docType)
		pii = o.catalog.RequiredPIIFields(ctx, docType)
	}()
	wg.Wait()

	o.setState(ctx, run.ID, constants.RunStateValidating)
	verdict, err := o.validate.Validate(ctx, validator.Input{
		FullText:    fullText,
		DocType:     docType,
		Chunks:      chunks,
		Rules:       rules,
		RequiredPII: pii,
		Metadata: validator.Metadata{
			Filename:    path.Filename,
			CompanyName: ev.companyName(),
			UploadedBy:  ev.uploadedBy(),
		},
	})
	if err != nil {
		return Report{}, fmt.Errorf("validate: %w", err)
	}

	o.setState(ctx, run.ID, constants.RunStateOverriding)
	o.override.Apply(&verdict)

	finalType := verdict.Doc.DocType
	if finalType == "" {
		finalType = constants.DocTypeAltro
		verdict.Doc.DocType = finalType
	}

	o.setState(ctx, run.ID, constants.RunStatePersisting)
	vres, err := o.versions.CreateVersionedDocument(ctx, path.TenantID, path.CompanyID, finalType, contentHash, verdict)
	if err != nil {
		return Report{}, fmt.Errorf("persist verdict: %w", err)
	}

	if err := o.runs.FinishSuccess(ctx, run.ID, vres.Record.ID, vres.Record.Version); err != nil {
		return Report{}, fmt.Errorf("finish run: %w", err)
	}

	o.logger.Info("pipeline.done",
		"run_id", run.ID,
		"object", ev.ObjectName,
		"doc_type", finalType,
		"status", verdict.Overall.Status,
		"version", vres.Record.Version,
		"new_version", vres.DidCreateNewVersion,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Report{
		RunID:      run.ID,
		DocumentID: vres.Record.ID,
		Version:    vres.Record.Version,
		DocType:    finalType,
		Status:     verdict.Overall.Status,
		NewVersion: vres.DidCreateNewVersion,
	}, nil
}

// setState is best effort: a failed state write must not abort the run.
func (o *Orchestrator) setState(ctx context.Context, id uuid.UUID, state constants.RunState) {
	if err := o.runs.SetState(ctx, id, state); err != nil {
		o.logger.Warn("pipeline.set_state_error", "run_id", id, "state", state, "error", err)
	}
}
