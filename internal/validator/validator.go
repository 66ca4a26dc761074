// Package validator turns probed text, retrieved regulatory context and the
// active rule set into a single structured verdict. The model boundary is
// schema-constrained: output that does not validate is re-requested once and
// then routed to the legacy fallback, never trusted as-is.
package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edilcheck/compliance-pipeline/internal/common"
	"github.com/edilcheck/compliance-pipeline/internal/entity"
	"github.com/edilcheck/compliance-pipeline/internal/genai"
)

// zeroHitConfidenceCap bounds overall confidence when no regulatory context
// was retrieved.
const zeroHitConfidenceCap = 0.60

type Config struct {
	Model       string
	LegacyModel string // default: Model
	// UseStructured selects the schema-constrained path; off means every
	// document goes through the legacy extractor.
	UseStructured bool
	// AllowFallback routes structured-path failures to the legacy
	// extractor instead of failing the run.
	AllowFallback bool
	TopK          int // recorded in the audit block
}

type Validator struct {
	llm    genai.ChatCompleter
	cfg    Config
	logger *slog.Logger
}

func New(llm genai.ChatCompleter, cfg Config, logger *slog.Logger) *Validator {
	if cfg.LegacyModel == "" {
		cfg.LegacyModel = cfg.Model
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{llm: llm, cfg: cfg, logger: logger}
}

// Validate produces the verdict for one document. Retrieval misses and
// schema violations degrade the result; only collaborator failures with
// fallback disabled surface as errors.
func (v *Validator) Validate(ctx context.Context, in Input) (entity.Verdict, error) {
	start := time.Now()

	text := RedactPII(in.FullText, in.RequiredPII)

	if !v.cfg.UseStructured {
		return v.legacy(ctx, in, text, start)
	}

	verdict, err := v.structured(ctx, in, text)
	if err != nil {
		if !v.cfg.AllowFallback {
			return entity.Verdict{}, err
		}
		v.logger.Warn("validator.fallback", "error", err, "doc_type", in.DocType)
		return v.legacy(ctx, in, text, start)
	}

	v.finalize(&verdict, in, false, v.cfg.Model, start)
	return verdict, nil
}

func (v *Validator) structured(ctx context.Context, in Input, text string) (entity.Verdict, error) {
	var checkIDs []string
	if in.Rules != nil {
		for _, c := range in.Rules.Checks {
			checkIDs = append(checkIDs, c.ID)
		}
	}
	schema := ResponseSchema(checkIDs)
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return entity.Verdict{}, fmt.Errorf("marshal response schema: %w", err)
	}

	user := BuildUserPrompt(in, text) +
		"\n## Schema di risposta\nRispondi con un JSON conforme a questo schema:\n" + string(schemaJSON)

	// One re-request on schema violation, then give up on this path.
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		raw, err := v.llm.CompleteJSON(ctx, v.cfg.Model, systemPrompt, user)
		if err != nil {
			return entity.Verdict{}, err
		}

		payload := []byte(raw)
		if err := genai.ValidateJSONAgainstSchema(schema, payload); err != nil {
			if errors.Is(err, common.ErrSchemaViolation) {
				pruned, dropped, perr := genai.PruneUnknownKeys(payload, topLevelKeys)
				if perr == nil && len(dropped) > 0 {
					v.logger.Warn("validator.pruned_keys", "dropped", dropped, "attempt", attempt)
					if verr := genai.ValidateJSONAgainstSchema(schema, pruned); verr == nil {
						payload = pruned
						err = nil
					}
				}
			}
			if err != nil {
				v.logger.Warn("validator.schema_violation", "attempt", attempt, "error", err)
				lastErr = err
				continue
			}
		}

		var verdict entity.Verdict
		if err := json.Unmarshal(payload, &verdict); err != nil {
			lastErr = fmt.Errorf("%w: decode verdict: %v", common.ErrSchemaViolation, err)
			continue
		}
		return verdict, nil
	}
	return entity.Verdict{}, lastErr
}

// finalize enforces the invariants no model output is trusted with:
// citations reference only supplied chunks, nonPertinente implies valid,
// reasons are never empty, and zero-retrieval runs get a confidence cap.
func (v *Validator) finalize(verdict *entity.Verdict, in Input, fallback bool, model string, start time.Time) {
	supplied := make(map[string]entity.RetrievedChunk, len(in.Chunks))
	for _, ch := range in.Chunks {
		supplied[ch.ID] = ch
	}

	cited := make(map[string]struct{})
	for i := range verdict.Checks {
		kept := verdict.Checks[i].CitationIDs[:0]
		for _, id := range verdict.Checks[i].CitationIDs {
			if _, ok := supplied[id]; ok {
				kept = append(kept, id)
				cited[id] = struct{}{}
			} else {
				v.logger.Warn("validator.dropped_citation", "citation_id", id, "check_id", verdict.Checks[i].ID)
			}
		}
		verdict.Checks[i].CitationIDs = kept
	}

	verdict.Citations = verdict.Citations[:0]
	for _, ch := range in.Chunks {
		if _, ok := cited[ch.ID]; !ok {
			continue
		}
		verdict.Citations = append(verdict.Citations, entity.Citation{
			ID:       ch.ID,
			SourceID: ch.Source,
			Page:     ch.Page,
			Snippet:  ch.Snippet,
		})
	}

	if verdict.Overall.NonPertinente {
		verdict.Overall.IsValid = true
	}
	if verdict.Doc.DocType == "" {
		verdict.Doc.DocType = in.DocType
	}
	if len(in.Chunks) == 0 && verdict.Overall.Confidence > zeroHitConfidenceCap {
		verdict.Overall.Confidence = zeroHitConfidenceCap
		verdict.Overall.Reasons = append(verdict.Overall.Reasons,
			"Nessun contesto normativo recuperato: confidenza limitata.")
	}
	if len(verdict.Overall.Reasons) == 0 {
		verdict.Overall.Reasons = []string{"Nessun motivo fornito dal validatore."}
	}

	verdict.Audit = entity.Audit{
		Model:        model,
		LatencyMs:    time.Since(start).Milliseconds(),
		FallbackUsed: fallback,
		RAG: entity.RAGAudit{
			TopK: v.cfg.TopK,
			Hits: len(in.Chunks),
		},
	}
}
