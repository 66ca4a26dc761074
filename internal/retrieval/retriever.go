// Package retrieval answers "which regulatory passages matter for this
// document" with a tenant-scoped nearest-neighbor search over the knowledge
// base. Retrieval failure degrades validation confidence, it never aborts
// the pipeline: every error path here logs and returns an empty slice.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/edilcheck/compliance-pipeline/internal/entity"
)

// Searcher is the retriever contract the validator pipeline consumes.
type Searcher interface {
	Retrieve(ctx context.Context, tenantID, query string) []entity.RetrievedChunk
}

type Config struct {
	Index    string
	TopK     int
	MinScore float64
}

type Retriever struct {
	es     *elasticsearch.Client
	embed  Embedder
	cfg    Config
	logger *slog.Logger
}

func NewRetriever(es *elasticsearch.Client, embed Embedder, cfg Config, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 0.3
	}
	if cfg.Index == "" {
		cfg.Index = "kb_chunks"
	}
	return &Retriever{es: es, embed: embed, cfg: cfg, logger: logger}
}

// BuildQuery composes the retrieval query for a document type. Falls back
// to a generic construction-site compliance query when the type is unknown.
func BuildQuery(docType string) string {
	if docType != "" && docType != "ALTRO" {
		return fmt.Sprintf("Regole validazione %s normativa sicurezza lavoro", docType)
	}
	return "Regole validazione documenti cantiere sicurezza lavoro normativa"
}

// Retrieve embeds the query, runs a kNN search restricted to tenantID,
// drops hits below MinScore and returns at most TopK chunks ordered by
// descending similarity.
//
// The tenant term filter is a correctness requirement: cross-tenant chunks
// must never reach the validator.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, query string) []entity.RetrievedChunk {
	start := time.Now()

	vector, err := r.embed.Embed(ctx, query)
	if err != nil {
		r.logger.Error("retrieval.embed_failed", "tenant_id", tenantID, "error", err)
		return nil
	}

	body := map[string]any{
		"knn": map[string]any{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              r.cfg.TopK,
			"num_candidates": r.cfg.TopK * 10,
			"filter": map[string]any{
				"term": map[string]any{"tenant_id": tenantID},
			},
		},
		"size":    r.cfg.TopK,
		"_source": []string{"source", "page", "text"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		r.logger.Error("retrieval.encode_failed", "error", err)
		return nil
	}

	res, err := r.es.Search(
		r.es.Search.WithContext(ctx),
		r.es.Search.WithIndex(r.cfg.Index),
		r.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		r.logger.Error("retrieval.search_failed", "tenant_id", tenantID, "error", err)
		return nil
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			r.logger.Warn("retrieval.body_close_error", "error", cerr)
		}
	}()
	if res.IsError() {
		r.logger.Error("retrieval.search_error_response", "tenant_id", tenantID, "status", res.StatusCode)
		return nil
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Source string `json:"source"`
					Page   int    `json:"page"`
					Text   string `json:"text"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		r.logger.Error("retrieval.decode_failed", "error", err)
		return nil
	}

	chunks := make([]entity.RetrievedChunk, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if h.Score < r.cfg.MinScore {
			continue
		}
		chunks = append(chunks, entity.RetrievedChunk{
			ID:      fmt.Sprintf("kb:%s:p%d", h.Source.Source, h.Source.Page),
			Source:  h.Source.Source,
			Page:    h.Source.Page,
			Snippet: h.Source.Text,
			Score:   h.Score,
		})
	}

	r.logger.Info("retrieval.ok",
		"tenant_id", tenantID,
		"hits", len(chunks),
		"top_k", r.cfg.TopK,
		"min_score", r.cfg.MinScore,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return chunks
}
