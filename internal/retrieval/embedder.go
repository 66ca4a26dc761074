package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edilcheck/compliance-pipeline/internal/genai"
)

// Embedder turns query text into a vector for nearest-neighbor search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint.
type HTTPEmbedder struct {
	BaseURL string
	APIKey  string
	Model   string
	Dim     int

	http   *http.Client
	logger *slog.Logger
}

func NewHTTPEmbedder(baseURL, apiKey, model string, dim int, logger *slog.Logger) *HTTPEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPEmbedder{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Dim:     dim,
		http:    &http.Client{Timeout: 20 * time.Second},
		logger:  logger,
	}
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body := map[string]any{
		"model": e.Model,
		"input": []string{text},
	}
	if e.Dim > 0 {
		body["dimensions"] = e.Dim
	}

	endpoint := strings.TrimRight(e.BaseURL, "/") + "/embeddings"
	headers := map[string]string{"Authorization": "Bearer " + e.APIKey}
	raw, _, err := genai.SendJSON(ctx, e.http, endpoint, body, headers, e.logger)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("embed decode: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty embedding response")
	}
	return out.Data[0].Embedding, nil
}
