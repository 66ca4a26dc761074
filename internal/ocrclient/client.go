// Package ocrclient talks to the external OCR collaborator. The engine
// itself is a black box: short documents are sent inline (sync), long ones
// are referenced by storage URI and processed out of band (batch).
package ocrclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edilcheck/compliance-pipeline/internal/common"
)

// Engine is the OCR collaborator contract consumed by the orchestrator.
type Engine interface {
	// Sync OCRs raw PDF bytes and returns extracted text per page.
	Sync(ctx context.Context, pdfBytes []byte) ([]string, error)
	// Batch OCRs a document referenced by storage URI (gs://… or s3://…).
	Batch(ctx context.Context, objectURI string) ([]string, error)
}

type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type ocrResponse struct {
	Pages []struct {
		Text string `json:"text"`
	} `json:"pages"`
}

func (c *Client) Sync(ctx context.Context, pdfBytes []byte) ([]string, error) {
	body := map[string]any{
		"rawDocument": map[string]any{
			"content":  base64.StdEncoding.EncodeToString(pdfBytes),
			"mimeType": "application/pdf",
		},
	}
	return c.process(ctx, "/v1/process", body)
}

func (c *Client) Batch(ctx context.Context, objectURI string) ([]string, error) {
	if objectURI == "" {
		return nil, fmt.Errorf("ocr batch: %w: empty object URI", common.ErrInvalidInput)
	}
	body := map[string]any{
		"inputDocuments": map[string]any{
			"documents": []map[string]any{
				{"uri": objectURI, "mimeType": "application/pdf"},
			},
		},
	}
	return c.process(ctx, "/v1/batchProcess", body)
}

func (c *Client) process(ctx context.Context, path string, body map[string]any) ([]string, error) {
	rid := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ocr encode request: %w", err)
	}
	url := strings.TrimRight(c.cfg.Endpoint, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("ocr build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("ocr.http_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: ocr: %v", common.ErrCollaborator, err)
	}
	defer func(b io.ReadCloser) {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn("ocr.body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		c.logger.Error("ocr.bad_status", "req_id", rid, "status", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: ocr status %d: %s", common.ErrCollaborator, resp.StatusCode, string(raw))
	}

	var out ocrResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: ocr decode: %v", common.ErrCollaborator, err)
	}

	pages := make([]string, 0, len(out.Pages))
	for _, p := range out.Pages {
		pages = append(pages, p.Text)
	}
	c.logger.Info("ocr.ok", "req_id", rid, "pages", len(pages),
		"elapsed_ms", time.Since(start).Milliseconds())
	return pages, nil
}
