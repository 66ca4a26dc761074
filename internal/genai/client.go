package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edilcheck/compliance-pipeline/internal/common"
)

// ChatCompleter is the generative collaborator the validator depends on.
type ChatCompleter interface {
	// CompleteJSON asks for a JSON object response and returns the raw
	// (fence-stripped) content of the first choice.
	CompleteJSON(ctx context.Context, model, system, user string) (string, error)
}

// Config for the chat-completions client.
type Config struct {
	APIKey      string
	BaseURL     string  // default https://api.openai.com/v1
	Temperature float32 // 0..2
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *Client) CompleteJSON(ctx context.Context, model, system, user string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	body := map[string]any{
		"model":           model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	c.logger.Info("genai.complete.start",
		"req_id", rid,
		"model", model,
		"temp", c.cfg.Temperature,
		"user_len", len(user),
	)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("genai.complete.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("%w: chat completion: %v", common.ErrCollaborator, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("%w: decode completion response: %v", common.ErrCollaborator, err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion response", common.ErrCollaborator)
	}

	content := StripCodeFence(cc.Choices[0].Message.Content)
	c.logger.Info("genai.complete.ok",
		"req_id", rid,
		"model", model,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
