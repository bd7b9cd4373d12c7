package watsonx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/namecard-ai/namecard-scanner/internal/llm"
)

const chatPath = "/ml/v1/text/chat?version=2024-10-08"

// Infer implements llm.Inferencer: submits one single-turn vision chat
// request and returns the model's raw text completion. Every failure mode
// (auth, network, timeout, service error, empty completion) surfaces as a
// *llm.InferenceError; no retry is attempted here.
func (c *Client) Infer(ctx context.Context, req llm.ChatRequest) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("watsonx.infer.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"max_new_tokens", c.cfg.MaxNewTokens,
		"temperature", c.cfg.Temperature,
	)

	body := map[string]any{
		"model_id":   c.cfg.Model,
		"project_id": c.cfg.ProjectID,
		"messages":   req.Messages,
		"parameters": map[string]any{
			"max_new_tokens": c.cfg.MaxNewTokens,
			"temperature":    c.cfg.Temperature,
			"top_p":          c.cfg.TopP,
			"top_k":          c.cfg.TopK,
		},
	}

	endpoint := strings.TrimRight(c.cfg.URL, "/") + chatPath
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("watsonx.infer.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.InferenceError{Detail: "chat request", Err: err}
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("watsonx.infer.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.InferenceError{Detail: "decode response", Err: err}
	}
	if len(cc.Choices) == 0 {
		c.log.Error("watsonx.infer.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.InferenceError{Detail: "no choices in response"}
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		c.log.Error("watsonx.infer.empty_completion",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.InferenceError{Detail: "empty completion"}
	}

	c.log.Info("watsonx.infer.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watsonx http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("watsonx response body close error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("watsonx status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
