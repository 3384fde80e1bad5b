// Package analysis is the thin client for the external analysis service.
// The service is a black box: it takes an instruction plus a text body and
// returns either a bare text answer or a JSON object carrying an "answer"
// string. Everything downstream consumes only that answer string.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kdelaney/msg-analyzer/internal/config"
)

// Client invokes the analysis service over HTTP
type Client struct {
	url    string
	model  string
	prompt string
	httpc  *http.Client
	log    zerolog.Logger
}

// NewClient creates a client from configuration
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		url:    cfg.AnalysisURL,
		model:  cfg.AnalysisModel,
		prompt: SystemPrompt,
		httpc:  &http.Client{Timeout: cfg.AnalysisTimeout},
		log:    log,
	}
}

type invokeRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Input  string `json:"input"`
}

// Analyze sends one text body to the analysis service and returns the
// answer text.
func (c *Client) Analyze(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(invokeRequest{
		Model:  c.model,
		Prompt: c.prompt,
		Input:  text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug().Int("input_len", len(text)).Msg("invoking analysis service")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read analysis response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analysis service returned status %d", resp.StatusCode)
	}

	return DecodeAnswer(body), nil
}

// DecodeAnswer extracts the answer string from a service response that is
// either a JSON object with an "answer" field, a JSON string, or bare text.
func DecodeAnswer(raw []byte) string {
	var obj struct {
		Answer *string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Answer != nil {
		return *obj.Answer
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}
