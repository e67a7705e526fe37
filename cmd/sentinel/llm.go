package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sentinel-dev/sentinel/internal/collab"
)

// LLM call deadlines: deep operations (audit batches, review
// passes) get 120 seconds, light ones 30.
const (
	llmDeepTimeout  = 120 * time.Second
	llmLightTimeout = 30 * time.Second
)

// httpLLM is the real implementation of the collab.LLM contract the
// core treats as a black box: POST a prompt, read back text. Endpoint
// and credentials come from the environment so the core never sees
// them.
type httpLLM struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

var _ collab.LLM = (*httpLLM)(nil)

// newLLMFromEnv builds the client from SENTINEL_LLM_URL (required),
// SENTINEL_LLM_MODEL, and SENTINEL_LLM_KEY.
func newLLMFromEnv() (*httpLLM, error) {
	endpoint := os.Getenv("SENTINEL_LLM_URL")
	if endpoint == "" {
		return nil, fmt.Errorf("SENTINEL_LLM_URL is not set")
	}
	model := os.Getenv("SENTINEL_LLM_MODEL")
	if model == "" {
		model = "default"
	}
	return &httpLLM{
		endpoint: endpoint,
		apiKey:   os.Getenv("SENTINEL_LLM_KEY"),
		model:    model,
		client:   &http.Client{},
	}, nil
}

type llmRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type llmResponse struct {
	Text     string `json:"text"`
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (l *httpLLM) Chat(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = l.model
	}

	body, err := json.Marshal(llmRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("llm endpoint returned %s", resp.Status)
	}

	var parsed llmResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("unparseable llm response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("llm error: %s", parsed.Error)
	}
	if parsed.Text != "" {
		return parsed.Text, nil
	}
	return parsed.Response, nil
}
