package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const defaultOllamaURL = "http://localhost:11434"

// ollamaClient talks to a local Ollama server through /api/generate.
type ollamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
}

// newOllamaClient creates a client for a local Ollama server. No API key is needed.
func newOllamaClient(cfg Config) (Client, error) {
	model := cfg.Model
	if model == "" {
		model = "gemma3"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	return &ollamaClient{
		httpClient:  newHTTPClient(cfg.Timeout),
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete runs a single non-streaming generation.
func (c *ollamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"system": systemPrompt,
		"stream": false,
	}
	if c.temperature > 0 {
		body["options"] = map[string]any{"temperature": c.temperature}
	}

	var resp ollamaResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/api/generate", nil, body, &resp); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return strings.TrimSpace(resp.Response), nil
}
