package llm

import (
	"context"
	"time"
)

// Client sends a prompt to a text-generation backend and returns its reply.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for the LLM clients and classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	Timeout     time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// Provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// systemPrompt is sent to providers that accept one.
const systemPrompt = "You are a financial transaction classifier. Respond with a single category name from the list you are given."
