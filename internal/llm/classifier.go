package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/engine"
)

// Classifier implements engine.Classifier on top of an LLM client.
type Classifier struct {
	client      Client
	cache       *responseCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   common.RetryOptions
}

// NewClassifier wraps client with caching, rate limiting and retries.
func NewClassifier(client Client, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:      client,
		cache:       newResponseCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}
}

// Classify asks the model for a category. The raw reply is returned; picking
// the category out of it is the engine's job.
func (c *Classifier) Classify(ctx context.Context, req engine.ClassificationRequest) (string, error) {
	key := cacheKey(req.Account, req.Details)
	if response, ok := c.cache.get(key); ok {
		c.logger.Debug("cache hit for transaction", "details", req.Details, "account", req.Account)
		return response, nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	prompt := BuildPrompt(req)
	retryOpts := c.retryOpts
	retryOpts.Logger = c.logger
	retryOpts.Attrs = []any{"account", req.Account, "details", req.Details}

	var response string
	err := common.WithRetry(ctx, func() error {
		out, err := c.client.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		response = out
		return nil
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("classification failed: %w", err)
	}

	c.cache.set(key, response)
	c.logger.Debug("transaction classified", "details", req.Details, "account", req.Account, "response", response)
	return response, nil
}

// BuildPrompt renders the classification prompt for one transaction.
func BuildPrompt(req engine.ClassificationRequest) string {
	var b strings.Builder
	b.WriteString("Categorize this transaction into ONE of these categories:\n")
	for _, category := range req.Categories {
		fmt.Fprintf(&b, "- %s\n", category)
	}
	fmt.Fprintf(&b, "\nTransaction: %s\n", req.Details)
	fmt.Fprintf(&b, "Account type: %s\n", req.Account)
	if req.Hint != "" {
		b.WriteString(req.Hint)
		b.WriteString("\n")
	}
	b.WriteString("\nCategory:")
	return b.String()
}

// Close stops background goroutines.
func (c *Classifier) Close() error {
	c.cache.Close()
	c.rateLimiter.Close()
	return nil
}
