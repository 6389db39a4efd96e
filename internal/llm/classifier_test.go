package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/engine"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns queued results in order, then repeats the last one.
type scriptedClient struct {
	results []scriptedResult
	prompts []string
	mu      sync.Mutex
}

type scriptedResult struct {
	err      error
	response string
}

func (s *scriptedClient) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r.response, r.err
}

func (s *scriptedClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func newTestClassifier(t *testing.T, client Client) *Classifier {
	t.Helper()
	c := NewClassifier(client, Config{MaxRetries: 3, RetryDelay: time.Millisecond, RateLimit: 600}, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

var request = engine.ClassificationRequest{
	Details:    "CARD PAYMENT TO TESCO ON 04 MAY",
	Account:    "Barclays Credit Card",
	Hint:       "Note: For credit cards, 'payment' usually means paying the credit card bill.",
	Categories: model.Categories,
}

func TestClassifierReturnsRawResponse(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{{response: "The category is Groceries."}}}
	c := newTestClassifier(t, client)

	out, err := c.Classify(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "The category is Groceries.", out)
}

func TestClassifierCachesPerAccountAndDescription(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{{response: "Groceries"}}}
	c := newTestClassifier(t, client)
	ctx := context.Background()

	_, err := c.Classify(ctx, request)
	require.NoError(t, err)

	same := request
	same.Details = "  card payment to tesco on 04 may "
	_, err = c.Classify(ctx, same)
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls())

	other := request
	other.Account = "Revolut"
	_, err = c.Classify(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls())
}

func TestClassifierRetriesTransientFailures(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{
		{err: errors.New("connection reset")},
		{err: &common.RetryableError{Err: errors.New("502"), Retryable: true}},
		{response: "Travel"},
	}}
	c := newTestClassifier(t, client)

	out, err := c.Classify(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "Travel", out)
	assert.Equal(t, 3, client.calls())
}

func TestClassifierStopsOnPermanentFailure(t *testing.T) {
	permanent := &common.RetryableError{Err: errors.New("401 unauthorized")}
	client := &scriptedClient{results: []scriptedResult{{err: permanent}}}
	c := newTestClassifier(t, client)

	_, err := c.Classify(context.Background(), request)
	require.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, client.calls())
}

func TestClassifierGivesUpAfterMaxRetries(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{{err: errors.New("timeout")}}}
	c := newTestClassifier(t, client)

	_, err := c.Classify(context.Background(), request)
	require.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 3, client.calls())

	// Failures are not cached.
	_, _ = c.Classify(context.Background(), request)
	assert.Equal(t, 6, client.calls())
}

func TestClassifierHonoursCancellation(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{{response: "Groceries"}}}
	c := newTestClassifier(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Classify(ctx, request)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.calls())
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(request)

	for _, category := range model.Categories {
		assert.Contains(t, prompt, "- "+category+"\n")
	}
	assert.Contains(t, prompt, "Transaction: CARD PAYMENT TO TESCO ON 04 MAY\n")
	assert.Contains(t, prompt, "Account type: Barclays Credit Card\n")
	assert.Contains(t, prompt, request.Hint)
	assert.NotContains(t, prompt, "Rent")

	noHint := request
	noHint.Hint = ""
	assert.NotContains(t, BuildPrompt(noHint), "Note:")
}

func TestClassifierSatisfiesEngine(t *testing.T) {
	var _ engine.Classifier = (*Classifier)(nil)
}
