package engine

import (
	"context"
	"strings"
	"sync"
)

// MockClassifier is a test implementation of the Classifier interface.
// It answers from a table of description substrings and records every call.
type MockClassifier struct {
	Responses map[string]string
	Errors    map[string]error
	Default   string
	calls     []ClassificationRequest
	mu        sync.Mutex
}

// NewMockClassifier creates a mock that answers "Miscellaneous" unless told otherwise.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		Responses: make(map[string]string),
		Errors:    make(map[string]error),
		Default:   "Miscellaneous",
	}
}

// Respond makes any description containing substr produce response.
func (m *MockClassifier) Respond(substr, response string) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[strings.ToLower(substr)] = response
	return m
}

// Fail makes any description containing substr produce err.
func (m *MockClassifier) Fail(substr string, err error) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[strings.ToLower(substr)] = err
	return m
}

// Classify records the request and returns the configured response.
func (m *MockClassifier) Classify(ctx context.Context, req ClassificationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lower := strings.ToLower(req.Details)
	for substr, err := range m.Errors {
		if strings.Contains(lower, substr) {
			return "", err
		}
	}
	// Longest key wins so overlapping substrings stay deterministic.
	best, response := -1, m.Default
	for substr, resp := range m.Responses {
		if strings.Contains(lower, substr) && len(substr) > best {
			best, response = len(substr), resp
		}
	}
	return response, nil
}

// GetCalls returns all recorded calls for verification in tests.
func (m *MockClassifier) GetCalls() []ClassificationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]ClassificationRequest, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of times Classify was called.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears all recorded calls.
func (m *MockClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
