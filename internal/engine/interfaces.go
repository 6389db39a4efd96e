package engine

import "context"

// ClassificationRequest is what the fallback pass hands to a classifier.
type ClassificationRequest struct {
	Details    string
	Account    string
	Hint       string
	Categories []string
}

// Classifier produces free text that should mention one of the requested
// categories. The engine picks the category out of the response itself.
type Classifier interface {
	Classify(ctx context.Context, req ClassificationRequest) (string, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, req ClassificationRequest) (string, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, req ClassificationRequest) (string, error) {
	return f(ctx, req)
}
