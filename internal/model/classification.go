package model

import (
	"math"
	"time"
)

// Pass identifies the categorization stage that resolved a transaction.
type Pass string

// Pass constants, in pipeline order.
const (
	PassAccountTermExact     Pass = "account_term_exact"
	PassAccountTermSubstring Pass = "account_term_substring"
	PassLearnedPattern       Pass = "learned_pattern"
	PassCategoryKeyword      Pass = "category_keyword"
	PassEmptyDescription     Pass = "empty_description"
	PassClassifier           Pass = "classifier"
)

// Decision is the structured record emitted for every resolved transaction.
type Decision struct {
	Pass     Pass
	Details  string
	Rule     string // Term, merchant, keyword category or raw classifier output
	Category string
	Index    int
}

// ProposedPattern is a merchant mapping discovered by the fallback classifier.
// It only becomes a learned pattern once approved.
type ProposedPattern struct {
	Merchant string `json:"merchant" yaml:"merchant"`
	Category string `json:"category" yaml:"category"`
}

// Stats summarises how a batch was categorized.
type Stats struct {
	Total          int     `json:"total"`
	PatternCount   int     `json:"pattern_count"`
	PatternPercent float64 `json:"pattern_percent"`
	LLMCount       int     `json:"llm_count"`
	LLMPercent     float64 `json:"llm_percent"`
	NewPatterns    int     `json:"new_patterns"`
}

// NewStats derives statistics from the batch size, the number of classifier
// invocations and the number of proposed patterns.
func NewStats(total, llmCount, newPatterns int) Stats {
	return Stats{
		Total:          total,
		PatternCount:   total - llmCount,
		PatternPercent: percentOf(total-llmCount, total),
		LLMCount:       llmCount,
		LLMPercent:     percentOf(llmCount, total),
		NewPatterns:    newPatterns,
	}
}

func percentOf(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}

// Run is one categorization of one uploaded statement.
type Run struct {
	StartedAt    time.Time
	ID           string
	Account      string
	Source       string
	Transactions []Transaction
	Decisions    []Decision
	Proposed     []ProposedPattern
	Approved     []ProposedPattern
	Stats        Stats
}
