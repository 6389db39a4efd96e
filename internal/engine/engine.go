// Package engine categorizes a batch of transactions in four ordered passes:
// account terms, learned patterns, category keywords and finally a fallback
// classifier. The first pass to assign a category wins.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/Veraticus/spice-statements/internal/model"
	"github.com/Veraticus/spice-statements/internal/rules"
)

// minMerchantLength is the rune length a merchant name must exceed to be proposed.
const minMerchantLength = 3

// ErrorPolicy decides what a failed classifier call does to the run.
type ErrorPolicy int

// Error policies.
const (
	// FailFast stops the run and returns the partial result with the error.
	FailFast ErrorPolicy = iota
	// Degrade assigns Miscellaneous to the failed transaction and continues.
	Degrade
)

func (p ErrorPolicy) String() string {
	if p == Degrade {
		return "degrade"
	}
	return "fail"
}

// ParseErrorPolicy reads a policy name as used in configuration and flags.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail", "fail-fast", "failfast":
		return FailFast, nil
	case "degrade":
		return Degrade, nil
	default:
		return FailFast, fmt.Errorf("%w: unknown error policy %q", common.ErrInvalidConfig, s)
	}
}

// Config holds configuration options for the engine.
type Config struct {
	Logger      *slog.Logger
	Progress    func(done, total int)
	CallTimeout time.Duration
	OnError     ErrorPolicy
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		OnError:     FailFast,
		CallTimeout: 30 * time.Second,
	}
}

// Engine runs the categorization passes. It keeps no state between runs.
type Engine struct {
	classifier Classifier
	logger     *slog.Logger
	config     Config
}

// New creates an engine that falls back to classifier for unmatched transactions.
func New(classifier Classifier, config Config) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		classifier: classifier,
		config:     config,
		logger:     logger,
	}
}

// Failure records a classifier call that was degraded to Miscellaneous.
type Failure struct {
	Err     error
	Details string
	Index   int
}

// Result is the outcome of one categorization run.
type Result struct {
	// Snapshot is the rule document the run used, including patterns learned
	// during the run. It is never persisted by the engine.
	Snapshot     *rules.Document
	Transactions []model.Transaction
	Proposed     []model.ProposedPattern
	Decisions    []model.Decision
	Failures     []Failure
	Stats        model.Stats
}

// runState is the per-run progress through the passes.
type runState struct {
	snapshot  *rules.Document
	proposed  map[model.ProposedPattern]bool
	result    *Result
	batch     []model.Transaction
	resolved  []bool
	account   string
	hint      string
	llmCalls  int
	remaining int
}

func newRunState(batch []model.Transaction, account model.AccountKind, hint string, doc *rules.Document) *runState {
	txns := make([]model.Transaction, len(batch))
	copy(txns, batch)

	st := &runState{
		snapshot: doc.Clone(),
		proposed: make(map[model.ProposedPattern]bool),
		batch:    txns,
		resolved: make([]bool, len(txns)),
		account:  account.Tag(),
		hint:     hint,
		result: &Result{
			Transactions: txns,
			Proposed:     []model.ProposedPattern{},
			Decisions:    []model.Decision{},
		},
	}
	for i, txn := range txns {
		if txn.IsCategorized() {
			st.resolved[i] = true
			continue
		}
		st.remaining++
	}
	st.result.Snapshot = st.snapshot
	return st
}

// unresolved returns the indexes still lacking a category.
func (st *runState) unresolved() []int {
	idx := make([]int, 0, st.remaining)
	for i, done := range st.resolved {
		if !done {
			idx = append(idx, i)
		}
	}
	return idx
}

func (st *runState) assign(i int, category string, pass model.Pass, rule string) model.Decision {
	st.batch[i].Category = category
	st.resolved[i] = true
	st.remaining--
	d := model.Decision{
		Pass:     pass,
		Details:  st.batch[i].Details,
		Rule:     rule,
		Category: category,
		Index:    i,
	}
	st.result.Decisions = append(st.result.Decisions, d)
	return d
}

// Categorize assigns a category to every transaction in batch. The batch is
// copied; transactions that already carry a category are left alone.
//
// The rule document is cloned at the start so neither in-run learning nor
// later commits are observed by the other. On a classifier failure under
// FailFast the partial result is returned together with a
// *common.ClassificationError; categories assigned before the failure stay.
func (e *Engine) Categorize(ctx context.Context, batch []model.Transaction, account model.AccountKind, hint string, doc *rules.Document) (*Result, error) {
	if doc == nil {
		return nil, errors.New("categorize: nil rule document")
	}

	st := newRunState(batch, account, hint, doc)
	e.logger.Info("starting categorization",
		"account", st.account,
		"transactions", len(st.batch),
		"uncategorized", st.remaining)

	passes := []struct {
		run  func(*runState)
		name string
	}{
		{e.applyAccountTerms, "account terms"},
		{e.applyLearnedPatterns, "learned patterns"},
		{e.applyCategoryKeywords, "category keywords"},
	}
	for _, pass := range passes {
		if st.remaining == 0 {
			break
		}
		pass.run(st)
		e.logger.Info("pass complete", "pass", pass.name, "uncategorized", st.remaining)
	}

	err := e.applyFallback(ctx, st)
	st.result.Stats = model.NewStats(len(st.batch), st.llmCalls, len(st.result.Proposed))

	e.logger.Info("categorization complete",
		"account", st.account,
		"total", st.result.Stats.Total,
		"pattern_count", st.result.Stats.PatternCount,
		"llm_count", st.result.Stats.LLMCount,
		"new_patterns", st.result.Stats.NewPatterns,
		"failures", len(st.result.Failures))

	return st.result, err
}

func (e *Engine) logDecision(d model.Decision) {
	e.logger.Info("transaction categorized",
		"index", d.Index,
		"pass", string(d.Pass),
		"details", d.Details,
		"rule", d.Rule,
		"category", d.Category)
}

func (e *Engine) applyAccountTerms(st *runState) {
	for _, term := range st.snapshot.TermsFor(st.account) {
		if term.Key == "" {
			continue
		}
		lowerTerm := strings.ToLower(term.Key)

		for _, i := range st.unresolved() {
			if strings.ToLower(strings.TrimSpace(st.batch[i].Details)) == lowerTerm {
				e.logDecision(st.assign(i, term.Category, model.PassAccountTermExact, term.Key))
			}
		}
		for _, i := range st.unresolved() {
			if strings.Contains(strings.ToLower(st.batch[i].Details), lowerTerm) {
				e.logDecision(st.assign(i, term.Category, model.PassAccountTermSubstring, term.Key))
			}
		}
	}
}

func (e *Engine) applyLearnedPatterns(st *runState) {
	for _, pattern := range st.snapshot.LearnedPatterns {
		if pattern.Key == "" {
			continue
		}
		lower := strings.ToLower(pattern.Key)
		for _, i := range st.unresolved() {
			if strings.Contains(strings.ToLower(st.batch[i].Details), lower) {
				e.logDecision(st.assign(i, pattern.Category, model.PassLearnedPattern, pattern.Key))
			}
		}
	}
}

// keywordPattern joins the non-empty patterns into one case-insensitive
// alternation. It returns nil when there is nothing to match.
func keywordPattern(patterns []string) *regexp.Regexp {
	quoted := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(p)))
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

func (e *Engine) applyCategoryKeywords(st *runState) {
	for _, cat := range st.snapshot.Categories {
		re := keywordPattern(cat.Patterns)
		if re == nil {
			continue
		}
		for _, i := range st.unresolved() {
			lower := strings.ToLower(st.batch[i].Details)
			if match := re.FindString(lower); match != "" {
				e.logDecision(st.assign(i, cat.Name, model.PassCategoryKeyword, match))
			}
		}
	}
}

func (e *Engine) applyFallback(ctx context.Context, st *runState) error {
	pending := st.unresolved()
	total := len(pending)

	for n, i := range pending {
		details := st.batch[i].Details
		if strings.TrimSpace(details) == "" {
			e.logDecision(st.assign(i, model.CategoryMiscellaneous, model.PassEmptyDescription, ""))
			e.progress(n+1, total)
			continue
		}

		if err := ctx.Err(); err != nil {
			return &common.ClassificationError{Err: err, Details: details, Index: i}
		}

		st.llmCalls++
		response, err := e.classify(ctx, st, details)
		if err != nil {
			classErr := &common.ClassificationError{Err: err, Details: details, Index: i}
			if e.config.OnError == FailFast || ctx.Err() != nil {
				e.logger.Error("classifier call failed",
					"index", i,
					"stage", string(common.StageOf(classErr)),
					"error", err)
				return classErr
			}
			e.logger.Warn("classifier call failed, using default category",
				"index", i,
				"details", details,
				"error", err)
			st.result.Failures = append(st.result.Failures, Failure{Err: classErr, Details: details, Index: i})
			e.logDecision(st.assign(i, model.CategoryMiscellaneous, model.PassClassifier, ""))
			e.progress(n+1, total)
			continue
		}

		category := model.MatchCategory(response, model.Categories)
		e.logDecision(st.assign(i, category, model.PassClassifier, response))

		if category != model.CategoryMiscellaneous {
			e.propose(st, details, category)
		}
		e.progress(n+1, total)
	}
	return nil
}

func (e *Engine) classify(ctx context.Context, st *runState, details string) (string, error) {
	callCtx := ctx
	if e.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.config.CallTimeout)
		defer cancel()
	}
	return e.classifier.Classify(callCtx, ClassificationRequest{
		Details:    details,
		Account:    st.account,
		Hint:       st.hint,
		Categories: model.Categories,
	})
}

func (e *Engine) propose(st *runState, details, category string) {
	merchant := InferMerchant(details)
	if utf8.RuneCountInString(merchant) <= minMerchantLength {
		return
	}

	p := model.ProposedPattern{Merchant: merchant, Category: category}
	st.snapshot.LearnedPatterns.Set(merchant, category)
	if st.proposed[p] {
		return
	}
	st.proposed[p] = true
	st.result.Proposed = append(st.result.Proposed, p)
	e.logger.Info("pattern proposed", "merchant", merchant, "category", category)
}

func (e *Engine) progress(done, total int) {
	if e.config.Progress != nil {
		e.config.Progress(done, total)
	}
}
