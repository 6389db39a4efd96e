// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Stage names the part of a run that failed. Recovery differs per stage.
type Stage string

// Stage constants.
const (
	StageUnknown    Stage = "unknown"
	StageParse      Stage = "parse"
	StageCategorize Stage = "categorize"
	StagePersist    Stage = "persist"
)

// Common application errors.
var (
	// ErrNoTransactions is the empty-result condition: the statement was read
	// but nothing in it looked like a transaction.
	ErrNoTransactions = errors.New("no transactions found in statement")
	// ErrApprovalNoOp means no proposed patterns were selected, so nothing was written.
	ErrApprovalNoOp = errors.New("no patterns approved")
	// ErrUnknownAccount is returned for account types outside the supported set.
	ErrUnknownAccount = errors.New("unknown account type")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ParseError reports a statement that could not be opened or decoded.
// No partial batch accompanies it.
type ParseError struct {
	Err    error
	Source string
	Row    int // 1-based row or line when known, otherwise 0
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("parse %s: row %d: %v", e.Source, e.Row, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RuleStoreError reports a missing or malformed rule document, or a failed write.
type RuleStoreError struct {
	Err    error
	Op     string // "load" or "save"
	Source string
}

func (e *RuleStoreError) Error() string {
	return fmt.Sprintf("rule store %s %s: %v", e.Op, e.Source, e.Err)
}

func (e *RuleStoreError) Unwrap() error {
	return e.Err
}

// PersistError reports a failed write of run output: the history database or
// an exported file.
type PersistError struct {
	Err    error
	Target string
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Target, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// ClassificationError reports a failed fallback classifier call for one transaction.
type ClassificationError struct {
	Err     error
	Details string
	Index   int
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify transaction %d (%q): %v", e.Index, e.Details, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// StageOf maps an error to the stage that produced it. ErrNoTransactions is
// not a failure of any stage and maps to StageUnknown.
func StageOf(err error) Stage {
	var (
		parseErr   *ParseError
		ruleErr    *RuleStoreError
		classErr   *ClassificationError
		persistErr *PersistError
	)

	switch {
	case err == nil:
		return StageUnknown
	case errors.As(err, &parseErr), errors.Is(err, ErrUnknownAccount):
		return StageParse
	case errors.As(err, &persistErr):
		return StagePersist
	case errors.As(err, &ruleErr):
		if ruleErr.Op == "save" {
			return StagePersist
		}
		return StageCategorize
	case errors.As(err, &classErr):
		return StageCategorize
	default:
		return StageUnknown
	}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
