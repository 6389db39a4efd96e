package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageOf(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		err  error
		name string
		want Stage
	}{
		{name: "nil", err: nil, want: StageUnknown},
		{name: "parse", err: &ParseError{Source: "a.pdf", Err: cause}, want: StageParse},
		{name: "wrapped parse", err: fmt.Errorf("upload: %w", &ParseError{Source: "a.csv", Err: cause}), want: StageParse},
		{name: "empty result is not a failure", err: ErrNoTransactions, want: StageUnknown},
		{name: "rule load", err: &RuleStoreError{Op: "load", Err: cause}, want: StageCategorize},
		{name: "rule save", err: &RuleStoreError{Op: "save", Err: cause}, want: StagePersist},
		{name: "history write", err: fmt.Errorf("record run: %w", &PersistError{Target: "spice.db", Err: cause}), want: StagePersist},
		{name: "classifier", err: &ClassificationError{Index: 2, Err: cause}, want: StageCategorize},
		{name: "other", err: cause, want: StageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StageOf(tt.err))
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Source: "statement.csv", Row: 4, Err: errors.New("bad amount")}
	assert.Equal(t, "parse statement.csv: row 4: bad amount", err.Error())
	assert.ErrorContains(t, &ParseError{Source: "x.pdf", Err: errors.New("eof")}, "parse x.pdf: eof")
}

func TestPersistErrorMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := &PersistError{Target: "out.xlsx", Err: cause}
	assert.Equal(t, "write out.xlsx: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	opts := RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return &RetryableError{Err: errors.New("flaky"), Retryable: true}
			}
			return nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on non-retryable", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return &RetryableError{Err: errors.New("bad request"), Retryable: false}
		}, opts)
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		err := WithRetry(ctx, func() error { return errors.New("down") }, opts)
		assert.ErrorIs(t, err, ErrMaxRetries)
	})

	t.Run("logs each retry with caller attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logOpts := opts
		logOpts.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
		logOpts.Attrs = []any{"account", "Revolut", "details", "Coffee Shop"}

		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			if calls == 1 {
				return errors.New("connection reset")
			}
			return nil
		}, logOpts)
		require.NoError(t, err)

		assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("classifier call failed, retrying")))
		assert.Contains(t, buf.String(), `"account":"Revolut"`)
		assert.Contains(t, buf.String(), `"details":"Coffee Shop"`)
		assert.Contains(t, buf.String(), `"attempt":1`)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		err := WithRetry(canceled, func() error { return errors.New("down") }, RetryOptions{MaxAttempts: 5, InitialDelay: time.Second})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, slog.LevelInfo, "json")
	require.NoError(t, err)

	logger.Info("categorized", "index", 1)
	assert.Contains(t, buf.String(), `"index":1`)

	_, err = NewLogger(&buf, slog.LevelInfo, "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
