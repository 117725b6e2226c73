package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Error construction and classification
// ============================================================================

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeSnapshotSchema, CategoryIO, SeverityFatal, false},
		{ErrCodeDimensionMismatch, CategoryValidation, SeverityFatal, false},
		{ErrCodeEmbeddingAPI, CategoryNetwork, SeverityWarning, true},
		{ErrCodeInternal, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(ErrCodeFileNotFound, "missing document", nil)
	assert.Equal(t, "[ERR_201_FILE_NOT_FOUND] missing document", err.Error())
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestUnwrap_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk went away")
	err := Wrap(ErrCodeSnapshotCorrupt, cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeQueryEmpty, "first", nil)
	b := New(ErrCodeQueryEmpty, "second", nil)

	assert.True(t, stderrors.Is(a, b))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeDimensionMismatch, "dims", nil)))
	assert.False(t, IsFatal(New(ErrCodeSearchFailed, "search", nil)))
	assert.False(t, IsFatal(stderrors.New("plain")))
	assert.False(t, IsFatal(nil))
}

func TestWithDetailAndSuggestion(t *testing.T) {
	err := New(ErrCodeExtractFailed, "bad pdf", nil).
		WithDetail("path", "docs/a.pdf").
		WithSuggestion("re-export the PDF")

	assert.Equal(t, "docs/a.pdf", err.Details["path"])
	assert.Equal(t, "re-export the PDF", err.Suggestion)
}

// ============================================================================
// Retry
// ============================================================================

func TestRetryWithResult_SucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	calls := 0
	got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetryWithResult_ExhaustsRetries(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	calls := 0
	_, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, fmt.Errorf("always down")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "always down")
	assert.Equal(t, 3, calls) // initial + 2 retries
}

func TestRetryWithResult_ContextCancellation(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 10, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithResult(ctx, cfg, func() (int, error) {
		return 0, fmt.Errorf("never seen")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================================
// User formatting
// ============================================================================

func TestFormatForUser(t *testing.T) {
	err := New(ErrCodeRerankerAPI, "reranker unreachable", fmt.Errorf("connection refused")).
		WithSuggestion("check that the reranker service is running")

	plain := FormatForUser(err, false)
	assert.Contains(t, plain, "reranker unreachable")
	assert.Contains(t, plain, "Suggestion:")
	assert.NotContains(t, plain, "ERR_303")

	debug := FormatForUser(err, true)
	assert.Contains(t, debug, "ERR_303_RERANKER_API")
	assert.Contains(t, debug, "connection refused")
}

func TestFormatForUser_FindsWrappedRAGError(t *testing.T) {
	inner := New(ErrCodeSnapshotSchema, "snapshot written by a newer version", nil).
		WithSuggestion("rebuild the index with --force")
	err := fmt.Errorf("startup aborted: %w", inner)

	out := FormatForUser(err, false)
	assert.Contains(t, out, "snapshot written by a newer version")
	assert.Contains(t, out, "rebuild the index with --force")
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("attempt 3: %w", New(ErrCodeEmbeddingAPI, "timeout", nil))

	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrCodeEmbeddingAPI, GetCode(err))
	assert.True(t, IsFatal(fmt.Errorf("outer: %w", New(ErrCodeDimensionMismatch, "dims", nil))))
}

func TestFormatForUser_PlainError(t *testing.T) {
	assert.Equal(t, "boring", FormatForUser(stderrors.New("boring"), true))
	assert.Equal(t, "", FormatForUser(nil, false))
}
