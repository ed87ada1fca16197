package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrEmptyInput", ErrEmptyInput},
		{"ErrEmbedding", ErrEmbedding},
		{"ErrInconsistentLink", ErrInconsistentLink},
		{"ErrDuplicateLink", ErrDuplicateLink},
		{"ErrClassifierUnavailable", ErrClassifierUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_WrappedSentinelsMatch(t *testing.T) {
	wrapped := fmt.Errorf("classify img-1: %w", ErrEmptyInput)
	assert.True(t, errors.Is(wrapped, ErrEmptyInput))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestClassificationError_Error(t *testing.T) {
	retryable := &ClassificationError{Retryable: true, Err: errors.New("timeout")}
	assert.Equal(t, "classification failed (retryable): timeout", retryable.Error())

	permanent := &ClassificationError{Err: errors.New("bad request")}
	assert.Equal(t, "classification failed: bad request", permanent.Error())
}

func TestClassificationError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ClassificationError{Retryable: true, Err: cause}

	assert.True(t, errors.Is(err, cause))

	wrapped := fmt.Errorf("process img-1: %w", err)
	var cerr *ClassificationError
	require.True(t, errors.As(wrapped, &cerr))
	assert.True(t, cerr.Retryable)
}

func TestAsClassificationError(t *testing.T) {
	t.Run("passes through an existing classification error", func(t *testing.T) {
		original := &ClassificationError{Retryable: false, Err: errors.New("invalid model")}
		wrapped := fmt.Errorf("call failed: %w", original)

		got := AsClassificationError(wrapped)

		assert.Same(t, original, got)
		assert.False(t, got.Retryable)
	})

	t.Run("wraps other errors as retryable", func(t *testing.T) {
		cause := errors.New("connection reset")

		got := AsClassificationError(cause)

		assert.True(t, got.Retryable)
		assert.True(t, errors.Is(got, cause))
	})
}
