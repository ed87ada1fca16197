package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyInput indicates a fragment's text was empty after
	// trimming. Fatal for that item, never retried, and raised
	// before any external call is made.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmbedding indicates embedding computation failed. The
	// embedding index is left unchanged for the affected id.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInconsistentLink indicates a link referencing a missing
	// fragment or fragments of the wrong kinds. This is an internal
	// invariant violation and is always fatal to the current batch.
	ErrInconsistentLink = errors.New("inconsistent link")

	// ErrDuplicateLink indicates a link for an already-linked pair.
	ErrDuplicateLink = errors.New("duplicate link")

	// ErrClassifierUnavailable indicates the classification service
	// is not configured or unreachable.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// ClassificationError is a failure of the external classification
// collaborator. Retryable distinguishes transient transport faults
// from permanent ones; the retry policy itself is the orchestrator's
// concern.
type ClassificationError struct {
	Retryable bool
	Err       error
}

// Error implements the error interface.
func (e *ClassificationError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("classification failed (retryable): %v", e.Err)
	}
	return fmt.Sprintf("classification failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// AsClassificationError unwraps err into a *ClassificationError,
// or wraps it as a retryable one if it is of any other type.
func AsClassificationError(err error) *ClassificationError {
	var cerr *ClassificationError
	if errors.As(err, &cerr) {
		return cerr
	}
	return &ClassificationError{Retryable: true, Err: err}
}
