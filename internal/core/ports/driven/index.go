package driven

import (
	"context"

	"github.com/gleanly/glean/internal/core/domain"
)

// Hit is a similarity search result.
type Hit struct {
	// ID is the matched fragment identity.
	ID string

	// Score is the cosine similarity in [0, 1].
	Score float64
}

// EmbeddingIndex stores one semantic vector per fragment and answers
// nearest-neighbour and duplicate queries. Writes are serialised by
// the implementation; one record per id with supersede semantics.
type EmbeddingIndex interface {
	// Insert computes a vector for text and stores it keyed by id,
	// overwriting any prior record for the same id. Embedding
	// failure surfaces as a domain.ErrEmbedding wrap and leaves the
	// index unchanged for that id.
	Insert(ctx context.Context, id, text string) (domain.EmbeddingRecord, error)

	// Query returns up to k stored records with cosine similarity
	// >= minSimilarity, descending by score, ties broken by most
	// recent insertion first. An empty index yields an empty result,
	// not an error.
	Query(ctx context.Context, text string, k int, minSimilarity float64) ([]Hit, error)

	// IsDuplicate reports whether the top match for text scores at
	// or above threshold, returning the matched id when it does.
	IsDuplicate(ctx context.Context, text string, threshold float64) (bool, string, error)

	// Similarity returns the cosine similarity between two stored
	// records. Returns domain.ErrNotFound if either id is absent.
	Similarity(ctx context.Context, id1, id2 string) (float64, error)

	// Delete removes the record for id. Deleting an absent id is a
	// no-op.
	Delete(ctx context.Context, id string) error

	// Clear removes all records.
	Clear(ctx context.Context) error

	// Len returns the number of stored records.
	Len() int
}
