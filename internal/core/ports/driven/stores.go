package driven

import (
	"context"

	"github.com/gleanly/glean/internal/core/domain"
)

// FragmentStore persists classified fragments keyed by source
// identity. Save has upsert semantics: re-processing a source
// supersedes the prior instance.
type FragmentStore interface {
	// Save stores or replaces a classified fragment.
	Save(ctx context.Context, fragment domain.ClassifiedFragment) error

	// Get retrieves a fragment by id. Returns domain.ErrNotFound if
	// it does not exist.
	Get(ctx context.Context, id string) (*domain.ClassifiedFragment, error)

	// List returns all fragments ordered by capture time, then id.
	List(ctx context.Context) ([]domain.ClassifiedFragment, error)

	// ListBySubject returns the subject's fragments ordered by
	// capture time, then id.
	ListBySubject(ctx context.Context, subject string) ([]domain.ClassifiedFragment, error)

	// Delete removes a fragment. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// Clear removes all fragments.
	Clear(ctx context.Context) error
}

// EmbeddingStore persists embedding records so the index can be
// rebuilt at startup without recomputing vectors.
type EmbeddingStore interface {
	// SaveEmbedding stores or replaces the record for its id.
	SaveEmbedding(ctx context.Context, record domain.EmbeddingRecord) error

	// ListEmbeddings returns all records ordered by Seq ascending.
	ListEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error)

	// DeleteEmbedding removes the record for id.
	DeleteEmbedding(ctx context.Context, id string) error

	// ClearEmbeddings removes all records.
	ClearEmbeddings(ctx context.Context) error
}

// ProcessedStore persists the processed set: sourceRef to last-known
// content hash and outcome. Read at run start, written per item for
// crash resilience in watch mode.
type ProcessedStore interface {
	// Get retrieves the entry for a source. Returns
	// domain.ErrNotFound if the source was never processed.
	Get(ctx context.Context, sourceID string) (*domain.ProcessedEntry, error)

	// Put stores or replaces an entry.
	Put(ctx context.Context, entry domain.ProcessedEntry) error

	// List returns all entries ordered by source id.
	List(ctx context.Context) ([]domain.ProcessedEntry, error)

	// Delete removes an entry. Deleting an absent id is a no-op.
	Delete(ctx context.Context, sourceID string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error
}
