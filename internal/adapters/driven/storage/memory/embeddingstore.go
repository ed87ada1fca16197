package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore.
type EmbeddingStore struct {
	mu      sync.RWMutex
	records map[string]domain.EmbeddingRecord
}

// NewEmbeddingStore creates a new in-memory embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{
		records: make(map[string]domain.EmbeddingRecord),
	}
}

// SaveEmbedding stores or replaces the record for its id.
func (s *EmbeddingStore) SaveEmbedding(_ context.Context, record domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

// ListEmbeddings returns all records ordered by Seq ascending.
func (s *EmbeddingStore) ListEmbeddings(_ context.Context) ([]domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.EmbeddingRecord, 0, len(s.records))
	for _, r := range s.records {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// DeleteEmbedding removes the record for id.
func (s *EmbeddingStore) DeleteEmbedding(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// ClearEmbeddings removes all records.
func (s *EmbeddingStore) ClearEmbeddings(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]domain.EmbeddingRecord)
	return nil
}
