package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Ensure ProcessedStore implements the interface.
var _ driven.ProcessedStore = (*ProcessedStore)(nil)

// ProcessedStore is an in-memory implementation of driven.ProcessedStore.
type ProcessedStore struct {
	mu      sync.RWMutex
	entries map[string]domain.ProcessedEntry
}

// NewProcessedStore creates a new in-memory processed store.
func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{
		entries: make(map[string]domain.ProcessedEntry),
	}
}

// Get retrieves the entry for a source.
func (s *ProcessedStore) Get(_ context.Context, sourceID string) (*domain.ProcessedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Put stores or replaces an entry.
func (s *ProcessedStore) Put(_ context.Context, entry domain.ProcessedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.SourceID] = entry
	return nil
}

// List returns all entries ordered by source id.
func (s *ProcessedStore) List(_ context.Context) ([]domain.ProcessedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ProcessedEntry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SourceID < result[j].SourceID
	})
	return result, nil
}

// Delete removes an entry. Deleting an absent id is a no-op.
func (s *ProcessedStore) Delete(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sourceID)
	return nil
}

// Clear removes all entries.
func (s *ProcessedStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.ProcessedEntry)
	return nil
}
