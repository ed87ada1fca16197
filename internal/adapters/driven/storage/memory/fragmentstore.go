// Package memory provides in-memory implementations of the storage
// ports, used in tests and as a fallback when no database is wanted.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Ensure FragmentStore implements the interface.
var _ driven.FragmentStore = (*FragmentStore)(nil)

// FragmentStore is an in-memory implementation of driven.FragmentStore.
type FragmentStore struct {
	mu        sync.RWMutex
	fragments map[string]domain.ClassifiedFragment
}

// NewFragmentStore creates a new in-memory fragment store.
func NewFragmentStore() *FragmentStore {
	return &FragmentStore{
		fragments: make(map[string]domain.ClassifiedFragment),
	}
}

// Save stores or replaces a classified fragment.
func (s *FragmentStore) Save(_ context.Context, fragment domain.ClassifiedFragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments[fragment.ID] = fragment
	return nil
}

// Get retrieves a fragment by id.
func (s *FragmentStore) Get(_ context.Context, id string) (*domain.ClassifiedFragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fragment, ok := s.fragments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &fragment, nil
}

// List returns all fragments ordered by capture time, then id.
func (s *FragmentStore) List(_ context.Context) ([]domain.ClassifiedFragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(domain.ClassifiedFragment) bool { return true }), nil
}

// ListBySubject returns the subject's fragments ordered by capture time, then id.
func (s *FragmentStore) ListBySubject(_ context.Context, subject string) ([]domain.ClassifiedFragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(f domain.ClassifiedFragment) bool { return f.Subject == subject }), nil
}

// Delete removes a fragment. Deleting an absent id is a no-op.
func (s *FragmentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fragments, id)
	return nil
}

// Clear removes all fragments.
func (s *FragmentStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = make(map[string]domain.ClassifiedFragment)
	return nil
}

// collect returns matching fragments sorted by capture time, then id.
// Caller must hold at least a read lock.
func (s *FragmentStore) collect(match func(domain.ClassifiedFragment) bool) []domain.ClassifiedFragment {
	result := make([]domain.ClassifiedFragment, 0, len(s.fragments))
	for _, f := range s.fragments {
		if match(f) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ti, tj := result[i].Source.CapturedAt, result[j].Source.CapturedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return result[i].ID < result[j].ID
	})
	return result
}
