// Package index provides the embedding index: an in-memory cosine
// similarity store over per-fragment vectors, optionally persisted
// through an EmbeddingStore so the index survives restarts without
// recomputing embeddings.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Ensure Memory implements the interface.
var _ driven.EmbeddingIndex = (*Memory)(nil)

// Memory is a brute-force cosine similarity index. Vectors are
// L2-normalised on insert so similarity reduces to a dot product.
// The working set is small (one vector per photographed fragment),
// so linear scan beats the bookkeeping of an ANN structure.
type Memory struct {
	embedder driven.EmbeddingService
	store    driven.EmbeddingStore // optional; nil disables persistence

	mu      sync.RWMutex
	records map[string]domain.EmbeddingRecord
	seq     int64
}

// NewMemory creates an index over the given embedding service.
// store may be nil, in which case records live only in memory.
func NewMemory(embedder driven.EmbeddingService, store driven.EmbeddingStore) *Memory {
	return &Memory{
		embedder: embedder,
		store:    store,
		records:  make(map[string]domain.EmbeddingRecord),
	}
}

// Load rebuilds the in-memory state from the backing store.
// It is a no-op without a store.
func (m *Memory) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	records, err := m.store.ListEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("load embeddings: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]domain.EmbeddingRecord, len(records))
	for _, rec := range records {
		m.records[rec.ID] = rec
		if rec.Seq > m.seq {
			m.seq = rec.Seq
		}
	}
	return nil
}

// Insert computes a vector for text and stores it under id,
// superseding any prior record for the same id. On embedding failure
// the index is left unchanged for that id.
func (m *Memory) Insert(ctx context.Context, id, text string) (domain.EmbeddingRecord, error) {
	vec, err := m.embed(ctx, text)
	if err != nil {
		return domain.EmbeddingRecord{}, err
	}

	m.mu.Lock()
	m.seq++
	record := domain.EmbeddingRecord{
		ID:         id,
		Vector:     vec,
		Seq:        m.seq,
		InsertedAt: time.Now().UTC(),
	}
	m.records[id] = record
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveEmbedding(ctx, record); err != nil {
			return record, fmt.Errorf("persist embedding %s: %w", id, err)
		}
	}
	return record, nil
}

// Query returns up to k records with similarity >= minSimilarity,
// descending by score, ties broken by most recent insertion.
func (m *Memory) Query(ctx context.Context, text string, k int, minSimilarity float64) ([]driven.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	empty := len(m.records) == 0
	m.mu.RUnlock()
	if empty {
		return nil, nil
	}

	query, err := m.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	type scored struct {
		hit driven.Hit
		seq int64
	}

	m.mu.RLock()
	matches := make([]scored, 0, len(m.records))
	for id, rec := range m.records {
		score := dot(query, rec.Vector)
		if score >= minSimilarity {
			matches = append(matches, scored{hit: driven.Hit{ID: id, Score: score}, seq: rec.Seq})
		}
	}
	m.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].hit.Score != matches[j].hit.Score {
			return matches[i].hit.Score > matches[j].hit.Score
		}
		return matches[i].seq > matches[j].seq
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	hits := make([]driven.Hit, len(matches))
	for i, match := range matches {
		hits[i] = match.hit
	}
	return hits, nil
}

// IsDuplicate reports whether the closest stored record scores at or
// above threshold, returning the matched id when it does.
func (m *Memory) IsDuplicate(ctx context.Context, text string, threshold float64) (bool, string, error) {
	hits, err := m.Query(ctx, text, 1, threshold)
	if err != nil {
		return false, "", err
	}
	if len(hits) == 0 {
		return false, "", nil
	}
	return true, hits[0].ID, nil
}

// Similarity returns the cosine similarity between two stored
// records.
func (m *Memory) Similarity(_ context.Context, id1, id2 string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec1, ok := m.records[id1]
	if !ok {
		return 0, fmt.Errorf("%w: embedding for %s", domain.ErrNotFound, id1)
	}
	rec2, ok := m.records[id2]
	if !ok {
		return 0, fmt.Errorf("%w: embedding for %s", domain.ErrNotFound, id2)
	}
	return dot(rec1.Vector, rec2.Vector), nil
}

// Delete removes the record for id.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.DeleteEmbedding(ctx, id); err != nil {
			return fmt.Errorf("delete embedding %s: %w", id, err)
		}
	}
	return nil
}

// Clear removes all records.
func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.records = make(map[string]domain.EmbeddingRecord)
	m.seq = 0
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.ClearEmbeddings(ctx); err != nil {
			return fmt.Errorf("clear embeddings: %w", err)
		}
	}
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// embed computes a normalised vector, wrapping failures so the
// caller can distinguish embedding faults from index faults.
func (m *Memory) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
	}
	return normalise(vec), nil
}

// normalise returns the unit-length copy of vec. A zero vector is
// returned unchanged.
func normalise(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// dot computes the dot product of two normalised vectors, which is
// their cosine similarity. Mismatched lengths score zero.
func dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
