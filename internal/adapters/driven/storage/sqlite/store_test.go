package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleanly/glean/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleFragment(id string, capturedAt time.Time) domain.ClassifiedFragment {
	return domain.ClassifiedFragment{
		Fragment: domain.Fragment{
			Text: "A fraction needs a common denominator",
			Source: domain.SourceRef{
				ImageID:    id,
				CapturedAt: capturedAt,
			},
			Meta: map[string]string{"quality": "good"},
		},
		ID:                 id,
		Kind:               domain.KindWrongQuestion,
		Confidence:         0.85,
		Subject:            "Math",
		ContentType:        "Practice Problem",
		Reasoning:          "shows crossed-out work",
		KeyConcepts:        []string{"fractions", "denominator"},
		MistakeExplanation: "Added denominators directly",
		CorrectApproach:    "Find a common denominator first",
		ClassifiedAt:       capturedAt.Add(time.Minute),
	}
}

func TestNewStore_CreatesSchema(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.NotEmpty(t, store.Path())

	// Reopening runs no migrations twice and sees the same schema.
	second, err := NewStore(dir)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestFragmentStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	capturedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	want := sampleFragment("img-1", capturedAt)
	require.NoError(t, store.FragmentStore().Save(ctx, want))

	got, err := store.FragmentStore().Get(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, want.Text, got.Text)
	assert.Equal(t, want.Source.ImageID, got.Source.ImageID)
	assert.True(t, capturedAt.Equal(got.Source.CapturedAt))
	assert.Equal(t, map[string]string{"quality": "good"}, got.Meta)
	assert.Equal(t, domain.KindWrongQuestion, got.Kind)
	assert.Equal(t, 0.85, got.Confidence)
	assert.False(t, got.LowConfidence)
	assert.Equal(t, "Math", got.Subject)
	assert.Equal(t, []string{"fractions", "denominator"}, got.KeyConcepts)
	assert.Equal(t, "Added denominators directly", got.MistakeExplanation)
	assert.Equal(t, "Find a common denominator first", got.CorrectApproach)
}

func TestFragmentStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FragmentStore().Get(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFragmentStore_SaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	capturedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	fragment := sampleFragment("img-1", capturedAt)
	require.NoError(t, store.FragmentStore().Save(ctx, fragment))

	fragment.Subject = "Science"
	fragment.KeyConcepts = nil
	require.NoError(t, store.FragmentStore().Save(ctx, fragment))

	got, err := store.FragmentStore().Get(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, "Science", got.Subject)
	assert.Empty(t, got.KeyConcepts)

	all, err := store.FragmentStore().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFragmentStore_ListBySubjectOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	later := sampleFragment("img-a", base.Add(time.Hour))
	earlier := sampleFragment("img-b", base)
	other := sampleFragment("img-c", base)
	other.Subject = "Science"

	for _, f := range []domain.ClassifiedFragment{later, earlier, other} {
		require.NoError(t, store.FragmentStore().Save(ctx, f))
	}

	math, err := store.FragmentStore().ListBySubject(ctx, "Math")
	require.NoError(t, err)
	require.Len(t, math, 2)
	assert.Equal(t, "img-b", math[0].ID, "capture time orders before id")
	assert.Equal(t, "img-a", math[1].ID)
}

func TestFragmentStore_DeleteAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	capturedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.FragmentStore().Save(ctx, sampleFragment("img-1", capturedAt)))
	require.NoError(t, store.FragmentStore().Delete(ctx, "img-1"))
	require.NoError(t, store.FragmentStore().Delete(ctx, "img-1"), "absent delete is a no-op")

	_, err := store.FragmentStore().Get(ctx, "img-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.FragmentStore().Save(ctx, sampleFragment("img-2", capturedAt)))
	require.NoError(t, store.FragmentStore().Clear(ctx))
	all, err := store.FragmentStore().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEmbeddingStore_RoundTripAndOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	second := domain.EmbeddingRecord{ID: "b", Vector: []float32{0.5, -0.25, 1}, Seq: 2, InsertedAt: now}
	first := domain.EmbeddingRecord{ID: "a", Vector: []float32{1, 0, 0}, Seq: 1, InsertedAt: now}
	require.NoError(t, store.EmbeddingStore().SaveEmbedding(ctx, second))
	require.NoError(t, store.EmbeddingStore().SaveEmbedding(ctx, first))

	records, err := store.EmbeddingStore().ListEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID, "ordered by Seq ascending")
	assert.Equal(t, []float32{1, 0, 0}, records[0].Vector)
	assert.Equal(t, []float32{0.5, -0.25, 1}, records[1].Vector)
	assert.Equal(t, int64(2), records[1].Seq)
}

func TestEmbeddingStore_SaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EmbeddingStore().SaveEmbedding(ctx,
		domain.EmbeddingRecord{ID: "a", Vector: []float32{1}, Seq: 1}))
	require.NoError(t, store.EmbeddingStore().SaveEmbedding(ctx,
		domain.EmbeddingRecord{ID: "a", Vector: []float32{0, 1}, Seq: 2}))

	records, err := store.EmbeddingStore().ListEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []float32{0, 1}, records[0].Vector)
}

func TestEmbeddingStore_DeleteAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EmbeddingStore().SaveEmbedding(ctx,
		domain.EmbeddingRecord{ID: "a", Vector: []float32{1}, Seq: 1}))
	require.NoError(t, store.EmbeddingStore().DeleteEmbedding(ctx, "a"))
	require.NoError(t, store.EmbeddingStore().DeleteEmbedding(ctx, "a"))

	require.NoError(t, store.EmbeddingStore().SaveEmbedding(ctx,
		domain.EmbeddingRecord{ID: "b", Vector: []float32{1}, Seq: 2}))
	require.NoError(t, store.EmbeddingStore().ClearEmbeddings(ctx))

	records, err := store.EmbeddingStore().ListEmbeddings(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProcessedStore_UpsertAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entry := domain.ProcessedEntry{
		SourceID:    "img-1",
		ContentHash: domain.HashContent("some text"),
		Outcome:     domain.OutcomeFailed,
		Error:       "classifier unreachable",
		ProcessedAt: now,
	}
	require.NoError(t, store.ProcessedStore().Put(ctx, entry))

	// Upsert on the same source id replaces the outcome.
	entry.Outcome = domain.OutcomeSaved
	entry.Error = ""
	require.NoError(t, store.ProcessedStore().Put(ctx, entry))

	got, err := store.ProcessedStore().Get(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSaved, got.Outcome)
	assert.Empty(t, got.Error)
	assert.Equal(t, entry.ContentHash, got.ContentHash)
	assert.True(t, now.Equal(got.ProcessedAt))

	require.NoError(t, store.ProcessedStore().Put(ctx, domain.ProcessedEntry{
		SourceID: "img-0", Outcome: domain.OutcomeUnclassified, ProcessedAt: now,
	}))
	entries, err := store.ProcessedStore().List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "img-0", entries[0].SourceID, "ordered by source id")
}

func TestProcessedStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ProcessedStore().Get(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessedStore_Clear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ProcessedStore().Put(ctx, domain.ProcessedEntry{
		SourceID: "img-1", Outcome: domain.OutcomeSaved, ProcessedAt: time.Now(),
	}))
	require.NoError(t, store.ProcessedStore().Clear(ctx))

	entries, err := store.ProcessedStore().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVectorEncoding(t *testing.T) {
	vectors := [][]float32{
		nil,
		{},
		{1.5, -2.25, 0, 3.14159},
	}
	for _, vec := range vectors {
		decoded := bytesToFloat32Slice(float32SliceToBytes(vec))
		assert.Equal(t, len(vec), len(decoded))
		for i := range vec {
			assert.Equal(t, vec[i], decoded[i])
		}
	}
}
