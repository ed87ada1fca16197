package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleanly/glean/internal/core/domain"
)

func TestProcessedStore_PutAndGet(t *testing.T) {
	store := NewProcessedStore()
	ctx := context.Background()

	entry := domain.ProcessedEntry{
		SourceID:    "img-1",
		ContentHash: domain.HashContent("some text"),
		Outcome:     domain.OutcomeSaved,
		ProcessedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(ctx, entry))

	got, err := store.Get(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, entry, *got)
}

func TestProcessedStore_GetMissing(t *testing.T) {
	store := NewProcessedStore()

	_, err := store.Get(context.Background(), "absent")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestProcessedStore_PutReplaces(t *testing.T) {
	store := NewProcessedStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.ProcessedEntry{SourceID: "img-1", Outcome: domain.OutcomeFailed, Error: "boom"}))
	require.NoError(t, store.Put(ctx, domain.ProcessedEntry{SourceID: "img-1", Outcome: domain.OutcomeSaved}))

	got, err := store.Get(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSaved, got.Outcome)
	assert.Empty(t, got.Error)
}

func TestProcessedStore_ListOrderedBySourceID(t *testing.T) {
	store := NewProcessedStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.ProcessedEntry{SourceID: "img-b", Outcome: domain.OutcomeSaved}))
	require.NoError(t, store.Put(ctx, domain.ProcessedEntry{SourceID: "img-a", Outcome: domain.OutcomeUnclassified}))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "img-a", entries[0].SourceID)
	assert.Equal(t, "img-b", entries[1].SourceID)
}

func TestProcessedStore_DeleteAndClear(t *testing.T) {
	store := NewProcessedStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.ProcessedEntry{SourceID: "img-1", Outcome: domain.OutcomeSaved}))
	require.NoError(t, store.Delete(ctx, "img-1"))
	require.NoError(t, store.Delete(ctx, "img-1"))

	require.NoError(t, store.Put(ctx, domain.ProcessedEntry{SourceID: "img-2", Outcome: domain.OutcomeSaved}))
	require.NoError(t, store.Clear(ctx))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
