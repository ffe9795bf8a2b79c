package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelshelf/levelshelf/internal/adapters/driven/storage/memory"
	"github.com/levelshelf/levelshelf/internal/core/domain"
)

func testCorpus() []domain.IngestEntry {
	return []domain.IngestEntry{
		{
			ID:        "cat-mat",
			Title:     "The Cat",
			Body:      "The cat sat on the mat.",
			Lexile:    300,
			GradeBand: "K-1",
			Theme:     "animals",
		},
		{
			ID:        "photosynthesis",
			Title:     "Plant Energy",
			Body:      "Photosynthesis converts light into chemical energy.",
			Lexile:    900,
			GradeBand: "9-10",
			Theme:     "science",
		},
	}
}

func newIngestFixture(provider *fakeProvider) (*IngestService, *memory.RecordStore, *memory.EmbeddingCache) {
	store := memory.NewRecordStore()
	cache := memory.NewEmbeddingCache()
	return NewIngestService(store, newTestEmbedder(provider, cache)), store, cache
}

func TestIngestInsertsNewRecords(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newIngestFixture(provider)
	ctx := context.Background()

	summary, err := svc.Ingest(ctx, testCorpus())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.Unchanged)
	assert.Equal(t, 0, summary.FailedCount)
	assert.NotEmpty(t, summary.BatchID)
	assert.Equal(t, 2, provider.callCount())

	record, err := store.Get(ctx, "cat-mat")
	require.NoError(t, err)
	assert.Equal(t, domain.Fingerprint("The cat sat on the mat."), record.Fingerprint)
	assert.True(t, record.HasEmbedding())
	assert.Equal(t, "fake-embed", record.EmbeddingModel)
	assert.False(t, record.UpdatedAt.IsZero())
}

func TestIngestIdempotent(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newIngestFixture(provider)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, testCorpus())
	require.NoError(t, err)

	before, err := store.Get(ctx, "cat-mat")
	require.NoError(t, err)

	// Second pass over the unchanged corpus: no writes, no provider calls.
	summary, err := svc.Ingest(ctx, testCorpus())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 2, summary.Unchanged)
	assert.Equal(t, 0, summary.FailedCount)
	assert.Equal(t, 2, provider.callCount())

	after, err := store.Get(ctx, "cat-mat")
	require.NoError(t, err)
	assert.Equal(t, *before, *after)
}

func TestIngestMetadataOnlyUpdateSkipsEmbedding(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newIngestFixture(provider)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, testCorpus())
	require.NoError(t, err)
	require.Equal(t, 2, provider.callCount())

	before, err := store.Get(ctx, "cat-mat")
	require.NoError(t, err)

	// Change only the title; the body fingerprint is unchanged.
	corpus := testCorpus()
	corpus[0].Title = "The Cat on the Mat"

	summary, err := svc.Ingest(ctx, corpus)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Equal(t, 2, provider.callCount(), "metadata change must not re-embed")

	after, err := store.Get(ctx, "cat-mat")
	require.NoError(t, err)
	assert.Equal(t, "The Cat on the Mat", after.Title)
	assert.Equal(t, before.Embedding, after.Embedding)
	assert.Equal(t, before.Fingerprint, after.Fingerprint)
}

func TestIngestBodyChangeReEmbeds(t *testing.T) {
	provider := &fakeProvider{
		vectors: map[string][]float32{
			"The cat sat on the mat.": {1, 0, 0},
			"The cat slept all day.":  {0, 1, 0},
		},
	}
	svc, store, _ := newIngestFixture(provider)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, testCorpus())
	require.NoError(t, err)

	corpus := testCorpus()
	corpus[0].Body = "The cat slept all day."

	summary, err := svc.Ingest(ctx, corpus)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Equal(t, 3, provider.callCount())

	record, err := store.Get(ctx, "cat-mat")
	require.NoError(t, err)
	assert.Equal(t, domain.Fingerprint("The cat slept all day."), record.Fingerprint)
	assert.Equal(t, []float32{0, 1, 0}, record.Embedding)
}

func TestIngestSkipsInvalidEntries(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newIngestFixture(provider)
	ctx := context.Background()

	corpus := append(testCorpus(),
		domain.IngestEntry{ID: "", Body: "orphan text"},
		domain.IngestEntry{ID: "no-body", Title: "Empty"},
	)

	summary, err := svc.Ingest(ctx, corpus)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 2, summary.FailedCount)
	require.Len(t, summary.Failed, 2)
	assert.Equal(t, "no-body", summary.Failed[1].ID)
	assert.Contains(t, summary.Failed[1].Reason, "empty text")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestProviderFailureLeavesMetadataFindable(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	svc, store, _ := newIngestFixture(provider)
	ctx := context.Background()

	summary, err := svc.Ingest(ctx, testCorpus()[:1])
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 1, summary.FailedCount)

	// The record exists without an embedding: invisible to similarity
	// search, still findable by metadata listing.
	record, err := store.Get(ctx, "cat-mat")
	require.NoError(t, err)
	assert.False(t, record.HasEmbedding())

	embedded, err := store.AllWithEmbeddings(ctx)
	require.NoError(t, err)
	assert.Empty(t, embedded)
}

func TestIngestRetriesFailedEmbeddingOnNextPass(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	svc, store, _ := newIngestFixture(provider)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, testCorpus()[:1])
	require.NoError(t, err)

	// Provider recovers; the same corpus pass re-embeds the record.
	provider.mu.Lock()
	provider.err = nil
	provider.defaultVec = []float32{0.7, 0.7, 0}
	provider.mu.Unlock()

	summary, err := svc.Ingest(ctx, testCorpus()[:1])
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.FailedCount)

	record, err := store.Get(ctx, "cat-mat")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.7, 0.7, 0}, record.Embedding)
}

func TestIngestCancellationKeepsCommittedRecords(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newIngestFixture(provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.Ingest(ctx, testCorpus())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Inserted)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIngestConcurrentBatchesDistinctIDs(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newIngestFixture(provider)
	ctx := context.Background()

	corpus := testCorpus()
	done := make(chan struct{}, 2)
	go func() {
		_, _ = svc.Ingest(ctx, corpus[:1])
		done <- struct{}{}
	}()
	go func() {
		_, _ = svc.Ingest(ctx, corpus[1:])
		done <- struct{}{}
	}()
	<-done
	<-done

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
