package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/levelshelf/levelshelf/internal/core/domain"
	"github.com/levelshelf/levelshelf/internal/core/ports/driven"
	"github.com/levelshelf/levelshelf/internal/core/ports/driving"
	"github.com/levelshelf/levelshelf/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// IngestService drives corpus batches through validation, fingerprinting,
// the embedding cache and the record store. Failures are per-entry; an
// entry that cannot be processed never aborts the rest of the batch.
type IngestService struct {
	store    driven.RecordStore
	embedder *CachedEmbedder
	locks    *keyedMutex
}

// NewIngestService creates a new ingestion pipeline.
func NewIngestService(store driven.RecordStore, embedder *CachedEmbedder) *IngestService {
	return &IngestService{
		store:    store,
		embedder: embedder,
		locks:    newKeyedMutex(),
	}
}

// Ingest processes the batch entry by entry and returns per-outcome counts.
// Cancellation stops further entries but leaves committed records in place.
func (s *IngestService) Ingest(ctx context.Context, entries []domain.IngestEntry) (*domain.IngestSummary, error) {
	summary := &domain.IngestSummary{BatchID: uuid.NewString()}

	logger.Section("Ingest Run")
	logger.Info("Batch %s: %d entries", summary.BatchID, len(entries))

	for i := range entries {
		if err := ctx.Err(); err != nil {
			logger.Warn("Batch %s cancelled after %d entries", summary.BatchID, i)
			return summary, err
		}
		s.ingestOne(ctx, &entries[i], summary)
	}

	logger.Info("Batch %s done: inserted=%d updated=%d unchanged=%d failed=%d",
		summary.BatchID, summary.Inserted, summary.Updated, summary.Unchanged, summary.FailedCount)

	return summary, nil
}

// ingestOne handles a single corpus entry under its per-id lock.
func (s *IngestService) ingestOne(ctx context.Context, entry *domain.IngestEntry, summary *domain.IngestSummary) {
	if err := entry.Validate(); err != nil {
		logger.Debug("Skipping invalid entry: %v", err)
		s.fail(summary, entry.ID, err)
		return
	}

	unlock := s.locks.Lock(entry.ID)
	defer unlock()

	record := entry.Record()
	record.Fingerprint = domain.Fingerprint(entry.Body)

	existing, err := s.store.Get(ctx, entry.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.fail(summary, entry.ID, fmt.Errorf("store lookup: %w", err))
		return
	}

	model := s.embedder.ModelName()

	if existing != nil && existing.Fingerprint == record.Fingerprint &&
		existing.HasEmbedding() && existing.EmbeddingModel == model {
		// Body unchanged and embedding usable: either nothing to do at
		// all, or a metadata-only update that must not re-embed.
		if existing.MetadataEquals(&record) {
			logger.Debug("Unchanged: %s", entry.ID)
			summary.Unchanged++
			return
		}

		record.Embedding = existing.Embedding
		record.EmbeddingModel = existing.EmbeddingModel
		if err := s.upsert(ctx, &record); err != nil {
			s.fail(summary, entry.ID, err)
			return
		}
		logger.Debug("Metadata update: %s", entry.ID)
		summary.Updated++
		return
	}

	// New record, changed body, or a previous embedding attempt failed:
	// run the cache/provider path. A cache hit still costs no provider
	// call.
	vector, _, err := s.embedder.Embed(ctx, entry.Body)
	if err != nil {
		// The record stays findable by metadata listing, it just cannot
		// be ranked by similarity until a later ingest succeeds.
		logger.Warn("Embedding failed for %s: %v", entry.ID, err)
		record.Embedding = nil
		record.EmbeddingModel = ""
		if upsertErr := s.upsert(ctx, &record); upsertErr != nil {
			s.fail(summary, entry.ID, upsertErr)
			return
		}
		s.fail(summary, entry.ID, err)
		return
	}

	record.Embedding = vector
	record.EmbeddingModel = model

	if err := s.upsert(ctx, &record); err != nil {
		s.fail(summary, entry.ID, err)
		return
	}

	if existing == nil {
		logger.Debug("Inserted: %s", entry.ID)
		summary.Inserted++
	} else {
		logger.Debug("Re-embedded: %s", entry.ID)
		summary.Updated++
	}
}

// upsert stamps the write time and commits the record atomically.
func (s *IngestService) upsert(ctx context.Context, record *domain.TextRecord) error {
	record.UpdatedAt = time.Now().UTC()
	if err := s.store.Upsert(ctx, record); err != nil {
		return fmt.Errorf("upsert %s: %w", record.ID, err)
	}
	return nil
}

func (s *IngestService) fail(summary *domain.IngestSummary, id string, err error) {
	summary.FailedCount++
	summary.Failed = append(summary.Failed, domain.FailedEntry{ID: id, Reason: err.Error()})
}
