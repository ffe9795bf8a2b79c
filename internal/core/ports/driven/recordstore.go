package driven

import (
	"context"

	"github.com/levelshelf/levelshelf/internal/core/domain"
)

// RecordStore is the durable single source of truth for text records.
// Backed by SQLite in production, by a map for tests.
//
// Upsert must be atomic per id: a concurrent reader observes either the old
// or the new record in full, never a half-written one.
type RecordStore interface {
	// Upsert inserts or replaces the record keyed by its ID.
	Upsert(ctx context.Context, record *domain.TextRecord) error

	// Get retrieves a record by ID. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.TextRecord, error)

	// List returns records matching the filter, in insertion order.
	// Records without embeddings are included; limit <= 0 means no limit.
	List(ctx context.Context, filter domain.Filter, limit int) ([]domain.TextRecord, error)

	// AllWithEmbeddings returns every record carrying an embedding vector.
	// These form the candidate set for similarity search.
	AllWithEmbeddings(ctx context.Context) ([]domain.TextRecord, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int, error)
}
