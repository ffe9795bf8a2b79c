package driving

import (
	"context"

	"github.com/levelshelf/levelshelf/internal/core/domain"
)

// Ingestor drives a corpus batch through the ingestion pipeline.
type Ingestor interface {
	// Ingest processes the batch entry by entry. Failures are per-entry
	// and never abort the batch; earlier successes are not rolled back.
	// Running Ingest twice on an unchanged corpus leaves the store
	// byte-for-byte identical and makes zero provider calls.
	Ingest(ctx context.Context, entries []domain.IngestEntry) (*domain.IngestSummary, error)
}
