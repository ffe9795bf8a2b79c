package driven

import "context"

// EmbeddingCache maps (content fingerprint, model name) to a previously
// computed vector, so an unchanged body never costs a second provider call.
// The cache is shared between the ingest and query paths and survives
// restarts when backed by durable storage.
//
// Put is idempotent: writing the same key twice is observably a no-op.
// Entries are never evicted automatically; the corpus is small enough that
// unbounded growth is acceptable.
type EmbeddingCache interface {
	// Get returns the cached vector for the key, or ok=false when absent.
	Get(ctx context.Context, fingerprint, model string) (vector []float32, ok bool, err error)

	// Put stores a vector under the key.
	Put(ctx context.Context, fingerprint, model string, vector []float32) error
}
