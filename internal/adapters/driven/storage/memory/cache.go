package memory

import (
	"context"
	"sync"

	"github.com/levelshelf/levelshelf/internal/core/ports/driven"
)

// Ensure EmbeddingCache implements the interface.
var _ driven.EmbeddingCache = (*EmbeddingCache)(nil)

// EmbeddingCache is an in-memory implementation of driven.EmbeddingCache.
// Entries are keyed by (fingerprint, model) and never evicted.
type EmbeddingCache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]float32
}

type cacheKey struct {
	fingerprint string
	model       string
}

// NewEmbeddingCache creates a new in-memory embedding cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{
		entries: make(map[cacheKey][]float32),
	}
}

// Get returns the cached vector for the key, or ok=false when absent.
func (c *EmbeddingCache) Get(_ context.Context, fingerprint, model string) ([]float32, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	vector, ok := c.entries[cacheKey{fingerprint, model}]
	if !ok {
		return nil, false, nil
	}
	out := make([]float32, len(vector))
	copy(out, vector)
	return out, true, nil
}

// Put stores a vector under the key. Re-putting an existing key is a no-op.
func (c *EmbeddingCache) Put(_ context.Context, fingerprint, model string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{fingerprint, model}
	if _, ok := c.entries[key]; ok {
		return nil
	}
	stored := make([]float32, len(vector))
	copy(stored, vector)
	c.entries[key] = stored
	return nil
}

// Len returns the number of cached entries. Useful in tests.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
