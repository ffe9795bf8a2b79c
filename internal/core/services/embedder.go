package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/levelshelf/levelshelf/internal/core/domain"
	"github.com/levelshelf/levelshelf/internal/core/ports/driven"
	"github.com/levelshelf/levelshelf/internal/logger"
)

// Default provider call bounds. The limiter stays well below typical
// provider quotas; the timeout keeps a stalled provider from holding a
// request open indefinitely.
const (
	defaultProviderRPS     = 5.0
	defaultProviderBurst   = 10
	defaultProviderTimeout = 30 * time.Second
)

// CachedEmbedder is the shared embedding path for ingest and search:
// fingerprint the text, consult the cache, and only on a miss call the
// provider, with rate limiting, a per-call timeout and the retry policy
// applied. A resolved miss is written to the cache before the vector is
// returned, so the store can never reference an embedding the cache does
// not have.
type CachedEmbedder struct {
	cache    driven.EmbeddingCache
	provider driven.EmbeddingProvider
	retry    RetryPolicy
	limiter  *rate.Limiter
	timeout  time.Duration
}

// EmbedderOption customises a CachedEmbedder.
type EmbedderOption func(*CachedEmbedder)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) EmbedderOption {
	return func(e *CachedEmbedder) { e.retry = p }
}

// WithProviderTimeout bounds each individual provider call.
func WithProviderTimeout(d time.Duration) EmbedderOption {
	return func(e *CachedEmbedder) { e.timeout = d }
}

// WithRateLimit replaces the default provider rate limit.
func WithRateLimit(rps float64, burst int) EmbedderOption {
	return func(e *CachedEmbedder) { e.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewCachedEmbedder creates the cache-aware embedding path.
func NewCachedEmbedder(cache driven.EmbeddingCache, provider driven.EmbeddingProvider, opts ...EmbedderOption) *CachedEmbedder {
	e := &CachedEmbedder{
		cache:    cache,
		provider: provider,
		retry:    DefaultRetryPolicy,
		limiter:  rate.NewLimiter(rate.Limit(defaultProviderRPS), defaultProviderBurst),
		timeout:  defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModelName returns the provider's model identifier.
func (e *CachedEmbedder) ModelName() string {
	return e.provider.ModelName()
}

// Embed returns the vector for the given text along with its fingerprint.
// Cache hits never touch the provider. Provider failures after retries are
// reported as domain.ErrDependencyUnavailable.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) (vector []float32, fingerprint string, err error) {
	fingerprint = domain.Fingerprint(text)
	model := e.provider.ModelName()

	cached, ok, err := e.cache.Get(ctx, fingerprint, model)
	if err != nil {
		return nil, fingerprint, fmt.Errorf("cache lookup: %w", err)
	}
	if ok {
		logger.Debug("embedding cache hit for %s (%s)", fingerprint[:12], model)
		return cached, fingerprint, nil
	}

	logger.Debug("embedding cache miss for %s (%s)", fingerprint[:12], model)

	err = e.retry.Do(ctx, func(ctx context.Context) error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		v, embedErr := e.provider.Embed(callCtx, text)
		if embedErr != nil {
			return embedErr
		}
		vector = v
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fingerprint, ctx.Err()
		}
		return nil, fingerprint, fmt.Errorf("%w: embed via %s: %v", domain.ErrDependencyUnavailable, model, err)
	}

	// Cache-first ordering: the cache entry lands before any store write
	// that references this vector.
	if err := e.cache.Put(ctx, fingerprint, model, vector); err != nil {
		return nil, fingerprint, fmt.Errorf("cache put: %w", err)
	}

	return vector, fingerprint, nil
}
