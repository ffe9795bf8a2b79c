package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/levelshelf/levelshelf/internal/core/domain"
	"github.com/levelshelf/levelshelf/internal/core/ports/driven"
	"github.com/levelshelf/levelshelf/internal/core/ports/driving"
	"github.com/levelshelf/levelshelf/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.Searcher = (*SearchService)(nil)

// SearchService ranks stored records against a query embedding. Queries for
// already-embedded content never call the provider: the query text goes
// through the same fingerprint cache as ingest, so repeated identical
// queries are served from the cache.
type SearchService struct {
	store    driven.RecordStore
	embedder *CachedEmbedder
}

// NewSearchService creates a new similarity search engine.
func NewSearchService(store driven.RecordStore, embedder *CachedEmbedder) *SearchService {
	return &SearchService{
		store:    store,
		embedder: embedder,
	}
}

// Search embeds the query and returns the top-K candidates by cosine
// similarity. Output is deterministic: descending score, ties broken by
// ascending id. Fewer than K qualifying candidates returns all of them.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	logger.Section("Similarity Search")
	logger.Debug("Query: %q, k=%d", query, opts.K)

	if opts.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidArgument, opts.K)
	}
	if err := opts.Filter.Validate(); err != nil {
		return nil, err
	}

	queryVec, _, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := s.store.AllWithEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	logger.Debug("Candidates with embeddings: %d", len(candidates))

	model := s.embedder.ModelName()
	results := make([]domain.SearchResult, 0, len(candidates))
	for i := range candidates {
		rec := &candidates[i]
		// Vectors from different models are never interchangeable. A
		// record embedded before a model switch stays invisible to
		// ranked search until the next ingest pass re-embeds it.
		if rec.EmbeddingModel != model {
			continue
		}
		if !opts.Filter.Matches(rec) {
			continue
		}
		score := cosineSimilarity(queryVec, rec.Embedding)
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		results = append(results, domain.SearchResult{Record: *rec, Score: score})
	}
	logger.Debug("Candidates after filtering: %d", len(results))

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})

	if len(results) > opts.K {
		results = results[:opts.K]
	}

	logger.Info("Search returned %d results", len(results))
	return results, nil
}

// List returns records matching the filter without ranking.
func (s *SearchService) List(ctx context.Context, filter domain.Filter, limit int) ([]domain.TextRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Get retrieves a single record by id.
func (s *SearchService) Get(ctx context.Context, id string) (*domain.TextRecord, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// cosineSimilarity computes dot(a, b) / (|a| * |b|) in float64. A zero
// vector on either side scores 0 rather than dividing by zero.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
