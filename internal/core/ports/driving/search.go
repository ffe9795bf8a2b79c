package driving

import (
	"context"

	"github.com/levelshelf/levelshelf/internal/core/domain"
)

// Searcher answers similarity-ranked and metadata-filtered retrieval
// queries against the record store.
type Searcher interface {
	// Search embeds the query text and returns up to opts.K records
	// ranked by cosine similarity, ties broken by ascending id. Fewer
	// than K qualifying candidates is not an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// List returns records matching the filter without ranking, in
	// insertion order. Records without embeddings are findable here.
	List(ctx context.Context, filter domain.Filter, limit int) ([]domain.TextRecord, error)

	// Get retrieves a single record by id.
	Get(ctx context.Context, id string) (*domain.TextRecord, error)
}
