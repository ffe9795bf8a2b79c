package driven

import "context"

// EmbeddingProvider generates vector embeddings from text. It is the only
// network-bound collaborator of the retrieval core; calls must honour the
// context deadline so a slow provider cannot stall unrelated searches.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Local models via inference servers
type EmbeddingProvider interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is determined by the model.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	// It keys the embedding cache together with the content fingerprint.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
