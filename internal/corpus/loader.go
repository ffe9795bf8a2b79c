// Package corpus loads leveled-text batches from JSON files and watches
// them for changes so a running server can re-ingest edited corpora.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/levelshelf/levelshelf/internal/core/domain"
)

// LoadFile reads a corpus file containing a JSON array of text entries.
func LoadFile(path string) ([]domain.IngestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON array of text entries.
func Parse(data []byte) ([]domain.IngestEntry, error) {
	var entries []domain.IngestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode corpus: %v", domain.ErrValidation, err)
	}
	return entries, nil
}
