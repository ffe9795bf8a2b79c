// Package memory provides in-memory implementations of the storage ports
// for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/levelshelf/levelshelf/internal/core/domain"
	"github.com/levelshelf/levelshelf/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
// Upserts swap the whole record under the lock, so readers always observe
// a complete record.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.TextRecord
	order   []string
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string]domain.TextRecord),
	}
}

// Upsert inserts or replaces the record keyed by its ID.
func (s *RecordStore) Upsert(_ context.Context, record *domain.TextRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; !ok {
		s.order = append(s.order, record.ID)
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// Get retrieves a record by ID.
func (s *RecordStore) Get(_ context.Context, id string) (*domain.TextRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneRecord(&record)
	return &out, nil
}

// List returns records matching the filter in insertion order.
func (s *RecordStore) List(_ context.Context, filter domain.Filter, limit int) ([]domain.TextRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.TextRecord
	for _, id := range s.order {
		record := s.records[id]
		if !filter.Matches(&record) {
			continue
		}
		result = append(result, cloneRecord(&record))
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// AllWithEmbeddings returns every record carrying an embedding vector.
func (s *RecordStore) AllWithEmbeddings(_ context.Context) ([]domain.TextRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.TextRecord
	for _, id := range s.order {
		record := s.records[id]
		if record.HasEmbedding() {
			result = append(result, cloneRecord(&record))
		}
	}
	return result, nil
}

// Count returns the total number of stored records.
func (s *RecordStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// cloneRecord copies a record including its embedding slice, so callers
// can never mutate stored state through a returned record.
func cloneRecord(r *domain.TextRecord) domain.TextRecord {
	out := *r
	if r.Embedding != nil {
		out.Embedding = make([]float32, len(r.Embedding))
		copy(out.Embedding, r.Embedding)
	}
	return out
}
