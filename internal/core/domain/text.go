package domain

import (
	"fmt"
	"strings"
	"time"
)

// TextRecord represents a leveled reading passage held in the record store.
// It is the canonical representation after ingest.
type TextRecord struct {
	// ID is the stable unique identifier assigned by the corpus source.
	// Immutable once stored.
	ID string

	// Title is the human-readable title.
	Title string

	// Body is the full passage text. It is the unit that is hashed
	// and embedded.
	Body string

	// Lexile is the integer readability score.
	Lexile int

	// GradeBand is an ordered categorical label such as "K-1" or "2-4".
	GradeBand string

	// PhonicsFocus is a free-form tag used only for filtering.
	PhonicsFocus string

	// Theme is a free-form tag used only for filtering.
	Theme string

	// Fingerprint is the content hash of Body. Recomputed on every
	// ingest pass; changes iff Body changes.
	Fingerprint string

	// Embedding is the vector representation of Body. Empty when no
	// embedding has been computed for (Fingerprint, EmbeddingModel).
	Embedding []float32

	// EmbeddingModel identifies the model that produced Embedding.
	// Vectors from different models are never interchangeable.
	EmbeddingModel string

	// UpdatedAt is the time of the last successful store write.
	UpdatedAt time.Time
}

// HasEmbedding reports whether the record carries a usable vector.
func (r *TextRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// IngestEntry is a raw corpus entry before validation.
// The shape matches one element of the corpus batch JSON.
type IngestEntry struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Body         string `json:"text"`
	Lexile       int    `json:"lexile"`
	GradeBand    string `json:"grade_band"`
	PhonicsFocus string `json:"phonics_focus"`
	Theme        string `json:"theme"`
}

// Validate checks the required fields of a corpus entry. Invalid entries
// become ErrValidation at the ingest boundary, never silently coerced.
func (e *IngestEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrValidation)
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Errorf("%w: entry %q has empty text", ErrValidation, e.ID)
	}
	if e.Lexile < 0 {
		return fmt.Errorf("%w: entry %q has negative lexile %d", ErrValidation, e.ID, e.Lexile)
	}
	return nil
}

// Record builds a TextRecord from a validated entry. Fingerprint, embedding
// and timestamps are filled in by the ingest pipeline.
func (e *IngestEntry) Record() TextRecord {
	return TextRecord{
		ID:           e.ID,
		Title:        e.Title,
		Body:         e.Body,
		Lexile:       e.Lexile,
		GradeBand:    e.GradeBand,
		PhonicsFocus: e.PhonicsFocus,
		Theme:        e.Theme,
	}
}

// MetadataEquals reports whether two records carry the same title and
// filter metadata. Used to decide between the unchanged and metadata-only
// update paths during ingest; body and embedding are compared separately.
func (r *TextRecord) MetadataEquals(other *TextRecord) bool {
	return r.Title == other.Title &&
		r.Lexile == other.Lexile &&
		r.GradeBand == other.GradeBand &&
		r.PhonicsFocus == other.PhonicsFocus &&
		r.Theme == other.Theme
}

// FailedEntry records one ingest entry that could not be processed.
type FailedEntry struct {
	// ID is the entry identifier, or "" when the id itself was missing.
	ID string `json:"id"`

	// Reason is a human-readable failure description.
	Reason string `json:"reason"`
}

// IngestSummary reports the outcome of one ingest batch.
type IngestSummary struct {
	// BatchID uniquely identifies the ingest run.
	BatchID string `json:"batch_id"`

	// Inserted counts records created on first ingest of their id.
	Inserted int `json:"inserted"`

	// Updated counts existing records that were rewritten, whether
	// metadata-only or re-embedded.
	Updated int `json:"updated"`

	// Unchanged counts entries identical to the stored record. No store
	// write and no provider call happens for these.
	Unchanged int `json:"unchanged"`

	// FailedCount counts entries that were skipped or could not be
	// embedded.
	FailedCount int `json:"failed"`

	// Failed lists the failed entries with reasons.
	Failed []FailedEntry `json:"failed_entries,omitempty"`
}
