package domain

import "fmt"

// Filter is a conjunction of metadata predicates applied to text records.
// Zero-valued fields are not applied.
type Filter struct {
	// LexileMin is the inclusive lower bound on the lexile score.
	LexileMin *int

	// LexileMax is the inclusive upper bound on the lexile score.
	LexileMax *int

	// GradeBand matches records with this exact grade band label.
	GradeBand string

	// PhonicsFocus matches records with this exact phonics tag.
	PhonicsFocus string

	// Theme matches records with this exact theme tag.
	Theme string
}

// Validate rejects malformed filter ranges before any work is done.
func (f *Filter) Validate() error {
	if f.LexileMin != nil && f.LexileMax != nil && *f.LexileMin > *f.LexileMax {
		return fmt.Errorf("%w: lexile_min %d exceeds lexile_max %d",
			ErrInvalidArgument, *f.LexileMin, *f.LexileMax)
	}
	return nil
}

// Matches reports whether a record satisfies every predicate in the filter.
func (f *Filter) Matches(r *TextRecord) bool {
	if f.LexileMin != nil && r.Lexile < *f.LexileMin {
		return false
	}
	if f.LexileMax != nil && r.Lexile > *f.LexileMax {
		return false
	}
	if f.GradeBand != "" && r.GradeBand != f.GradeBand {
		return false
	}
	if f.PhonicsFocus != "" && r.PhonicsFocus != f.PhonicsFocus {
		return false
	}
	if f.Theme != "" && r.Theme != f.Theme {
		return false
	}
	return true
}

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// K is the maximum number of results. Must be positive.
	K int

	// Filter restricts the candidate set before scoring.
	Filter Filter

	// MinScore drops candidates scoring below this threshold.
	// Zero means no threshold.
	MinScore float64
}

// SearchResult is one ranked similarity hit.
type SearchResult struct {
	// Record is the matched passage.
	Record TextRecord

	// Score is the cosine similarity to the query, in [-1, 1].
	Score float64
}
