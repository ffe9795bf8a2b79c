package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a malformed request parameter,
	// such as a non-positive k or an inverted lexile range.
	// The request is rejected before any work is done.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrValidation indicates a malformed ingest entry. The entry is
	// skipped and counted as failed; the rest of the batch continues.
	ErrValidation = errors.New("validation failed")

	// ErrDependencyUnavailable indicates the embedding provider could not
	// be reached after retries. Surfaced to search callers as a retryable
	// error; surfaced to ingest callers as a failed count.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
