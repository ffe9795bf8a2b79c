// Package domain contains the core business types for the levelshelf
// retrieval engine: leveled text records, ingest entries and summaries,
// search filters and results, and the sentinel error taxonomy.
//
// The domain layer has no dependencies on adapters or infrastructure.
package domain
