// Package sqlite provides a SQLite-backed implementation of the record
// store and embedding cache ports. A single database file holds both, so
// the cache survives restarts alongside the records it serves.
//
// Uses modernc.org/sqlite (pure Go, no cgo). Schema changes are applied
// through embedded migrations at startup.
package sqlite
