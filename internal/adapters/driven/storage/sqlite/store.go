package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/levelshelf/levelshelf/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/levelshelf/levelshelf/internal/core/domain"
	"github.com/levelshelf/levelshelf/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that backs both the record store
// and the embedding cache, so a single database file holds the whole
// engine state.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.levelshelf/data/levelshelf.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".levelshelf", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "levelshelf.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// EmbeddingCache returns an EmbeddingCache interface backed by this store.
func (s *Store) EmbeddingCache() driven.EmbeddingCache {
	return &embeddingCache{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Upsert inserts or replaces the record keyed by its ID. The single
// INSERT ... ON CONFLICT statement commits atomically, so a concurrent
// reader sees either the old or the new record in full.
func (s *recordStore) Upsert(ctx context.Context, record *domain.TextRecord) error {
	embeddingBlob := float32SliceToBytes(record.Embedding)

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO texts (id, title, body, lexile, grade_band, phonics_focus, theme,
			fingerprint, embedding, embedding_model, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			lexile = excluded.lexile,
			grade_band = excluded.grade_band,
			phonics_focus = excluded.phonics_focus,
			theme = excluded.theme,
			fingerprint = excluded.fingerprint,
			embedding = excluded.embedding,
			embedding_model = excluded.embedding_model,
			updated_at = excluded.updated_at
	`, record.ID, record.Title, record.Body, record.Lexile, record.GradeBand,
		record.PhonicsFocus, record.Theme, record.Fingerprint,
		embeddingBlob, record.EmbeddingModel, record.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *recordStore) Get(ctx context.Context, id string) (*domain.TextRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, body, lexile, grade_band, phonics_focus, theme,
			fingerprint, embedding, embedding_model, updated_at
		FROM texts WHERE id = ?
	`, id)

	return scanRecordRow(row)
}

// List returns records matching the filter in insertion order (rowid).
func (s *recordStore) List(ctx context.Context, filter domain.Filter, limit int) ([]domain.TextRecord, error) {
	where, params := filterClauses(filter)

	query := `
		SELECT id, title, body, lexile, grade_band, phonics_focus, theme,
			fingerprint, embedding, embedding_model, updated_at
		FROM texts` + where + ` ORDER BY rowid`
	if limit > 0 {
		query += " LIMIT ?"
		params = append(params, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// AllWithEmbeddings returns every record carrying an embedding vector.
func (s *recordStore) AllWithEmbeddings(ctx context.Context) ([]domain.TextRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, body, lexile, grade_band, phonics_focus, theme,
			fingerprint, embedding, embedding_model, updated_at
		FROM texts
		WHERE embedding IS NOT NULL AND length(embedding) > 0
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying embedded records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Count returns the total number of stored records.
func (s *recordStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM texts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// filterClauses builds the WHERE clause for a metadata filter.
func filterClauses(filter domain.Filter) (string, []any) {
	var clauses []string
	var params []any

	if filter.LexileMin != nil {
		clauses = append(clauses, "lexile >= ?")
		params = append(params, *filter.LexileMin)
	}
	if filter.LexileMax != nil {
		clauses = append(clauses, "lexile <= ?")
		params = append(params, *filter.LexileMax)
	}
	if filter.GradeBand != "" {
		clauses = append(clauses, "grade_band = ?")
		params = append(params, filter.GradeBand)
	}
	if filter.PhonicsFocus != "" {
		clauses = append(clauses, "phonics_focus = ?")
		params = append(params, filter.PhonicsFocus)
	}
	if filter.Theme != "" {
		clauses = append(clauses, "theme = ?")
		params = append(params, filter.Theme)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), params
}

// ==================== Embedding Cache ====================

// embeddingCache implements driven.EmbeddingCache.
type embeddingCache struct {
	store *Store
}

var _ driven.EmbeddingCache = (*embeddingCache)(nil)

// Get returns the cached vector for (fingerprint, model), or ok=false.
func (c *embeddingCache) Get(ctx context.Context, fingerprint, model string) ([]float32, bool, error) {
	var blob []byte
	err := c.store.db.QueryRowContext(ctx, `
		SELECT vector FROM embedding_cache WHERE fingerprint = ? AND model = ?
	`, fingerprint, model).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}

	return bytesToFloat32Slice(blob), true, nil
}

// Put stores a vector under (fingerprint, model). Conflicting keys are
// left untouched, which makes Put observably idempotent.
func (c *embeddingCache) Put(ctx context.Context, fingerprint, model string, vector []float32) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (fingerprint, model, vector, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint, model) DO NOTHING
	`, fingerprint, model, float32SliceToBytes(vector), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanRecordRow scans a single record row.
func scanRecordRow(row *sql.Row) (*domain.TextRecord, error) {
	var record domain.TextRecord
	var embeddingBlob []byte
	var updatedAt sql.NullTime

	if err := row.Scan(&record.ID, &record.Title, &record.Body, &record.Lexile,
		&record.GradeBand, &record.PhonicsFocus, &record.Theme,
		&record.Fingerprint, &embeddingBlob, &record.EmbeddingModel, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	record.Embedding = bytesToFloat32Slice(embeddingBlob)
	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time
	}

	return &record, nil
}

// scanRecords scans multiple record rows.
func scanRecords(rows *sql.Rows) ([]domain.TextRecord, error) {
	var records []domain.TextRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.TextRecord
		var embeddingBlob []byte
		var updatedAt sql.NullTime

		if err := rows.Scan(&record.ID, &record.Title, &record.Body, &record.Lexile,
			&record.GradeBand, &record.PhonicsFocus, &record.Theme,
			&record.Fingerprint, &embeddingBlob, &record.EmbeddingModel, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		record.Embedding = bytesToFloat32Slice(embeddingBlob)
		if updatedAt.Valid {
			record.UpdatedAt = updatedAt.Time
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}
