package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gleanly/glean/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.glean/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".glean", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
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

// FragmentStore returns a FragmentStore interface backed by this store.
func (s *Store) FragmentStore() driven.FragmentStore {
	return &fragmentStore{store: s}
}

// EmbeddingStore returns an EmbeddingStore interface backed by this store.
func (s *Store) EmbeddingStore() driven.EmbeddingStore {
	return &embeddingStore{store: s}
}

// ProcessedStore returns a ProcessedStore interface backed by this store.
func (s *Store) ProcessedStore() driven.ProcessedStore {
	return &processedStore{store: s}
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

	// Sort and run migrations
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

		// Read and execute migration
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

// ==================== Fragment Store ====================

// fragmentStore implements driven.FragmentStore.
type fragmentStore struct {
	store *Store
}

var _ driven.FragmentStore = (*fragmentStore)(nil)

const fragmentColumns = `id, text, captured_at, meta, kind, confidence, low_confidence,
	subject, content_type, reasoning, key_concepts, mistake_explanation, correct_approach, classified_at`

// Save stores or replaces a classified fragment.
func (s *fragmentStore) Save(ctx context.Context, fragment domain.ClassifiedFragment) error {
	metaJSON, err := json.Marshal(fragment.Meta)
	if err != nil {
		return fmt.Errorf("marshalling meta: %w", err)
	}
	conceptsJSON, err := json.Marshal(fragment.KeyConcepts)
	if err != nil {
		return fmt.Errorf("marshalling key concepts: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO fragments (id, text, captured_at, meta, kind, confidence, low_confidence,
			subject, content_type, reasoning, key_concepts, mistake_explanation, correct_approach, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			captured_at = excluded.captured_at,
			meta = excluded.meta,
			kind = excluded.kind,
			confidence = excluded.confidence,
			low_confidence = excluded.low_confidence,
			subject = excluded.subject,
			content_type = excluded.content_type,
			reasoning = excluded.reasoning,
			key_concepts = excluded.key_concepts,
			mistake_explanation = excluded.mistake_explanation,
			correct_approach = excluded.correct_approach,
			classified_at = excluded.classified_at
	`, fragment.ID, fragment.Text, fragment.Source.CapturedAt.UTC(), string(metaJSON),
		fragment.Kind.String(), fragment.Confidence, boolToInt(fragment.LowConfidence),
		fragment.Subject, fragment.ContentType, fragment.Reasoning, string(conceptsJSON),
		fragment.MistakeExplanation, fragment.CorrectApproach, fragment.ClassifiedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving fragment: %w", err)
	}
	return nil
}

// Get retrieves a fragment by id.
func (s *fragmentStore) Get(ctx context.Context, id string) (*domain.ClassifiedFragment, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments WHERE id = ?`, id)

	return scanFragmentRow(row)
}

// List returns all fragments ordered by capture time, then id.
func (s *fragmentStore) List(ctx context.Context) ([]domain.ClassifiedFragment, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments ORDER BY captured_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	return scanFragments(rows)
}

// ListBySubject returns the subject's fragments ordered by capture time, then id.
func (s *fragmentStore) ListBySubject(ctx context.Context, subject string) ([]domain.ClassifiedFragment, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments WHERE subject = ? ORDER BY captured_at, id`, subject)
	if err != nil {
		return nil, fmt.Errorf("querying fragments by subject: %w", err)
	}
	defer rows.Close()

	return scanFragments(rows)
}

// Delete removes a fragment. Deleting an absent id is a no-op.
func (s *fragmentStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM fragments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting fragment: %w", err)
	}
	return nil
}

// Clear removes all fragments.
func (s *fragmentStore) Clear(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM fragments")
	if err != nil {
		return fmt.Errorf("clearing fragments: %w", err)
	}
	return nil
}

// ==================== Embedding Store ====================

// embeddingStore implements driven.EmbeddingStore.
type embeddingStore struct {
	store *Store
}

var _ driven.EmbeddingStore = (*embeddingStore)(nil)

// SaveEmbedding stores or replaces the record for its id.
func (s *embeddingStore) SaveEmbedding(ctx context.Context, record domain.EmbeddingRecord) error {
	vectorBlob := float32SliceToBytes(record.Vector)

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, vector, seq, inserted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vector = excluded.vector,
			seq = excluded.seq,
			inserted_at = excluded.inserted_at
	`, record.ID, vectorBlob, record.Seq, record.InsertedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// ListEmbeddings returns all records ordered by Seq ascending.
func (s *embeddingStore) ListEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, vector, seq, inserted_at
		FROM embeddings ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.EmbeddingRecord
		var vectorBlob []byte
		var insertedAt sql.NullTime
		if err := rows.Scan(&record.ID, &vectorBlob, &record.Seq, &insertedAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		record.Vector = bytesToFloat32Slice(vectorBlob)
		if insertedAt.Valid {
			record.InsertedAt = insertedAt.Time
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return records, nil
}

// DeleteEmbedding removes the record for id.
func (s *embeddingStore) DeleteEmbedding(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM embeddings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting embedding: %w", err)
	}
	return nil
}

// ClearEmbeddings removes all records.
func (s *embeddingStore) ClearEmbeddings(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM embeddings")
	if err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}
	return nil
}

// ==================== Processed Store ====================

// processedStore implements driven.ProcessedStore.
type processedStore struct {
	store *Store
}

var _ driven.ProcessedStore = (*processedStore)(nil)

// Get retrieves the entry for a source.
func (s *processedStore) Get(ctx context.Context, sourceID string) (*domain.ProcessedEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, content_hash, outcome, error, processed_at
		FROM processed WHERE source_id = ?
	`, sourceID)

	var entry domain.ProcessedEntry
	var outcome string
	var errMsg sql.NullString
	var processedAt sql.NullTime
	if err := row.Scan(&entry.SourceID, &entry.ContentHash, &outcome, &errMsg, &processedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning processed entry: %w", err)
	}

	entry.Outcome = domain.Outcome(outcome)
	entry.Error = errMsg.String
	if processedAt.Valid {
		entry.ProcessedAt = processedAt.Time
	}

	return &entry, nil
}

// Put stores or replaces an entry.
func (s *processedStore) Put(ctx context.Context, entry domain.ProcessedEntry) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO processed (source_id, content_hash, outcome, error, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			outcome = excluded.outcome,
			error = excluded.error,
			processed_at = excluded.processed_at
	`, entry.SourceID, entry.ContentHash, string(entry.Outcome), entry.Error, entry.ProcessedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving processed entry: %w", err)
	}
	return nil
}

// List returns all entries ordered by source id.
func (s *processedStore) List(ctx context.Context) ([]domain.ProcessedEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, content_hash, outcome, error, processed_at
		FROM processed ORDER BY source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying processed entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.ProcessedEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.ProcessedEntry
		var outcome string
		var errMsg sql.NullString
		var processedAt sql.NullTime
		if err := rows.Scan(&entry.SourceID, &entry.ContentHash, &outcome, &errMsg, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning processed entry: %w", err)
		}
		entry.Outcome = domain.Outcome(outcome)
		entry.Error = errMsg.String
		if processedAt.Valid {
			entry.ProcessedAt = processedAt.Time
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating processed entries: %w", err)
	}

	return entries, nil
}

// Delete removes an entry. Deleting an absent id is a no-op.
func (s *processedStore) Delete(ctx context.Context, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM processed WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting processed entry: %w", err)
	}
	return nil
}

// Clear removes all entries.
func (s *processedStore) Clear(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM processed")
	if err != nil {
		return fmt.Errorf("clearing processed entries: %w", err)
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

// boolToInt converts a bool to the 0/1 form SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanFragmentRow scans a single fragment row.
func scanFragmentRow(row *sql.Row) (*domain.ClassifiedFragment, error) {
	var f domain.ClassifiedFragment
	var capturedAt, classifiedAt sql.NullTime
	var metaJSON, conceptsJSON, kind string
	var lowConfidence int
	var reasoning, mistake, approach sql.NullString

	if err := row.Scan(&f.ID, &f.Text, &capturedAt, &metaJSON, &kind, &f.Confidence, &lowConfidence,
		&f.Subject, &f.ContentType, &reasoning, &conceptsJSON, &mistake, &approach, &classifiedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning fragment: %w", err)
	}

	if err := hydrateFragment(&f, kind, metaJSON, conceptsJSON, lowConfidence,
		reasoning, mistake, approach, capturedAt, classifiedAt); err != nil {
		return nil, err
	}

	return &f, nil
}

// scanFragments scans multiple fragment rows.
func scanFragments(rows *sql.Rows) ([]domain.ClassifiedFragment, error) {
	var fragments []domain.ClassifiedFragment //nolint:prealloc // size unknown from query
	for rows.Next() {
		var f domain.ClassifiedFragment
		var capturedAt, classifiedAt sql.NullTime
		var metaJSON, conceptsJSON, kind string
		var lowConfidence int
		var reasoning, mistake, approach sql.NullString

		if err := rows.Scan(&f.ID, &f.Text, &capturedAt, &metaJSON, &kind, &f.Confidence, &lowConfidence,
			&f.Subject, &f.ContentType, &reasoning, &conceptsJSON, &mistake, &approach, &classifiedAt); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}

		if err := hydrateFragment(&f, kind, metaJSON, conceptsJSON, lowConfidence,
			reasoning, mistake, approach, capturedAt, classifiedAt); err != nil {
			return nil, err
		}

		fragments = append(fragments, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}

	return fragments, nil
}

// hydrateFragment fills the decoded columns into the fragment.
func hydrateFragment(
	f *domain.ClassifiedFragment,
	kind, metaJSON, conceptsJSON string,
	lowConfidence int,
	reasoning, mistake, approach sql.NullString,
	capturedAt, classifiedAt sql.NullTime,
) error {
	f.Kind = domain.ParseKind(kind)
	f.LowConfidence = lowConfidence != 0
	f.Reasoning = reasoning.String
	f.MistakeExplanation = mistake.String
	f.CorrectApproach = approach.String
	f.Source.ImageID = f.ID
	if capturedAt.Valid {
		f.Source.CapturedAt = capturedAt.Time
	}
	if classifiedAt.Valid {
		f.ClassifiedAt = classifiedAt.Time
	}

	if metaJSON != "" && metaJSON != "null" {
		if err := json.Unmarshal([]byte(metaJSON), &f.Meta); err != nil {
			return fmt.Errorf("unmarshaling meta: %w", err)
		}
	}
	if conceptsJSON != "" && conceptsJSON != "null" {
		if err := json.Unmarshal([]byte(conceptsJSON), &f.KeyConcepts); err != nil {
			return fmt.Errorf("unmarshaling key concepts: %w", err)
		}
	}

	return nil
}
