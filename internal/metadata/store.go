// Package metadata tracks ingested source documents in a SQLite ledger so
// re-ingestion can skip files whose content has not changed.
package metadata

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store handles queries to the SQLite ingestion ledger
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed initializes) the ledger database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates the ledger table if it doesn't exist
func (s *Store) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS ingested_documents (
			source_path TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			chunk_count INTEGER NOT NULL,
			ingested_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`

	_, err := s.db.Exec(query)
	return err
}

// Entry represents one ingested source document
type Entry struct {
	SourcePath  string    `json:"source_path"`
	ContentHash string    `json:"content_hash"`
	ChunkCount  int       `json:"chunk_count"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Record upserts the ledger row for a source document
func (s *Store) Record(entry Entry) error {
	query := `
		INSERT OR REPLACE INTO ingested_documents (source_path, content_hash, chunk_count)
		VALUES (?, ?, ?)
	`

	_, err := s.db.Exec(query, entry.SourcePath, entry.ContentHash, entry.ChunkCount)
	if err != nil {
		return fmt.Errorf("failed to record ingested document: %w", err)
	}

	return nil
}

// IsIngested reports whether a source file with this exact content hash has
// already been ingested
func (s *Store) IsIngested(sourcePath, contentHash string) (bool, error) {
	query := "SELECT content_hash FROM ingested_documents WHERE source_path = ?"

	var storedHash string
	err := s.db.QueryRow(query, sourcePath).Scan(&storedHash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}

	return storedHash == contentHash, nil
}

// List returns all ledger entries ordered by source path
func (s *Store) List() ([]Entry, error) {
	query := `
		SELECT source_path, content_hash, chunk_count, ingested_at
		FROM ingested_documents ORDER BY source_path
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.SourcePath, &entry.ContentHash, &entry.ChunkCount, &entry.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}

// Reset deletes all ledger entries; used together with a collection rebuild
func (s *Store) Reset() error {
	if _, err := s.db.Exec("DELETE FROM ingested_documents"); err != nil {
		return fmt.Errorf("failed to reset ledger: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection is alive
func (s *Store) HealthCheck() error {
	return s.db.Ping()
}
