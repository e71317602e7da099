package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists blobs in a single key/value table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the
// blob table exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewSQLiteFromDB(db)
}

// NewSQLiteFromDB wraps an already-open database handle.
func NewSQLiteFromDB(db *sql.DB) (*SQLiteStore, error) {
	createBlobsTable := `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`

	if _, err := db.Exec(createBlobsTable); err != nil {
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get unmarshals the blob under key into v.
func (s *SQLiteStore) Get(key string, v interface{}) (bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM blobs WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read blob %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(value), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal blob %s: %w", key, err)
	}
	return true, nil
}

// Put marshals v and replaces the blob under key.
func (s *SQLiteStore) Put(key string, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal blob %s: %w", key, err)
	}

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO blobs (key, value) VALUES (?, ?)",
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
