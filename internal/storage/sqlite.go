package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	// DBFileName is the single database file holding every document.
	DBFileName = "securevault.db"

	// FileMode and DirMode keep the store private to the owner.
	FileMode = 0600
	DirMode  = 0700

	// MinDiskSpaceBytes is the free-space floor required before a write.
	MinDiskSpaceBytes = 10 * 1024 * 1024

	// DiskWarningPercent triggers a stderr warning when exceeded.
	DiskWarningPercent = 90
)

// ErrInsufficientDisk indicates a write was refused for lack of disk space.
var ErrInsufficientDisk = errors.New("storage: insufficient disk space")

// SQLiteStore keeps each document as one row of a documents table.
type SQLiteStore struct {
	dir string
	db  *sql.DB
}

// OpenSQLite creates the store directory if needed and opens (or creates)
// the database inside it.
func OpenSQLite(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}

	// Single-connection mode avoids "database is locked" errors; this is a
	// single-writer store by contract.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: failed to create tables: %w", err)
	}

	if err := os.Chmod(dbPath, FileMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: failed to set database permissions: %w", err)
	}

	return &SQLiteStore{dir: dir, db: db}, nil
}

// Load decodes the named document into v. A missing row is ErrNotFound;
// an undecodable payload is reported so the caller can fall back to an
// empty document.
func (s *SQLiteStore) Load(name string, v any) error {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM documents WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("storage: failed to read document %q: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: failed to decode document %q: %w", name, err)
	}
	return nil
}

// Save encodes v and replaces the named document in one statement.
func (s *SQLiteStore) Save(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: failed to encode document %q: %w", name, err)
	}

	if err := s.checkDiskSpaceForWrite(len(data)); err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO documents (name, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, name, data)
	if err != nil {
		return fmt.Errorf("storage: failed to write document %q: %w", name, err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
