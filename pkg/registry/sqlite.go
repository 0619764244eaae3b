package registry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the registry in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("registry: failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("registry: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS known_vaults (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL UNIQUE,
			key_file TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: failed to create known_vaults table: %w", err)
	}
	if err := os.Chmod(path, FileMode); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: failed to set permissions: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads the locations in stored order.
func (s *SQLiteStore) Load() ([]Location, error) {
	rows, err := s.db.Query("SELECT id, name, path, key_file FROM known_vaults ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("registry: failed to query known_vaults: %w", err)
	}
	defer rows.Close()

	var locs []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Path, &l.KeyFile); err != nil {
			return nil, fmt.Errorf("registry: failed to scan row: %w", err)
		}
		locs = append(locs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: failed to read rows: %w", err)
	}
	return locs, nil
}

// Save replaces every row in one transaction.
func (s *SQLiteStore) Save(locations []Location) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("registry: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM known_vaults"); err != nil {
		return fmt.Errorf("registry: failed to clear known_vaults: %w", err)
	}
	for i, l := range locations {
		_, err := tx.Exec("INSERT INTO known_vaults (id, name, path, key_file, position) VALUES (?, ?, ?, ?, ?)",
			l.ID, l.Name, l.Path, l.KeyFile, i)
		if err != nil {
			return fmt.Errorf("registry: failed to insert %s: %w", l.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("registry: failed to commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
