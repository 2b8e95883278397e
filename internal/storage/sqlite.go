package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite implements Provider on a single-table SQLite database, one row
// per record-set. Suited to deployments where a directory of JSON files
// is inconvenient (single-file backups, network shares).
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the record-set database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS record_sets (
		kind    TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Get reads a record-set payload. A missing row yields nil, nil.
func (s *SQLite) Get(kind Kind) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM record_sets WHERE kind = ?`, string(kind)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", kind, err)
	}
	return payload, nil
}

// Save upserts a record-set payload. The write is durable once the
// statement returns (WAL with synchronous default).
func (s *SQLite) Save(kind Kind, payload []byte) error {
	_, err := s.db.Exec(`INSERT INTO record_sets (kind, payload) VALUES (?, ?)
		ON CONFLICT(kind) DO UPDATE SET payload = excluded.payload`, string(kind), payload)
	if err != nil {
		return fmt.Errorf("storage: save %s: %w", kind, err)
	}
	return nil
}
