package offline

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists queued operations across process restarts.
type Store interface {
	// Append writes the operation durably. It must not return until the
	// operation would survive a crash.
	Append(op Operation) error
	// Remove deletes one operation by id. Removing an id that is not
	// present is not an error.
	Remove(id string) error
	// List returns all stored operations in enqueue order.
	List() ([]Operation, error)
	// Clear removes everything.
	Clear() error
	Close() error
}

// SQLiteStore keeps the queue in a local sqlite file. The integer primary
// key preserves enqueue order across restarts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening queue db: %w", err)
	}
	// Single writer; the sqlite driver serializes anyway but one connection
	// keeps WAL checkpointing predictable.
	db.SetMaxOpenConns(1)

	stmts := []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA synchronous = FULL`,
		`CREATE TABLE IF NOT EXISTS operations (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			kind       TEXT NOT NULL,
			payload    BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing queue db: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(op Operation) error {
	_, err := s.db.Exec(
		`INSERT INTO operations (id, kind, payload, created_at) VALUES (?, ?, ?, ?)`,
		op.ID, op.Kind, []byte(op.Payload), op.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("appending operation %s: %w", op.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(id string) error {
	_, err := s.db.Exec(`DELETE FROM operations WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) List() ([]Operation, error) {
	rows, err := s.db.Query(`SELECT id, kind, payload, created_at FROM operations ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var (
			op Operation
			ms int64
		)
		if err := rows.Scan(&op.ID, &op.Kind, (*[]byte)(&op.Payload), &ms); err != nil {
			return nil, err
		}
		op.CreatedAt = time.UnixMilli(ms)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM operations`)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
