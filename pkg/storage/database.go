// Package storage persists the profile and friend list of a bridge in
// SQLite so they survive restarts.
package storage

import (
	"database/sql"

	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// DB is the profile database. It implements registry.Persister.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database at path. Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// one connection keeps ":memory:" databases alive and writes ordered
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	pdb := &DB{db: db}
	if err := pdb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return pdb, nil
}

func (db *DB) initSchema() error {
	schema := `
	-- Own profile, a single row
	CREATE TABLE IF NOT EXISTS profile (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		status_message TEXT NOT NULL,
		nospam INTEGER NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Friends table
	CREATE TABLE IF NOT EXISTS friends (
		public_key BLOB PRIMARY KEY,
		number INTEGER UNIQUE NOT NULL,
		nospam INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		status_message TEXT NOT NULL,
		last_online INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_friends_number ON friends(number);
	`

	if _, err := db.db.Exec(schema); err != nil {
		return errors.Wrap(err, "failed to create schema")
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.db.Close()
}
