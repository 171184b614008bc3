// Package journal provides a SQLite-backed write-ahead intent log.
//
// Every label or undo records an intent before touching the ledger or the
// buckets and marks it done once both stores agree. Intents still pending
// at startup describe an operation interrupted between the two stores.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS intents (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT NOT NULL,
	op         TEXT NOT NULL,
	filename   TEXT NOT NULL,
	label      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	done_at    DATETIME
);

CREATE INDEX IF NOT EXISTS idx_intents_pending ON intents(done_at) WHERE done_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_intents_filename ON intents(filename, id);
`

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(dsn string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
