// Package localstore is the SQLite-backed local record store: text and
// multimedia messages, call log entries, third-party chat rows, contacts and
// the sync_state key-value table.
package localstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection for the app-owned records database.
type DB struct {
	*sql.DB
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}

// ClearCaches releases transient memory held by the connection. The restore
// loop calls this periodically to bound memory on long runs.
func (db *DB) ClearCaches() {
	_, _ = db.Exec(`PRAGMA shrink_memory`)
}
