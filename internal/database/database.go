// Package database is the SQLite artifact ledger: one record per artifact
// written by a pipeline and one per batch run.
package database

import (
	"database/sql"

	"github.com/mieubrisse/stacktrace"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to the handoff ledger.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the SQLite database at the given filepath
// and runs auto-migration.
func Open(dbFilepath string) (*DB, error) {
	dsn := dbFilepath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to open database at '%s'", dbFilepath)
	}

	// SQLite only supports a single writer, so limit the pool to one connection
	// to avoid unnecessary contention between connections in the same process.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, stacktrace.Propagate(err, "failed to auto-migrate database at '%s'", dbFilepath)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetMeta returns a value from the meta table, or "" when the key is unset.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", stacktrace.Propagate(err, "failed to read meta key '%s'", key)
	}
	return value, nil
}

// SetMeta stores a value in the meta table.
func (db *DB) SetMeta(key string, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return stacktrace.Propagate(err, "failed to write meta key '%s'", key)
	}
	return nil
}
