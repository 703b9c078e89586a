package database

import (
	"database/sql"

	"github.com/mieubrisse/stacktrace"
)

// SQL migration statements
const (
	createArtifactsTableSQL = `CREATE TABLE IF NOT EXISTS artifacts (
	artifact_path TEXT PRIMARY KEY,
	source_path TEXT NOT NULL,
	direction TEXT NOT NULL,
	source_hash TEXT NOT NULL,
	artifact_hash TEXT NOT NULL,
	rule_fingerprint TEXT NOT NULL,
	aggressive INTEGER NOT NULL DEFAULT 0,
	tool_version TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);`
	createArtifactsSourceIndexSQL = `CREATE INDEX IF NOT EXISTS idx_artifacts_source_path ON artifacts(source_path);`
	createRunsTableSQL            = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0
);`
	createMetaTableSQL = `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`
	addRunToolVersionColumnSQL = `ALTER TABLE runs ADD COLUMN tool_version TEXT NOT NULL DEFAULT '';`
)

func migrate(conn *sql.DB) error {
	statements := []string{
		createArtifactsTableSQL,
		createArtifactsSourceIndexSQL,
		createRunsTableSQL,
		createMetaTableSQL,
	}
	for _, stmt := range statements {
		if _, err := conn.Exec(stmt); err != nil {
			return stacktrace.Propagate(err, "failed to execute migration")
		}
	}

	if err := migrateAddRunToolVersion(conn); err != nil {
		return stacktrace.Propagate(err, "failed to add runs.tool_version column")
	}
	return nil
}

// getColumnNames returns a set of column names present in a table.
func getColumnNames(conn *sql.DB, table string) (map[string]bool, error) {
	rows, err := conn.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to read %s table info", table)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, stacktrace.Propagate(err, "failed to scan table_info row")
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, stacktrace.Propagate(err, "error iterating table_info rows")
	}
	return columns, nil
}

// migrateAddRunToolVersion idempotently adds the tool_version column, which
// ledgers created before runs recorded the binary version lack.
func migrateAddRunToolVersion(conn *sql.DB) error {
	columns, err := getColumnNames(conn, "runs")
	if err != nil {
		return err
	}

	if columns["tool_version"] {
		return nil
	}

	_, err = conn.Exec(addRunToolVersionColumnSQL)
	return err
}
