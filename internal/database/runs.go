package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mieubrisse/stacktrace"
)

// Run represents a row in the runs table.
type Run struct {
	ID          string
	Command     string
	ToolVersion string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Succeeded   int
	Failed      int
	Skipped     int
}

// ShortID returns the first 8 characters of a run UUID.
func ShortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

// CreateRun inserts a new, unfinished run and returns it.
func (db *DB) CreateRun(command string, toolVersion string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := db.conn.Exec(
		"INSERT INTO runs (id, command, tool_version, started_at) VALUES (?, ?, ?, ?)",
		id, command, toolVersion, now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to insert run")
	}

	return &Run{
		ID:          id,
		Command:     command,
		ToolVersion: toolVersion,
		StartedAt:   now,
	}, nil
}

// FinishRun stamps the finish time and final counts of a run.
func (db *DB) FinishRun(id string, succeeded int, failed int, skipped int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := db.conn.Exec(
		"UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?, skipped = ? WHERE id = ?",
		now, succeeded, failed, skipped, id,
	)
	if err != nil {
		return stacktrace.Propagate(err, "failed to finish run '%s'", id)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return stacktrace.NewError("run '%s' not found", id)
	}
	return nil
}

// GetRun returns a single run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow(
		"SELECT id, command, tool_version, started_at, finished_at, succeeded, failed, skipped FROM runs WHERE id = ?",
		id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, stacktrace.NewError("run '%s' not found", id)
	}
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to get run '%s'", id)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	query := "SELECT id, command, tool_version, started_at, finished_at, succeeded, failed, skipped FROM runs ORDER BY started_at DESC, rowid DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to query runs")
	}
	defer rows.Close()

	return scanRuns(rows)
}
