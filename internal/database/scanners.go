package database

import (
	"database/sql"
	"time"

	"github.com/mieubrisse/stacktrace"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifactFrom(s rowScanner) (*Artifact, error) {
	var a Artifact
	var direction, updatedAt string
	if err := s.Scan(&a.ArtifactPath, &a.SourcePath, &direction, &a.SourceHash, &a.ArtifactHash, &a.RuleFingerprint, &a.Aggressive, &a.ToolVersion, &updatedAt); err != nil {
		return nil, err
	}
	a.Direction = Direction(direction)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

// scanArtifact scans a single artifact row from a query result.
func scanArtifact(row *sql.Row) (*Artifact, error) {
	return scanArtifactFrom(row)
}

// scanArtifacts scans multiple artifact rows from a query result.
func scanArtifacts(rows *sql.Rows) ([]*Artifact, error) {
	var artifacts []*Artifact
	for rows.Next() {
		a, err := scanArtifactFrom(rows)
		if err != nil {
			return nil, stacktrace.Propagate(err, "failed to scan artifact row")
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, stacktrace.Propagate(err, "error iterating artifact rows")
	}
	return artifacts, nil
}

func scanRunFrom(s rowScanner) (*Run, error) {
	var r Run
	var startedAt string
	var finishedAt sql.NullString
	if err := s.Scan(&r.ID, &r.Command, &r.ToolVersion, &startedAt, &finishedAt, &r.Succeeded, &r.Failed, &r.Skipped); err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid {
		t, _ := time.Parse(time.RFC3339, finishedAt.String)
		r.FinishedAt = &t
	}
	return &r, nil
}

// scanRun scans a single run row from a query result.
func scanRun(row *sql.Row) (*Run, error) {
	return scanRunFrom(row)
}

// scanRuns scans multiple run rows from a query result.
func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		r, err := scanRunFrom(rows)
		if err != nil {
			return nil, stacktrace.Propagate(err, "failed to scan run row")
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, stacktrace.Propagate(err, "error iterating run rows")
	}
	return runs, nil
}
