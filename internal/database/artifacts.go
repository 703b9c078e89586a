package database

import (
	"database/sql"
	"time"

	"github.com/mieubrisse/stacktrace"
)

// Direction says which pipeline produced an artifact.
type Direction string

const (
	DirectionCompress   Direction = "compress"
	DirectionDecompress Direction = "decompress"
)

// Artifact represents a row in the artifacts table.
type Artifact struct {
	ArtifactPath    string
	SourcePath      string
	Direction       Direction
	SourceHash      string
	ArtifactHash    string
	RuleFingerprint string
	Aggressive      bool
	ToolVersion     string
	UpdatedAt       time.Time
}

const artifactColumns = "artifact_path, source_path, direction, source_hash, artifact_hash, rule_fingerprint, aggressive, tool_version, updated_at"

// UpsertArtifact records the artifact, replacing any previous record for the
// same artifact path.
func (db *DB) UpsertArtifact(a *Artifact) error {
	updatedAt := a.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(
		`INSERT INTO artifacts (`+artifactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(artifact_path) DO UPDATE SET
			source_path = excluded.source_path,
			direction = excluded.direction,
			source_hash = excluded.source_hash,
			artifact_hash = excluded.artifact_hash,
			rule_fingerprint = excluded.rule_fingerprint,
			aggressive = excluded.aggressive,
			tool_version = excluded.tool_version,
			updated_at = excluded.updated_at`,
		a.ArtifactPath, a.SourcePath, string(a.Direction), a.SourceHash, a.ArtifactHash,
		a.RuleFingerprint, a.Aggressive, a.ToolVersion, updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return stacktrace.Propagate(err, "failed to upsert artifact '%s'", a.ArtifactPath)
	}
	return nil
}

// GetArtifact returns the record for an artifact path, or nil if none exists.
func (db *DB) GetArtifact(artifactPath string) (*Artifact, error) {
	row := db.conn.QueryRow("SELECT "+artifactColumns+" FROM artifacts WHERE artifact_path = ?", artifactPath)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to get artifact '%s'", artifactPath)
	}
	return a, nil
}

// ListArtifacts returns every record for one direction, ordered by path.
func (db *DB) ListArtifacts(direction Direction) ([]*Artifact, error) {
	rows, err := db.conn.Query(
		"SELECT "+artifactColumns+" FROM artifacts WHERE direction = ? ORDER BY artifact_path",
		string(direction),
	)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to query artifacts")
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

// DeleteArtifact removes the record for an artifact path.
func (db *DB) DeleteArtifact(artifactPath string) error {
	if _, err := db.conn.Exec("DELETE FROM artifacts WHERE artifact_path = ?", artifactPath); err != nil {
		return stacktrace.Propagate(err, "failed to delete artifact '%s'", artifactPath)
	}
	return nil
}

// Snapshot is a read-only copy of the artifact records, safe to share
// between workers while the collector writes new records to the ledger.
type Snapshot struct {
	byPath map[string]Artifact
}

// Snapshot copies every artifact record into memory.
func (db *DB) Snapshot() (*Snapshot, error) {
	rows, err := db.conn.Query("SELECT " + artifactColumns + " FROM artifacts")
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to query artifacts")
	}
	defer rows.Close()

	artifacts, err := scanArtifacts(rows)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(artifacts), nil
}

// NewSnapshot builds a snapshot from records already in memory.
func NewSnapshot(artifacts []*Artifact) *Snapshot {
	s := &Snapshot{byPath: make(map[string]Artifact, len(artifacts))}
	for _, a := range artifacts {
		s.byPath[a.ArtifactPath] = *a
	}
	return s
}

// Lookup returns the record for an artifact path.
func (s *Snapshot) Lookup(artifactPath string) (Artifact, bool) {
	if s == nil {
		return Artifact{}, false
	}
	a, ok := s.byPath[artifactPath]
	return a, ok
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byPath)
}
