package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mieubrisse/stacktrace"
)

const (
	projectDirpathEnvVar = "HANDOFF_PROJECT_DIRPATH"

	StateDirname   = ".handoff"
	ConfigFilename = "config.yml"
	LedgerFilename = "ledger.sqlite"

	DefaultSourceDirname  = "docs"
	DefaultCompactDirname = ".compressed"
	DefaultHumanDirname   = ".human/docs"

	// CompactSuffix is appended to a source document's base name to form
	// its compact artifact name.
	CompactSuffix = "_COMPACT.md"
	MarkdownExt   = ".md"
)

// GetProjectDirpath returns the project root, reading from the
// HANDOFF_PROJECT_DIRPATH environment variable or defaulting to the working
// directory.
func GetProjectDirpath() (string, error) {
	if envVal := os.Getenv(projectDirpathEnvVar); envVal != "" {
		return envVal, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", stacktrace.Propagate(err, "failed to determine working directory")
	}
	return wd, nil
}

// EnsureDirStructure creates the .handoff state directory and seeds
// config.yml if they don't already exist.
func EnsureDirStructure(projectDirpath string) error {
	stateDirpath := GetStateDirpath(projectDirpath)
	if err := os.MkdirAll(stateDirpath, 0755); err != nil {
		return stacktrace.Propagate(err, "failed to create directory '%s'", stateDirpath)
	}

	if err := EnsureConfigFile(projectDirpath); err != nil {
		return stacktrace.Propagate(err, "failed to seed config file")
	}

	return nil
}

// GetStateDirpath returns the path to the .handoff state directory.
func GetStateDirpath(projectDirpath string) string {
	return filepath.Join(projectDirpath, StateDirname)
}

// GetConfigFilepath returns the path to config.yml inside the state directory.
func GetConfigFilepath(projectDirpath string) string {
	return filepath.Join(GetStateDirpath(projectDirpath), ConfigFilename)
}

// GetLedgerFilepath returns the path to the SQLite artifact ledger.
func GetLedgerFilepath(projectDirpath string) string {
	return filepath.Join(GetStateDirpath(projectDirpath), LedgerFilename)
}

// ResolveDirpath joins a configured directory onto the project root unless
// it is already absolute.
func ResolveDirpath(projectDirpath string, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(projectDirpath, dir)
}

// GetCompactFilename returns the compact artifact name for a source
// document, e.g. "handoff.md" -> "handoff_COMPACT.md".
func GetCompactFilename(sourceFilename string) string {
	base := strings.TrimSuffix(filepath.Base(sourceFilename), filepath.Ext(sourceFilename))
	return base + CompactSuffix
}

// GetHumanFilename returns the human artifact name for a compact artifact,
// e.g. "handoff_COMPACT.md" -> "handoff.md".
func GetHumanFilename(compactFilename string) string {
	base := filepath.Base(compactFilename)
	if strings.HasSuffix(base, CompactSuffix) {
		return strings.TrimSuffix(base, CompactSuffix) + MarkdownExt
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + MarkdownExt
}

// IsCompactFilename reports whether a file name follows the compact
// artifact convention.
func IsCompactFilename(filename string) bool {
	return strings.HasSuffix(filepath.Base(filename), CompactSuffix)
}
