package config

import (
	"os"

	"github.com/mieubrisse/stacktrace"
)

// IsFirstRun returns true if the project has no .handoff state directory yet.
func IsFirstRun(projectDirpath string) (bool, error) {
	stateDirpath := GetStateDirpath(projectDirpath)
	_, err := os.Stat(stateDirpath)
	if err == nil {
		return false, nil
	}
	if os.IsNotExist(err) {
		return true, nil
	}
	return false, stacktrace.Propagate(err, "failed to stat state directory '%s'", stateDirpath)
}
