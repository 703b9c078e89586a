package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckCompactDirHoldsOnlyArtifacts(t *testing.T) {
	t.Run("missing directory passes", func(t *testing.T) {
		result := checkCompactDirHoldsOnlyArtifacts(filepath.Join(t.TempDir(), "missing"))
		if !result.passed {
			t.Errorf("expected pass, got %q", result.message)
		}
	})

	t.Run("only artifacts passes", func(t *testing.T) {
		dirpath := t.TempDir()
		writeTestFile(t, filepath.Join(dirpath, "notes_COMPACT.md"))
		writeTestFile(t, filepath.Join(dirpath, "plan_COMPACT.md"))

		result := checkCompactDirHoldsOnlyArtifacts(dirpath)
		if !result.passed {
			t.Errorf("expected pass, got %q", result.message)
		}
	})

	t.Run("stray files fail", func(t *testing.T) {
		dirpath := t.TempDir()
		writeTestFile(t, filepath.Join(dirpath, "notes_COMPACT.md"))
		writeTestFile(t, filepath.Join(dirpath, "notes.md"))
		if err := os.Mkdir(filepath.Join(dirpath, "nested"), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}

		result := checkCompactDirHoldsOnlyArtifacts(dirpath)
		if result.passed {
			t.Fatal("expected failure for stray files")
		}
		if !strings.Contains(result.message, "nested, notes.md") {
			t.Errorf("expected stray names in message, got %q", result.message)
		}
	})
}

func TestCheckLedgerVersion(t *testing.T) {
	tests := []struct {
		name          string
		ledgerVersion string
		cliVersion    string
		wantPassed    bool
	}{
		{"no ledger yet", "", "v1.0.0", true},
		{"same version", "v1.0.0", "v1.0.0", true},
		{"older ledger", "v0.9.0", "v1.0.0", true},
		{"newer ledger", "v1.2.0", "v1.0.0", false},
		{"non-semver mismatch", "dev", "v1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkLedgerVersion(tt.ledgerVersion, tt.cliVersion)
			if result.passed != tt.wantPassed {
				t.Errorf("checkLedgerVersion(%q, %q) passed = %v, want %v (%s)",
					tt.ledgerVersion, tt.cliVersion, result.passed, tt.wantPassed, result.message)
			}
		})
	}
}

func TestCheckConfigValid(t *testing.T) {
	if result := checkConfigValid(nil); !result.passed {
		t.Errorf("expected pass for nil error")
	}
	if result := checkConfigValid(os.ErrInvalid); result.passed || result.message == "" {
		t.Errorf("expected failure with message, got %+v", result)
	}
}

func writeTestFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
