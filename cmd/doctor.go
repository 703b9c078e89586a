package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/mieubrisse/stacktrace"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/odyssey/handoff/internal/config"
	"github.com/odyssey/handoff/internal/version"
)

var doctorCmd = &cobra.Command{
	Use:   doctorCmdStr,
	Short: "Check for common configuration issues",
	Long: `Check the project for common configuration issues.

Exits non-zero when any check fails, so it can run from a pre-commit hook to
keep non-artifacts out of the compact directory.
`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// checkResult represents the outcome of a single doctor check.
type checkResult struct {
	name    string
	passed  bool
	message string // shown when the check does not pass
}

func runDoctor(cmd *cobra.Command, args []string) error {
	checks := []checkResult{}

	cfg, _, cfgErr := config.ReadHandoffConfig(projectDirpath)
	checks = append(checks, checkConfigValid(cfgErr))
	if cfg != nil {
		compactDirpath := config.ResolveDirpath(projectDirpath, cfg.GetCompactDir())
		checks = append(checks, checkCompactDirHoldsOnlyArtifacts(compactDirpath))
	}

	ledgerVersion, err := readLedgerVersion()
	if err != nil {
		checks = append(checks, checkResult{
			name:    "ledger readable",
			message: fmt.Sprintf("could not read %s: %v", displayPath(config.GetLedgerFilepath(projectDirpath)), err),
		})
	} else {
		checks = append(checks, checkLedgerVersion(ledgerVersion, version.Version))
	}

	failed := 0
	for _, check := range checks {
		if check.passed {
			fmt.Printf("  %s  %s\n", colorize(ansiGreen, "OK"), check.name)
		} else {
			failed++
			fmt.Printf("  %s  %s\n", colorize(ansiYellow, "--"), check.name)
			fmt.Printf("      %s\n", check.message)
		}
	}

	if failed > 0 {
		return stacktrace.NewError("%d of %d checks failed", failed, len(checks))
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

// checkConfigValid covers parsing, the rule table and the directory layout,
// which ReadHandoffConfig validates together.
func checkConfigValid(cfgErr error) checkResult {
	name := "config and rule table valid"
	if cfgErr != nil {
		return checkResult{name: name, message: cfgErr.Error()}
	}
	return checkResult{name: name, passed: true}
}

// checkCompactDirHoldsOnlyArtifacts verifies that every file in the compact
// directory is a compact artifact. A missing directory passes.
func checkCompactDirHoldsOnlyArtifacts(compactDirpath string) checkResult {
	name := "compact directory holds only artifacts"

	entries, err := os.ReadDir(compactDirpath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{name: name, passed: true}
		}
		return checkResult{name: name, message: fmt.Sprintf("could not read %s: %v", displayPath(compactDirpath), err)}
	}

	var strays []string
	for _, entry := range entries {
		if entry.IsDir() || !config.IsCompactFilename(entry.Name()) {
			strays = append(strays, entry.Name())
		}
	}
	if len(strays) == 0 {
		return checkResult{name: name, passed: true}
	}
	return checkResult{
		name: name,
		message: fmt.Sprintf("%s contains files that are not *%s artifacts: %s",
			displayPath(compactDirpath), config.CompactSuffix, strings.Join(strays, ", ")),
	}
}

// checkLedgerVersion fails when the ledger was last written by a newer
// handoff, whose artifacts this binary would keep instead of regenerating.
func checkLedgerVersion(ledgerVersion string, cliVersion string) checkResult {
	name := "ledger version compatible"

	if ledgerVersion == "" || ledgerVersion == cliVersion {
		return checkResult{name: name, passed: true}
	}

	if semver.IsValid(ledgerVersion) && semver.IsValid(cliVersion) {
		if semver.Compare(ledgerVersion, cliVersion) > 0 {
			return checkResult{
				name:    name,
				message: fmt.Sprintf("ledger was written by %s %s but this is %s; upgrade handoff", handoffCmdStr, ledgerVersion, cliVersion),
			}
		}
		return checkResult{name: name, passed: true}
	}

	return checkResult{
		name: name,
		message: fmt.Sprintf("ledger version (%s) does not match CLI version (%s); run '%s %s --%s' to rebuild artifacts",
			ledgerVersion, cliVersion, handoffCmdStr, compressCmdStr, forceFlagName),
	}
}

// readLedgerVersion returns "" when no ledger exists yet.
func readLedgerVersion() (string, error) {
	if _, err := os.Stat(config.GetLedgerFilepath(projectDirpath)); os.IsNotExist(err) {
		return "", nil
	}

	db, err := openLedger()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetMeta(toolVersionMetaKey)
}
