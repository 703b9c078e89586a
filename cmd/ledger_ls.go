package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mieubrisse/stacktrace"
	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/database"
	"github.com/odyssey/handoff/internal/tableprinter"
)

const defaultLedgerLsLimit = 20

var ledgerLsLimitFlag int

var ledgerLsCmd = &cobra.Command{
	Use:   lsCmdStr,
	Short: "List recent compress and decompress runs",
	Args:  cobra.NoArgs,
	RunE:  runLedgerLs,
}

func init() {
	ledgerLsCmd.Flags().IntVar(&ledgerLsLimitFlag, limitFlagName, defaultLedgerLsLimit, "maximum number of runs to show (0 for all)")
	ledgerCmd.AddCommand(ledgerLsCmd)
}

func runLedgerLs(cmd *cobra.Command, args []string) error {
	db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ledgerLsLimitFlag)
	if err != nil {
		return stacktrace.Propagate(err, "failed to list runs")
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	tbl := tableprinter.NewTable("STARTED", "ID", "COMMAND", "VERSION", "DURATION", "OK", "FAILED", "UNCHANGED")
	for _, r := range runs {
		tbl.AddRow(
			humanize.Time(r.StartedAt),
			database.ShortID(r.ID),
			r.Command,
			r.ToolVersion,
			formatRunDuration(r),
			strconv.Itoa(r.Succeeded),
			formatFailedCount(r.Failed),
			strconv.Itoa(r.Skipped),
		)
	}
	tbl.Print()
	return nil
}

// formatRunDuration returns "--" for a run that never finished, e.g. one
// interrupted by a crash.
func formatRunDuration(r *database.Run) string {
	if r.FinishedAt == nil {
		return colorize(ansiDarkGray, "--")
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}

func formatFailedCount(failed int) string {
	if failed == 0 {
		return "0"
	}
	return colorize(ansiRed, strconv.Itoa(failed))
}
