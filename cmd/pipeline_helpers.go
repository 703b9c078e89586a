package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mieubrisse/stacktrace"

	"github.com/odyssey/handoff/internal/batch"
	"github.com/odyssey/handoff/internal/config"
	"github.com/odyssey/handoff/internal/database"
	"github.com/odyssey/handoff/internal/tableprinter"
	"github.com/odyssey/handoff/internal/version"
)

// toolVersionMetaKey records the last tool version that wrote to the ledger.
const toolVersionMetaKey = "tool_version"

// pipelineParams describes one batch invocation.
type pipelineParams struct {
	command    string
	direction  database.Direction
	jobs       []batch.Job
	silent     bool
	force      bool
	statsOnly  bool
	aggressive bool
}

// loadConfig reads and validates the project config.
func loadConfig() (*config.HandoffConfig, error) {
	cfg, _, err := config.ReadHandoffConfig(projectDirpath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func openLedger() (*database.DB, error) {
	ledgerFilepath := config.GetLedgerFilepath(projectDirpath)
	db, err := database.Open(ledgerFilepath)
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to open ledger '%s'", ledgerFilepath)
	}
	return db, nil
}

func newLogger(silent bool) *slog.Logger {
	if silent {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// newSignalContext returns a context cancelled on SIGINT or SIGTERM.
func newSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// runPipeline runs one batch, records it in the ledger and prints the
// summary. The returned error is non-nil when any document failed, even
// under --silent.
func runPipeline(ctx context.Context, cfg *config.HandoffConfig, params pipelineParams) (*batch.Summary, error) {
	table, err := cfg.BuildRuleTable()
	if err != nil {
		return nil, err
	}
	settings := cfg.EngineSettings()
	if params.aggressive {
		settings.Aggressive = true
	}

	var ledger batch.Ledger
	var db *database.DB
	var run *database.Run
	if !params.statsOnly {
		db, err = openLedger()
		if err != nil {
			return nil, err
		}
		defer db.Close()
		ledger = db

		run, err = db.CreateRun(params.command, version.Version)
		if err != nil {
			return nil, stacktrace.Propagate(err, "failed to record run in ledger")
		}
	}

	driver := batch.NewDriver(table, settings, ledger, batch.Options{
		Direction:      params.direction,
		Workers:        cfg.GetWorkers(),
		Force:          params.force,
		StatsOnly:      params.statsOnly,
		ToolVersion:    version.Version,
		ProjectDirpath: projectDirpath,
		Logger:         newLogger(params.silent),
	})

	summary, runErr := driver.Run(ctx, params.jobs)
	if summary == nil {
		return nil, stacktrace.Propagate(runErr, "failed to start %s run", params.command)
	}

	if run != nil {
		if err := db.FinishRun(run.ID, summary.Succeeded, summary.Failed, summary.Skipped); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to finish run %s in ledger: %v\n", database.ShortID(run.ID), err)
		}
		if err := db.SetMeta(toolVersionMetaKey, version.Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record tool version in ledger: %v\n", err)
		}
	}

	if !params.silent {
		if params.statsOnly {
			printStatsTable(summary)
		} else {
			printSummaryTable(summary)
		}
	}

	if runErr != nil {
		return summary, stacktrace.Propagate(runErr, "%d documents were not started", summary.NotStarted)
	}
	if err := summary.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func printSummaryTable(summary *batch.Summary) {
	if len(summary.Results) == 0 {
		fmt.Println("No documents found.")
		return
	}

	pathWidth := tableprinter.TerminalWidth() / 2
	tbl := tableprinter.NewTable("DOCUMENT", "STATUS", "REDUCTION", "ARTIFACT")
	for _, res := range summary.Results {
		status, reduction := colorize(ansiGreen, "written"), formatReduction(res)
		switch {
		case res.Err != nil:
			status, reduction = colorize(ansiRed, "failed"), "--"
		case res.Skipped:
			status, reduction = colorize(ansiDarkGray, "unchanged"), "--"
		case res.HandEdited:
			status = colorize(ansiYellow, "overwritten")
		}
		tbl.AddRow(
			tableprinter.Truncate(displayPath(res.Job.SourcePath), pathWidth),
			status,
			reduction,
			tableprinter.Truncate(displayPath(res.Job.ArtifactPath), pathWidth),
		)
	}
	tbl.Print()

	printFailures(summary)
	printCounts(summary)
}

func printStatsTable(summary *batch.Summary) {
	if len(summary.Results) == 0 {
		fmt.Println("No documents found.")
		return
	}

	var totalIn, totalOut int
	tbl := tableprinter.NewTable("DOCUMENT", "INPUT", "OUTPUT", "REDUCTION")
	for _, res := range summary.Results {
		if res.Err != nil {
			tbl.AddRow(displayPath(res.Job.SourcePath), "--", "--", colorize(ansiRed, "failed"))
			continue
		}
		totalIn += res.Stats.InputRunes
		totalOut += res.Stats.OutputRunes
		tbl.AddRow(
			displayPath(res.Job.SourcePath),
			humanize.Comma(int64(res.Stats.InputRunes)),
			humanize.Comma(int64(res.Stats.OutputRunes)),
			formatReduction(res),
		)
	}
	tbl.Print()

	if totalIn > 0 {
		fmt.Printf("\nTotal: %s → %s runes (%.1f%% smaller)\n",
			humanize.Comma(int64(totalIn)), humanize.Comma(int64(totalOut)),
			(1-float64(totalOut)/float64(totalIn))*100)
	}
	printFailures(summary)
}

func printFailures(summary *batch.Summary) {
	if len(summary.Failures) == 0 {
		return
	}
	fmt.Println()
	for _, f := range summary.Failures {
		fmt.Printf("%s %s (%s, %s): %v\n",
			colorize(ansiRed, "FAILED"), displayPath(f.SourcePath), f.Kind, f.Stage, f.Err)
	}
}

func printCounts(summary *batch.Summary) {
	fmt.Printf("\n%d succeeded, %d failed, %d unchanged", summary.Succeeded, summary.Failed, summary.Skipped)
	if summary.NotStarted > 0 {
		fmt.Printf(", %d not started", summary.NotStarted)
	}
	fmt.Println()
}

func formatReduction(res batch.DocumentResult) string {
	return fmt.Sprintf("%.1f%%", res.Stats.Reduction())
}

// displayPath shows paths relative to the project root when possible.
func displayPath(path string) string {
	rel, err := filepath.Rel(projectDirpath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// resolveFlagPath makes a command-line path absolute against the working
// directory, unlike config paths which are relative to the project root.
func resolveFlagPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", stacktrace.Propagate(err, "failed to resolve path '%s'", path)
	}
	return abs, nil
}
