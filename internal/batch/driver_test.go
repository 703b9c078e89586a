package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/odyssey/handoff/internal/database"
	"github.com/odyssey/handoff/internal/engine"
	"github.com/odyssey/handoff/internal/rules"
)

type testProject struct {
	dirpath    string
	sourceDir  string
	compactDir string
	humanDir   string
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()
	dirpath := t.TempDir()
	p := &testProject{
		dirpath:    dirpath,
		sourceDir:  filepath.Join(dirpath, "docs"),
		compactDir: filepath.Join(dirpath, ".compressed"),
		humanDir:   filepath.Join(dirpath, ".human", "docs"),
	}
	if err := os.MkdirAll(p.sourceDir, 0755); err != nil {
		t.Fatalf("failed to create source dir: %v", err)
	}
	return p
}

func (p *testProject) writeSource(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(p.sourceDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func openTestLedger(t *testing.T, p *testProject) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(p.dirpath, "ledger.sqlite"))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func compressJobs(t *testing.T, p *testProject) []Job {
	t.Helper()
	jobs, err := DiscoverCompressJobs(p.sourceDir, p.compactDir)
	if err != nil {
		t.Fatalf("DiscoverCompressJobs failed: %v", err)
	}
	return jobs
}

func TestRun_IsolatesMalformedDocument(t *testing.T) {
	p := newTestProject(t)
	for i := 0; i < 10; i++ {
		content := fmt.Sprintf("# Document %d\n\nThe configuration of the repository is documented here.\n", i)
		if i == 4 {
			content = "# Broken\n\n```go\nfunc main() {}\n"
		}
		p.writeSource(t, fmt.Sprintf("doc%02d.md", i), content)
	}

	// A stale artifact for the broken document must survive the failed run
	if err := os.MkdirAll(p.compactDir, 0755); err != nil {
		t.Fatalf("failed to create compact dir: %v", err)
	}
	staleFilepath := filepath.Join(p.compactDir, "doc04_COMPACT.md")
	if err := os.WriteFile(staleFilepath, []byte("previous artifact\n"), 0644); err != nil {
		t.Fatalf("failed to write stale artifact: %v", err)
	}

	driver := NewDriver(rules.Default(), engine.DefaultSettings(), nil, Options{Workers: 3})
	summary, err := driver.Run(context.Background(), compressJobs(t, p))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Succeeded != 9 || summary.Failed != 1 {
		t.Fatalf("expected 9 succeeded and 1 failed, got %d and %d", summary.Succeeded, summary.Failed)
	}
	var failedErr *FailedError
	if !errors.As(summary.Err(), &failedErr) {
		t.Fatalf("expected *FailedError, got %v", summary.Err())
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(summary.Failures))
	}
	failure := summary.Failures[0]
	if filepath.Base(failure.SourcePath) != "doc04.md" {
		t.Errorf("expected doc04.md to be named, got %s", failure.SourcePath)
	}
	if failure.Kind != FailureMalformed {
		t.Errorf("expected failure kind %q, got %q", FailureMalformed, failure.Kind)
	}

	entries, err := os.ReadDir(p.compactDir)
	if err != nil {
		t.Fatalf("failed to list compact dir: %v", err)
	}
	written := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".handoff-tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
		if entry.Name() != "doc04_COMPACT.md" {
			written++
		}
	}
	if written != 9 {
		t.Errorf("expected 9 new artifacts, got %d", written)
	}
	if got := readFile(t, staleFilepath); got != "previous artifact\n" {
		t.Errorf("expected stale artifact to be untouched, got %q", got)
	}
	if got := readFile(t, filepath.Join(p.compactDir, "doc00_COMPACT.md")); !strings.Contains(got, "config of repo") {
		t.Errorf("expected compressed prose, got %q", got)
	}
}

func TestRun_ReadFailureIsIOError(t *testing.T) {
	p := newTestProject(t)
	jobs := []Job{{
		SourcePath:   filepath.Join(p.sourceDir, "missing.md"),
		ArtifactPath: filepath.Join(p.compactDir, "missing_COMPACT.md"),
	}}

	driver := NewDriver(rules.Default(), engine.DefaultSettings(), nil, Options{})
	summary, err := driver.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected 1 failure, got %d", summary.Failed)
	}
	if summary.Failures[0].Kind != FailureIO {
		t.Errorf("expected failure kind %q, got %q", FailureIO, summary.Failures[0].Kind)
	}
	var ioErr *IOError
	if !errors.As(summary.Failures[0].Err, &ioErr) || ioErr.Op != "read" {
		t.Errorf("expected read IOError, got %v", summary.Failures[0].Err)
	}
}

func TestRun_UnchangedSkip(t *testing.T) {
	p := newTestProject(t)
	ledger := openTestLedger(t, p)
	p.writeSource(t, "a.md", "The function returns the configuration.\n")
	bPath := p.writeSource(t, "b.md", "The database connection is required.\n")

	run := func(t *testing.T, opts Options, table *rules.Table, settings engine.Settings) *Summary {
		t.Helper()
		opts.ProjectDirpath = p.dirpath
		if opts.ToolVersion == "" {
			opts.ToolVersion = "v1.0.0"
		}
		summary, err := NewDriver(table, settings, ledger, opts).Run(context.Background(), compressJobs(t, p))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return summary
	}
	expect := func(t *testing.T, summary *Summary, succeeded, skipped int) {
		t.Helper()
		if summary.Succeeded != succeeded || summary.Skipped != skipped || summary.Failed != 0 {
			t.Fatalf("expected %d succeeded and %d skipped, got %+v", succeeded, skipped, summary)
		}
	}

	table := rules.Default()
	settings := engine.DefaultSettings()

	expect(t, run(t, Options{}, table, settings), 2, 0)
	expect(t, run(t, Options{}, table, settings), 0, 2)

	rec, err := ledger.GetArtifact(".compressed/a_COMPACT.md")
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if rec == nil || rec.SourcePath != "docs/a.md" || rec.ToolVersion != "v1.0.0" {
		t.Fatalf("unexpected ledger record %+v", rec)
	}

	t.Run("changed source is reprocessed", func(t *testing.T) {
		if err := os.WriteFile(bPath, []byte("The database connection is optional.\n"), 0644); err != nil {
			t.Fatalf("failed to update source: %v", err)
		}
		expect(t, run(t, Options{}, table, settings), 1, 1)
	})

	t.Run("force disables skipping", func(t *testing.T) {
		expect(t, run(t, Options{Force: true}, table, settings), 2, 0)
	})

	t.Run("aggressive flag change is reprocessed", func(t *testing.T) {
		aggressive := settings
		aggressive.Aggressive = true
		expect(t, run(t, Options{}, table, aggressive), 2, 0)
		expect(t, run(t, Options{}, table, settings), 2, 0)
	})

	t.Run("rule table change is reprocessed", func(t *testing.T) {
		opts := rules.DefaultOptions()
		opts.Dictionary["kubernetes"] = "k8s"
		custom, err := rules.NewTable(opts)
		if err != nil {
			t.Fatalf("NewTable failed: %v", err)
		}
		expect(t, run(t, Options{}, custom, settings), 2, 0)
		expect(t, run(t, Options{}, table, settings), 2, 0)
	})

	t.Run("older tool version is reprocessed", func(t *testing.T) {
		expect(t, run(t, Options{ToolVersion: "v1.1.0"}, table, settings), 2, 0)
		// Records written by a newer release are kept
		expect(t, run(t, Options{ToolVersion: "v1.0.5"}, table, settings), 0, 2)
	})

	t.Run("hand-edited artifact is overwritten", func(t *testing.T) {
		artifactFilepath := filepath.Join(p.compactDir, "a_COMPACT.md")
		if err := os.WriteFile(artifactFilepath, []byte("edited by hand\n"), 0644); err != nil {
			t.Fatalf("failed to edit artifact: %v", err)
		}
		summary := run(t, Options{ToolVersion: "v1.1.0"}, table, settings)
		expect(t, summary, 1, 1)

		var edited bool
		for _, res := range summary.Results {
			if filepath.Base(res.Job.SourcePath) == "a.md" {
				edited = res.HandEdited
			}
		}
		if !edited {
			t.Error("expected hand edit to be detected")
		}
		if got := readFile(t, artifactFilepath); got == "edited by hand\n" {
			t.Error("expected hand edit to be overwritten")
		}
	})

	t.Run("missing artifact is regenerated", func(t *testing.T) {
		if err := os.Remove(filepath.Join(p.compactDir, "b_COMPACT.md")); err != nil {
			t.Fatalf("failed to remove artifact: %v", err)
		}
		expect(t, run(t, Options{ToolVersion: "v1.1.0"}, table, settings), 1, 1)
	})
}

func TestRun_StatsOnlyWritesNothing(t *testing.T) {
	p := newTestProject(t)
	ledger := openTestLedger(t, p)
	p.writeSource(t, "a.md", "The configuration of the application.\n")

	driver := NewDriver(rules.Default(), engine.DefaultSettings(), ledger, Options{StatsOnly: true})
	summary, err := driver.Run(context.Background(), compressJobs(t, p))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("expected 1 succeeded, got %+v", summary)
	}
	if summary.Results[0].Stats.OutputRunes >= summary.Results[0].Stats.InputRunes {
		t.Errorf("expected output to be smaller, got %+v", summary.Results[0].Stats)
	}
	if _, err := os.Stat(p.compactDir); !os.IsNotExist(err) {
		t.Error("expected no compact dir to be created")
	}
	snap, err := ledger.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Len() != 0 {
		t.Errorf("expected no ledger records, got %d", snap.Len())
	}
}

func TestRun_Decompress(t *testing.T) {
	p := newTestProject(t)
	if err := os.MkdirAll(p.compactDir, 0755); err != nil {
		t.Fatalf("failed to create compact dir: %v", err)
	}
	files := map[string]string{
		"handoff_COMPACT.md": "# Handoff\n\nauth fn → token ∵ req is valid.\n",
		"dev_log_COMPACT.md": "- t: \"2024-03-01\"\n  changes: [added db conn]\n",
		"notes.md":           "not an artifact\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(p.compactDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	jobs, err := DiscoverDecompressJobs(p.compactDir, p.humanDir)
	if err != nil {
		t.Fatalf("DiscoverDecompressJobs failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	driver := NewDriver(rules.Default(), engine.DefaultSettings(), nil, Options{Direction: database.DirectionDecompress})
	summary, err := driver.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Succeeded != 2 {
		t.Fatalf("expected 2 succeeded, got %+v", summary)
	}

	human := readFile(t, filepath.Join(p.humanDir, "handoff.md"))
	if human != "# Handoff\n\nauthentication function returns token because request is valid.\n" {
		t.Errorf("unexpected human artifact %q", human)
	}
	devLog := readFile(t, filepath.Join(p.humanDir, "dev_log.md"))
	if !strings.Contains(devLog, "### What Changed\n- added database connection\n") {
		t.Errorf("expected rendered dev log, got %q", devLog)
	}
}

func TestRun_CancelledContextStopsDispatch(t *testing.T) {
	p := newTestProject(t)
	for i := 0; i < 5; i++ {
		p.writeSource(t, fmt.Sprintf("doc%d.md", i), "The configuration.\n")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := NewDriver(rules.Default(), engine.DefaultSettings(), nil, Options{Workers: 2}).Run(ctx, compressJobs(t, p))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.NotStarted != 5 || summary.Succeeded != 0 {
		t.Errorf("expected nothing to be dispatched, got %+v", summary)
	}
	if summary.Err() != nil {
		t.Errorf("expected no document failures, got %v", summary.Err())
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.md")

	if err := WriteFileAtomic(dest, []byte("first"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(dest, []byte("second"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if got := readFile(t, dest); got != "second" {
		t.Errorf("expected %q, got %q", "second", got)
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("expected permissions 0644, got %o", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the destination file, got %d entries", len(entries))
	}

	if err := WriteFileAtomic(filepath.Join(dir, "missing", "out.md"), []byte("x"), 0644); err == nil {
		t.Error("expected error when the destination directory does not exist")
	}
}

func TestDiscoverCompressJobs(t *testing.T) {
	p := newTestProject(t)
	p.writeSource(t, "b.md", "b")
	p.writeSource(t, "a.md", "a")
	p.writeSource(t, "old_COMPACT.md", "x")
	p.writeSource(t, "notes.txt", "x")
	if err := os.Mkdir(filepath.Join(p.sourceDir, "sub.md"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	jobs := compressJobs(t, p)
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].SourcePath != filepath.Join(p.sourceDir, "a.md") {
		t.Errorf("expected sorted jobs, got %s first", jobs[0].SourcePath)
	}
	if jobs[0].ArtifactPath != filepath.Join(p.compactDir, "a_COMPACT.md") {
		t.Errorf("unexpected artifact path %s", jobs[0].ArtifactPath)
	}

	if _, err := DiscoverCompressJobs(filepath.Join(p.dirpath, "nope"), p.compactDir); err == nil {
		t.Error("expected error for missing source dir")
	}
}
