// Package batch runs a pipeline over many documents on a bounded worker
// pool. Documents fail independently; one collector goroutine owns the
// summary and every ledger write.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/mod/semver"

	"github.com/odyssey/handoff/internal/database"
	"github.com/odyssey/handoff/internal/engine"
	"github.com/odyssey/handoff/internal/rules"
)

// Ledger is the subset of the artifact ledger the driver needs.
type Ledger interface {
	Snapshot() (*database.Snapshot, error)
	UpsertArtifact(a *database.Artifact) error
}

// Options configures a Driver.
type Options struct {
	Direction database.Direction
	Workers   int
	// Force disables unchanged-skip.
	Force bool
	// StatsOnly runs the pipeline without writing artifacts or ledger
	// records.
	StatsOnly   bool
	ToolVersion string
	// ProjectDirpath makes ledger paths relative to the project root.
	ProjectDirpath string
	Logger         *slog.Logger
}

// DocumentResult is the outcome of one document.
type DocumentResult struct {
	Job     Job
	Stats   engine.Stats
	Stages  []engine.Stage
	Skipped bool
	// HandEdited is set when the previous artifact no longer matched its
	// ledger record before being overwritten.
	HandEdited bool
	Err        error
}

// Summary aggregates a batch run.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	// NotStarted counts jobs never dispatched because the context was
	// cancelled.
	NotStarted int
	Failures   []Failure
	Results    []DocumentResult
}

// Total returns the number of jobs the run was given.
func (s *Summary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped + s.NotStarted
}

// Err returns a *FailedError when any document failed.
func (s *Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return &FailedError{Failed: s.Failed, Total: s.Total()}
}

// Driver runs one pipeline direction over a set of jobs.
type Driver struct {
	table        *rules.Table
	settings     engine.Settings
	compressor   *engine.Compressor
	decompressor *engine.Decompressor
	ledger       Ledger
	opts         Options
	logger       *slog.Logger
}

// NewDriver builds a driver. ledger may be nil, which disables
// unchanged-skip and record keeping.
func NewDriver(table *rules.Table, settings engine.Settings, ledger Ledger, opts Options) *Driver {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Direction == "" {
		opts.Direction = database.DirectionCompress
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{
		table:        table,
		settings:     settings,
		compressor:   engine.NewCompressor(table, settings),
		decompressor: engine.NewDecompressor(table, settings),
		ledger:       ledger,
		opts:         opts,
		logger:       logger,
	}
}

// outcome travels from a worker to the collector.
type outcome struct {
	result DocumentResult
	record *database.Artifact
	stage  engine.Stage
}

// Run processes jobs and returns the summary. Cancelling ctx stops dispatch;
// documents already handed to a worker finish. The returned error is
// non-nil only for problems that prevent the batch from starting or for
// cancellation; per-document failures are reported through Summary.Err.
func (d *Driver) Run(ctx context.Context, jobs []Job) (*Summary, error) {
	var snapshot *database.Snapshot
	if d.ledger != nil && !d.opts.Force && !d.opts.StatsOnly {
		snap, err := d.ledger.Snapshot()
		if err != nil {
			return nil, err
		}
		snapshot = snap
	}

	inCh := make(chan Job, d.opts.Workers*2)
	outCh := make(chan outcome, d.opts.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < d.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range inCh {
				outCh <- d.process(job, snapshot)
			}
		}()
	}

	dispatched := 0
	go func() {
		defer close(inCh)
		for _, job := range jobs {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case inCh <- job:
				dispatched++
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	summary := &Summary{}
	for o := range outCh {
		d.collect(summary, o)
	}
	// outCh closes only after the dispatcher closed inCh, so dispatched is final
	summary.NotStarted = len(jobs) - dispatched

	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Job.SourcePath < summary.Results[j].Job.SourcePath
	})
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].SourcePath < summary.Failures[j].SourcePath
	})

	if err := ctx.Err(); err != nil && summary.NotStarted > 0 {
		return summary, err
	}
	return summary, nil
}

// collect runs on the single collector goroutine.
func (d *Driver) collect(summary *Summary, o outcome) {
	res := o.result
	summary.Results = append(summary.Results, res)

	switch {
	case res.Err != nil:
		summary.Failed++
		summary.Failures = append(summary.Failures, Failure{
			SourcePath: res.Job.SourcePath,
			Stage:      o.stage,
			Kind:       classify(res.Err),
			Err:        res.Err,
		})
		d.logger.Error("document failed", "source", res.Job.SourcePath, "stage", string(o.stage), "error", res.Err)
		return
	case res.Skipped:
		summary.Skipped++
		d.logger.Info("unchanged, skipped", "source", res.Job.SourcePath, "artifact", res.Job.ArtifactPath)
		return
	}

	summary.Succeeded++
	if res.HandEdited {
		d.logger.Warn("artifact was edited outside the pipeline and has been overwritten", "artifact", res.Job.ArtifactPath)
	}
	if d.opts.StatsOnly {
		d.logger.Info("measured", "source", res.Job.SourcePath, "reduction", res.Stats.Reduction())
		return
	}
	d.logger.Info("wrote artifact", "source", res.Job.SourcePath, "artifact", res.Job.ArtifactPath, "reduction", res.Stats.Reduction())

	if d.ledger != nil && o.record != nil {
		if err := d.ledger.UpsertArtifact(o.record); err != nil {
			d.logger.Warn("failed to record artifact in ledger", "artifact", res.Job.ArtifactPath, "error", err)
		}
	}
}

// process runs on a worker. It touches the filesystem but never the ledger.
func (d *Driver) process(job Job, snapshot *database.Snapshot) outcome {
	o := outcome{result: DocumentResult{Job: job}, stage: engine.StageLoaded}
	fail := func(stage engine.Stage, err error) outcome {
		o.stage = stage
		o.result.Err = err
		o.result.Stages = append(o.result.Stages, engine.StageFailed)
		return o
	}

	body, err := os.ReadFile(job.SourcePath)
	if err != nil {
		return fail(engine.StageLoaded, &IOError{Op: "read", Path: job.SourcePath, Err: err})
	}
	sourceHash := hashBytes(body)
	artifactKey := d.ledgerPath(job.ArtifactPath)

	if snapshot != nil {
		if rec, ok := snapshot.Lookup(artifactKey); ok {
			currentHash, exists := hashFile(job.ArtifactPath)
			switch {
			case exists && currentHash == rec.ArtifactHash && d.isUpToDate(rec, sourceHash):
				o.result.Skipped = true
				return o
			case exists && currentHash != rec.ArtifactHash:
				o.result.HandEdited = true
			}
		}
	}

	var res *engine.Result
	if d.opts.Direction == database.DirectionDecompress {
		res, err = d.decompressor.DecompressDocument(job.SourcePath, string(body))
	} else {
		res, err = d.compressor.Compress(string(body))
	}
	if err != nil {
		return fail(engine.StageExtracted, err)
	}
	o.result.Stats = res.Stats
	o.result.Stages = res.Stages

	if d.opts.StatsOnly {
		return o
	}

	if err := os.MkdirAll(filepath.Dir(job.ArtifactPath), 0755); err != nil {
		return fail(engine.StageWritten, &IOError{Op: "create directory for", Path: job.ArtifactPath, Err: err})
	}
	output := []byte(res.Output)
	if err := WriteFileAtomic(job.ArtifactPath, output, 0644); err != nil {
		return fail(engine.StageWritten, &IOError{Op: "write", Path: job.ArtifactPath, Err: err})
	}
	o.result.Stages = append(o.result.Stages, engine.StageWritten)
	o.stage = engine.StageWritten

	o.record = &database.Artifact{
		ArtifactPath:    artifactKey,
		SourcePath:      d.ledgerPath(job.SourcePath),
		Direction:       d.opts.Direction,
		SourceHash:      sourceHash,
		ArtifactHash:    hashBytes(output),
		RuleFingerprint: d.table.Fingerprint(),
		Aggressive:      d.aggressive(),
		ToolVersion:     d.opts.ToolVersion,
	}
	return o
}

// isUpToDate reports whether a ledger record still describes what this
// driver would produce for a source with the given hash.
func (d *Driver) isUpToDate(rec database.Artifact, sourceHash string) bool {
	if rec.SourceHash != sourceHash || rec.RuleFingerprint != d.table.Fingerprint() || rec.Aggressive != d.aggressive() {
		return false
	}
	if rec.ToolVersion == d.opts.ToolVersion {
		return true
	}
	// Artifacts written by an older release are regenerated; by a newer
	// one, kept.
	if semver.IsValid(rec.ToolVersion) && semver.IsValid(d.opts.ToolVersion) {
		return semver.Compare(rec.ToolVersion, d.opts.ToolVersion) > 0
	}
	return false
}

// aggressive is only meaningful for compression.
func (d *Driver) aggressive() bool {
	return d.opts.Direction == database.DirectionCompress && d.settings.Aggressive
}

func (d *Driver) ledgerPath(path string) string {
	if d.opts.ProjectDirpath == "" {
		return filepath.Clean(path)
	}
	rel, err := filepath.Rel(d.opts.ProjectDirpath, path)
	if err != nil || filepath.IsAbs(rel) {
		return filepath.Clean(path)
	}
	return filepath.ToSlash(rel)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashFile returns the hash of a file and whether it could be read.
func hashFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return hashBytes(data), true
}
