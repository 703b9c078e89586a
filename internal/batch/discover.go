package batch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mieubrisse/stacktrace"

	"github.com/odyssey/handoff/internal/config"
)

// Job is one document to run through a pipeline.
type Job struct {
	SourcePath   string
	ArtifactPath string
}

// DiscoverCompressJobs lists every markdown document in sourceDirpath that
// is not itself a compact artifact, paired with its compact artifact path.
func DiscoverCompressJobs(sourceDirpath string, compactDirpath string) ([]Job, error) {
	names, err := listMarkdown(sourceDirpath)
	if err != nil {
		return nil, err
	}

	var jobs []Job
	for _, name := range names {
		if config.IsCompactFilename(name) {
			continue
		}
		jobs = append(jobs, Job{
			SourcePath:   filepath.Join(sourceDirpath, name),
			ArtifactPath: filepath.Join(compactDirpath, config.GetCompactFilename(name)),
		})
	}
	return jobs, nil
}

// DiscoverDecompressJobs lists every compact artifact in compactDirpath,
// paired with its human artifact path.
func DiscoverDecompressJobs(compactDirpath string, humanDirpath string) ([]Job, error) {
	names, err := listMarkdown(compactDirpath)
	if err != nil {
		return nil, err
	}

	var jobs []Job
	for _, name := range names {
		if !config.IsCompactFilename(name) {
			continue
		}
		jobs = append(jobs, Job{
			SourcePath:   filepath.Join(compactDirpath, name),
			ArtifactPath: filepath.Join(humanDirpath, config.GetHumanFilename(name)),
		})
	}
	return jobs, nil
}

// listMarkdown returns the sorted names of regular *.md files directly in
// dirpath.
func listMarkdown(dirpath string) ([]string, error) {
	entries, err := os.ReadDir(dirpath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, stacktrace.NewError("directory '%s' does not exist", dirpath)
		}
		return nil, stacktrace.Propagate(err, "failed to read directory '%s'", dirpath)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(entry.Name(), config.MarkdownExt) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
