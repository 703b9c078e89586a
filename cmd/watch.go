package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/batch"
	"github.com/odyssey/handoff/internal/config"
	"github.com/odyssey/handoff/internal/database"
	"github.com/odyssey/handoff/internal/watch"
)

var watchAggressiveFlag bool

var watchCmd = &cobra.Command{
	Use:   watchCmdStr,
	Short: "Recompress and expand documents whenever the source directory changes",
	Long: `Watch the source directory and keep artifacts current.

Runs a full compress and decompress once at startup, then again after every
burst of changes to source markdown. Unchanged documents are skipped. Stop
with Ctrl-C.
`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchAggressiveFlag, aggressiveFlagName, false, "also drop interior vowels from long words (not reversible)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sourceDirpath := config.ResolveDirpath(projectDirpath, cfg.GetSourceDir())
	compactDirpath := config.ResolveDirpath(projectDirpath, cfg.GetCompactDir())
	humanDirpath := config.ResolveDirpath(projectDirpath, cfg.GetHumanDir())

	ctx, cancel := newSignalContext()
	defer cancel()

	logger := newLogger(false)
	sync := func(ctx context.Context, changed []string) {
		compressJobs, err := batch.DiscoverCompressJobs(sourceDirpath, compactDirpath)
		if err != nil {
			logger.Error("failed to list source documents", "dir", sourceDirpath, "error", err)
			return
		}
		if _, err := runPipeline(ctx, cfg, pipelineParams{
			command:    watchCmdStr,
			direction:  database.DirectionCompress,
			jobs:       compressJobs,
			aggressive: watchAggressiveFlag,
		}); err != nil {
			logger.Error("compress run finished with errors", "error", err)
		}

		decompressJobs, err := batch.DiscoverDecompressJobs(compactDirpath, humanDirpath)
		if err != nil {
			logger.Error("failed to list compact artifacts", "dir", compactDirpath, "error", err)
			return
		}
		if _, err := runPipeline(ctx, cfg, pipelineParams{
			command:   watchCmdStr,
			direction: database.DirectionDecompress,
			jobs:      decompressJobs,
		}); err != nil {
			logger.Error("decompress run finished with errors", "error", err)
		}
	}

	w, err := watch.New(sourceDirpath, watch.DefaultDebounce, sync, logger)
	if err != nil {
		return err
	}

	sync(ctx, nil)
	fmt.Printf("\nWatching %s (Ctrl-C to stop)\n", displayPath(sourceDirpath))
	return w.Run(ctx)
}
