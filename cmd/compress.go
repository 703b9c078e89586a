package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/batch"
	"github.com/odyssey/handoff/internal/config"
	"github.com/odyssey/handoff/internal/database"
)

var (
	compressInputFlag      string
	compressOutputFlag     string
	compressAllFlag        bool
	compressSilentFlag     bool
	compressAggressiveFlag bool
	compressForceFlag      bool
	compressStatsFlag      bool
	compressSourceDirFlag  string
	compressCompactDirFlag string
)

var compressCmd = &cobra.Command{
	Use:   compressCmdStr,
	Short: "Compress markdown documents into compact handoff artifacts",
	Long: `Compress markdown documents into compact artifacts for agent handoff.

With --input, compresses one document; the output defaults to the compact
directory. With --compress-all, compresses every markdown document in the
source directory. Code blocks, inline code, URLs, paths and identifiers are
copied unchanged.

Documents whose source, rules and tool version are unchanged since the last
run are skipped unless --force is given. The exit status is non-zero when
any document fails.
`,
	Args: cobra.NoArgs,
	RunE: runCompress,
}

func init() {
	compressCmd.Flags().StringVar(&compressInputFlag, inputFlagName, "", "compress a single document")
	compressCmd.Flags().StringVar(&compressOutputFlag, outputFlagName, "", "output path for --input (default: <compact dir>/<name>_COMPACT.md)")
	compressCmd.Flags().BoolVar(&compressAllFlag, compressAllFlagName, false, "compress every document in the source directory")
	compressCmd.Flags().BoolVar(&compressSilentFlag, silentFlagName, false, "suppress progress and summary output")
	compressCmd.Flags().BoolVar(&compressAggressiveFlag, aggressiveFlagName, false, "also drop interior vowels from long words (not reversible)")
	compressCmd.Flags().BoolVar(&compressForceFlag, forceFlagName, false, "recompress documents even when unchanged")
	compressCmd.Flags().BoolVar(&compressStatsFlag, statsFlagName, false, "print compression statistics without writing artifacts")
	compressCmd.Flags().StringVar(&compressSourceDirFlag, sourceDirFlagName, "", "override the configured source directory")
	compressCmd.Flags().StringVar(&compressCompactDirFlag, compactDirFlagName, "", "override the configured compact directory")
	compressCmd.MarkFlagsMutuallyExclusive(inputFlagName, compressAllFlagName)
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	if compressInputFlag == "" && !compressAllFlag {
		return cmd.Help()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if compressSourceDirFlag != "" {
		cfg.SourceDir = compressSourceDirFlag
	}
	if compressCompactDirFlag != "" {
		cfg.CompactDir = compressCompactDirFlag
	}
	if err := config.Validate(cfg, projectDirpath); err != nil {
		return err
	}

	jobs, err := compressJobs(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := newSignalContext()
	defer cancel()

	_, err = runPipeline(ctx, cfg, pipelineParams{
		command:    compressCmdStr,
		direction:  database.DirectionCompress,
		jobs:       jobs,
		silent:     compressSilentFlag,
		force:      compressForceFlag,
		statsOnly:  compressStatsFlag,
		aggressive: compressAggressiveFlag,
	})
	return err
}

func compressJobs(cfg *config.HandoffConfig) ([]batch.Job, error) {
	compactDirpath := config.ResolveDirpath(projectDirpath, cfg.GetCompactDir())

	if compressInputFlag == "" {
		sourceDirpath := config.ResolveDirpath(projectDirpath, cfg.GetSourceDir())
		return batch.DiscoverCompressJobs(sourceDirpath, compactDirpath)
	}

	inputFilepath, err := resolveFlagPath(compressInputFlag)
	if err != nil {
		return nil, err
	}
	outputFilepath := filepath.Join(compactDirpath, config.GetCompactFilename(inputFilepath))
	if compressOutputFlag != "" {
		if outputFilepath, err = resolveFlagPath(compressOutputFlag); err != nil {
			return nil, err
		}
	}
	return []batch.Job{{SourcePath: inputFilepath, ArtifactPath: outputFilepath}}, nil
}
