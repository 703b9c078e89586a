package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/batch"
	"github.com/odyssey/handoff/internal/config"
	"github.com/odyssey/handoff/internal/database"
)

var (
	decompressInputFlag      string
	decompressOutputFlag     string
	decompressSilentFlag     bool
	decompressForceFlag      bool
	decompressCompactDirFlag string
	decompressHumanDirFlag   string
)

var decompressCmd = &cobra.Command{
	Use:   decompressCmdStr,
	Short: "Expand compact artifacts back into readable markdown",
	Long: `Expand compact artifacts into human-readable markdown.

Without --input, expands every *_COMPACT.md artifact in the compact directory
into the human directory. Dev-log artifacts are rendered as dated sections.
The exit status is non-zero when any document fails.
`,
	Args: cobra.NoArgs,
	RunE: runDecompress,
}

func init() {
	decompressCmd.Flags().StringVar(&decompressInputFlag, inputFlagName, "", "expand a single compact artifact")
	decompressCmd.Flags().StringVar(&decompressOutputFlag, outputFlagName, "", "output path for --input (default: <human dir>/<name>.md)")
	decompressCmd.Flags().BoolVar(&decompressSilentFlag, silentFlagName, false, "suppress progress and summary output")
	decompressCmd.Flags().BoolVar(&decompressForceFlag, forceFlagName, false, "expand artifacts even when unchanged")
	decompressCmd.Flags().StringVar(&decompressCompactDirFlag, compactDirFlagName, "", "override the configured compact directory")
	decompressCmd.Flags().StringVar(&decompressHumanDirFlag, humanDirFlagName, "", "override the configured human directory")
	rootCmd.AddCommand(decompressCmd)
}

func runDecompress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if decompressCompactDirFlag != "" {
		cfg.CompactDir = decompressCompactDirFlag
	}
	if decompressHumanDirFlag != "" {
		cfg.HumanDir = decompressHumanDirFlag
	}
	if err := config.Validate(cfg, projectDirpath); err != nil {
		return err
	}

	jobs, err := decompressJobs(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := newSignalContext()
	defer cancel()

	_, err = runPipeline(ctx, cfg, pipelineParams{
		command:   decompressCmdStr,
		direction: database.DirectionDecompress,
		jobs:      jobs,
		silent:    decompressSilentFlag,
		force:     decompressForceFlag,
	})
	return err
}

func decompressJobs(cfg *config.HandoffConfig) ([]batch.Job, error) {
	humanDirpath := config.ResolveDirpath(projectDirpath, cfg.GetHumanDir())

	if decompressInputFlag == "" {
		compactDirpath := config.ResolveDirpath(projectDirpath, cfg.GetCompactDir())
		return batch.DiscoverDecompressJobs(compactDirpath, humanDirpath)
	}

	inputFilepath, err := resolveFlagPath(decompressInputFlag)
	if err != nil {
		return nil, err
	}
	outputFilepath := filepath.Join(humanDirpath, config.GetHumanFilename(inputFilepath))
	if decompressOutputFlag != "" {
		if outputFilepath, err = resolveFlagPath(decompressOutputFlag); err != nil {
			return nil, err
		}
	}
	return []batch.Job{{SourcePath: inputFilepath, ArtifactPath: outputFilepath}}, nil
}
