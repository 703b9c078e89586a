package cmd

import (
	"fmt"
	"os"

	"github.com/mieubrisse/stacktrace"
	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/config"
)

var projectDirpath string

var rootCmd = &cobra.Command{
	Use:          handoffCmdStr,
	Short:        "Compress markdown for agent handoff and expand it back for humans",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}

		dirpath, err := config.GetProjectDirpath()
		if err != nil {
			return stacktrace.Propagate(err, "failed to get project directory path")
		}
		projectDirpath = dirpath

		isFirstRun, err := config.IsFirstRun(projectDirpath)
		if err != nil {
			return err
		}

		if err := config.EnsureDirStructure(projectDirpath); err != nil {
			return stacktrace.Propagate(err, "failed to ensure directory structure")
		}

		if isFirstRun {
			// stderr keeps stdout clean for piped output and the MCP transport
			fmt.Fprintf(os.Stderr, "Initialized %s with a default config at %s\n",
				config.StateDirname, config.GetConfigFilepath(projectDirpath))
		}
		return nil
	},
}

// GetRootCmd returns the root command, for doc generation.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
