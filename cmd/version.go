package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   versionCmdStr,
	Short: "Print the handoff version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s version %s\n", handoffCmdStr, version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
