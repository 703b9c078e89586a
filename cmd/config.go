package cmd

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   configCmdStr,
	Short: "Manage handoff configuration",
}

func init() {
	rootCmd.AddCommand(configCmd)
}
