package cmd

import (
	"github.com/spf13/cobra"
)

var ledgerCmd = &cobra.Command{
	Use:   ledgerCmdStr,
	Short: "Inspect the artifact ledger",
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
}
