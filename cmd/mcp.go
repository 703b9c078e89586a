package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/mieubrisse/stacktrace"
	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/internal/mcptools"
	"github.com/odyssey/handoff/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   mcpCmdStr,
	Short: "Serve compress and decompress tools over MCP stdio",
	Long: `Run an MCP server on stdin/stdout exposing the compress_text,
decompress_text and compression_stats tools.

The project's config.yml rule tables and thresholds apply. Register it with
an agent as a stdio server running '` + handoffCmdStr + ` ` + mcpCmdStr + `'.
`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := cfg.BuildRuleTable()
	if err != nil {
		return err
	}

	s := mcptools.NewServer(table, cfg.EngineSettings(), version.Version)
	if err := server.ServeStdio(s); err != nil {
		return stacktrace.Propagate(err, "MCP server exited")
	}
	return nil
}
