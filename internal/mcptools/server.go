// Package mcptools exposes the compression engine to agents as MCP tools.
package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/odyssey/handoff/internal/engine"
	"github.com/odyssey/handoff/internal/rules"
)

const serverName = "handoff"

// NewServer builds an MCP server with every handoff tool registered. The
// rule table and settings are fixed for the server's lifetime.
func NewServer(table *rules.Table, settings engine.Settings, version string) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	compressTool := NewCompressTextTool(table, settings)
	s.AddTool(compressTool.Definition(), compressTool.Handle)

	decompressTool := NewDecompressTextTool(table, settings)
	s.AddTool(decompressTool.Definition(), decompressTool.Handle)

	statsTool := NewCompressionStatsTool(table, settings)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	return s
}

func serverInstructions() string {
	return "Handoff compresses markdown for agent-to-agent handoff and expands it back for humans. " +
		"Use `compress_text` before passing long notes to another agent, `decompress_text` to read " +
		"a compact document, and `compression_stats` to see how much a document shrinks. " +
		"Code blocks, inline code, URLs and paths are never altered."
}
