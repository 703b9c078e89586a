package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/odyssey/handoff/internal/engine"
	"github.com/odyssey/handoff/internal/extract"
	"github.com/odyssey/handoff/internal/rules"
)

// CompressTextTool handles the compress_text MCP tool.
type CompressTextTool struct {
	table    *rules.Table
	settings engine.Settings
}

// NewCompressTextTool creates a CompressTextTool.
func NewCompressTextTool(table *rules.Table, settings engine.Settings) *CompressTextTool {
	return &CompressTextTool{table: table, settings: settings}
}

// Definition returns the MCP tool definition for registration.
func (t *CompressTextTool) Definition() mcp.Tool {
	return mcp.NewTool("compress_text",
		mcp.WithDescription(
			"Compress a markdown document into the compact handoff form. "+
				"Protected regions (code, URLs, paths, identifiers) are kept byte-for-byte.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Markdown to compress."),
		),
		mcp.WithBoolean("aggressive",
			mcp.Description("Also drop interior vowels from long words. Not reversible."),
		),
	)
}

// Handle processes the compress_text tool call.
func (t *CompressTextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	settings := t.settings
	settings.Aggressive = boolArg(req, "aggressive", settings.Aggressive)

	res, err := engine.NewCompressor(t.table, settings).Compress(text)
	if err != nil {
		return documentError(err)
	}
	return mcp.NewToolResultText(res.Output), nil
}

// DecompressTextTool handles the decompress_text MCP tool.
type DecompressTextTool struct {
	decompressor *engine.Decompressor
}

// NewDecompressTextTool creates a DecompressTextTool.
func NewDecompressTextTool(table *rules.Table, settings engine.Settings) *DecompressTextTool {
	return &DecompressTextTool{decompressor: engine.NewDecompressor(table, settings)}
}

// Definition returns the MCP tool definition for registration.
func (t *DecompressTextTool) Definition() mcp.Tool {
	return mcp.NewTool("decompress_text",
		mcp.WithDescription(
			"Expand a compact handoff document back into readable prose. "+
				"Pass `name` so structured dev logs are rendered as sections.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Compact markdown to expand."),
		),
		mcp.WithString("name",
			mcp.Description("File name of the compact document, e.g. `DEVLOG_COMPACT.md`."),
		),
	)
}

// Handle processes the decompress_text tool call.
func (t *DecompressTextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}
	name := req.GetString("name", "")

	res, err := t.decompressor.DecompressDocument(name, text)
	if err != nil {
		return documentError(err)
	}
	return mcp.NewToolResultText(res.Output), nil
}

// CompressionStatsTool handles the compression_stats MCP tool.
type CompressionStatsTool struct {
	table    *rules.Table
	settings engine.Settings
}

// NewCompressionStatsTool creates a CompressionStatsTool.
func NewCompressionStatsTool(table *rules.Table, settings engine.Settings) *CompressionStatsTool {
	return &CompressionStatsTool{table: table, settings: settings}
}

// Definition returns the MCP tool definition for registration.
func (t *CompressionStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("compression_stats",
		mcp.WithDescription(
			"Report how much a markdown document shrinks when compressed, without returning the output.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Markdown to measure."),
		),
		mcp.WithBoolean("aggressive",
			mcp.Description("Measure with vowel reduction enabled."),
		),
	)
}

// Handle processes the compression_stats tool call.
func (t *CompressionStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	settings := t.settings
	settings.Aggressive = boolArg(req, "aggressive", settings.Aggressive)

	res, err := engine.NewCompressor(t.table, settings).Compress(text)
	if err != nil {
		return documentError(err)
	}

	var sb strings.Builder
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| Input runes | %s |\n", humanize.Comma(int64(res.Stats.InputRunes)))
	fmt.Fprintf(&sb, "| Output runes | %s |\n", humanize.Comma(int64(res.Stats.OutputRunes)))
	fmt.Fprintf(&sb, "| Reduction | %.1f%% |\n", res.Stats.Reduction())
	fmt.Fprintf(&sb, "| Protected segments | %d |\n", countProtected(res.Segments))
	return mcp.NewToolResultText(sb.String()), nil
}

func countProtected(segments []extract.Segment) int {
	n := 0
	for _, s := range segments {
		if s.Protected() {
			n++
		}
	}
	return n
}

// documentError turns a malformed document into a tool error the agent can
// act on; anything else is an internal failure.
func documentError(err error) (*mcp.CallToolResult, error) {
	var malformed *extract.MalformedDocumentError
	if errors.As(err, &malformed) {
		return mcp.NewToolResultError(malformed.Error()), nil
	}
	return nil, err
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
