package tableprinter

import (
	"os"
	"regexp"

	"github.com/mattn/go-runewidth"
	"github.com/rodaine/table"
	"golang.org/x/term"
)

// ansiPattern matches ANSI SGR escape sequences (e.g. \033[32m).
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// defaultTerminalWidth is used when stdout is not a terminal.
const defaultTerminalWidth = 120

// VisibleWidth returns the display width of s in terminal columns, excluding
// any ANSI SGR escape sequences. Wide characters such as CJK glyphs, emoji
// and the arrow symbols used in compact artifacts are measured correctly.
func VisibleWidth(s string) int {
	stripped := ansiPattern.ReplaceAllString(s, "")
	return runewidth.StringWidth(stripped)
}

// NewTable creates a new table with the given column headers, pre-configured
// with an ANSI-aware width function so that colored cell values don't break
// column alignment.
func NewTable(headers ...interface{}) table.Table {
	return table.New(headers...).WithWidthFunc(VisibleWidth)
}

// TerminalWidth returns the width of the terminal attached to stdout.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}

// Truncate shortens s to at most maxWidth visible columns, ending it with
// "..." when cut. ANSI sequences are stripped from cut values.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 || VisibleWidth(s) <= maxWidth {
		return s
	}
	stripped := ansiPattern.ReplaceAllString(s, "")
	return runewidth.Truncate(stripped, maxWidth, "...")
}
