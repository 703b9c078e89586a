package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI escape codes for terminal coloring.
const (
	ansiReset     = "\033[0m"
	ansiGreen     = "\033[32m"
	ansiYellow    = "\033[33m"
	ansiRed       = "\033[31m"
	ansiDarkGray  = "\033[90m"
	ansiLightBlue = "\033[94m"
)

var stdoutIsTerminal = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

// colorize wraps s in an ANSI color when stdout is a terminal.
func colorize(color string, s string) string {
	if !stdoutIsTerminal {
		return s
	}
	return color + s + ansiReset
}
