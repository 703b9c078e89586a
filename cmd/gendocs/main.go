// cmd/gendocs writes the markdown CLI reference for handoff, one page per
// command. Run via: go run ./cmd/gendocs [dir]
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mieubrisse/stacktrace"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/odyssey/handoff/cmd"
)

const defaultOutputDirpath = "./docs/cli"

func main() {
	outputDirpath := defaultOutputDirpath
	if len(os.Args) > 1 {
		outputDirpath = os.Args[1]
	}

	if err := generateDocs(outputDirpath); err != nil {
		log.Fatalf("%v", err)
	}

	log.Printf("Documentation generated in %s", outputDirpath)
}

// generateDocs renders the command tree into outputDirpath. Every page
// opens with a title line naming its command path.
func generateDocs(outputDirpath string) error {
	if err := os.MkdirAll(outputDirpath, 0755); err != nil {
		return stacktrace.Propagate(err, "failed to create output directory '%s'", outputDirpath)
	}

	rootCmd := cmd.GetRootCmd()
	disableAutoGenTag(rootCmd)
	if err := doc.GenMarkdownTreeCustom(rootCmd, outputDirpath, pageTitle, pageLink); err != nil {
		return stacktrace.Propagate(err, "failed to generate docs in '%s'", outputDirpath)
	}
	return nil
}

// disableAutoGenTag removes the dated footer from every page.
func disableAutoGenTag(c *cobra.Command) {
	c.DisableAutoGenTag = true
	for _, sub := range c.Commands() {
		disableAutoGenTag(sub)
	}
}

func pageTitle(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), ".md")
	return fmt.Sprintf("<!-- generated by cmd/gendocs: %s -->\n\n", strings.ReplaceAll(name, "_", " "))
}

func pageLink(name string) string {
	return name
}
