// cmd/genskill generates the handoff quick reference for agents by
// introspecting the Cobra command tree. Run via: go run ./cmd/genskill [path]
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/odyssey/handoff/cmd"
)

const defaultOutputFilepath = "./AGENT_REFERENCE.md"

// commandGroup represents a top-level command and its subcommands for
// template rendering.
type commandGroup struct {
	Name        string
	Description string
	Commands    []commandEntry
}

// commandEntry represents a single command in the skill reference.
type commandEntry struct {
	Usage       string
	Description string
}

func main() {
	outputFilepath := defaultOutputFilepath
	if len(os.Args) > 1 {
		outputFilepath = os.Args[1]
	}

	rootCmd := cmd.GetRootCmd()

	groups := buildCommandGroups(rootCmd)

	content, err := renderSkill(groups)
	if err != nil {
		log.Fatalf("failed to render skill: %v", err)
	}

	if err := os.WriteFile(outputFilepath, []byte(content), 0644); err != nil {
		log.Fatalf("failed to write %s: %v", outputFilepath, err)
	}

	log.Printf("Generated %s", outputFilepath)
}

// topLevelOrder defines the display order for top-level command groups.
// Commands not in this list are appended at the end under "Other Commands".
var topLevelOrder = []string{
	"config",
	"ledger",
}

// buildCommandGroups walks the Cobra command tree and organizes commands
// into groups for template rendering.
func buildCommandGroups(rootCmd *cobra.Command) []commandGroup {
	groupMap := make(map[string]*commandGroup)

	for _, child := range rootCmd.Commands() {
		if child.Hidden || !child.IsAvailableCommand() {
			continue
		}

		name := child.Name()

		subcommands := child.Commands()
		if len(subcommands) > 0 {
			group := &commandGroup{
				Name:        name,
				Description: child.Short,
			}
			for _, sub := range subcommands {
				if sub.Hidden || !sub.IsAvailableCommand() {
					continue
				}
				group.Commands = append(group.Commands, commandEntry{
					Usage:       fmt.Sprintf("handoff %s %s", name, sub.Use),
					Description: sub.Short,
				})
			}
			groupMap[name] = group
		}
	}

	// Build ordered result
	var groups []commandGroup
	seen := make(map[string]bool)

	for _, name := range topLevelOrder {
		if group, ok := groupMap[name]; ok {
			groups = append(groups, *group)
			seen[name] = true
		}
	}

	// Collect ungrouped top-level commands (no subcommands) into "Other Commands"
	var otherCommands []commandEntry
	for _, child := range rootCmd.Commands() {
		if child.Hidden || !child.IsAvailableCommand() {
			continue
		}
		name := child.Name()
		if seen[name] {
			continue
		}
		if _, hasGroup := groupMap[name]; hasGroup {
			// Grouped command not in topLevelOrder; append its group
			groups = append(groups, *groupMap[name])
			seen[name] = true
			continue
		}
		otherCommands = append(otherCommands, commandEntry{
			Usage:       fmt.Sprintf("handoff %s", child.Use),
			Description: child.Short,
		})
	}

	if len(otherCommands) > 0 {
		groups = append(groups, commandGroup{
			Name:        "other",
			Description: "Other commands",
			Commands:    otherCommands,
		})
	}

	return groups
}

// padRight pads a string with spaces to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// renderSkill renders the SKILL.md content from the command groups.
func renderSkill(groups []commandGroup) (string, error) {
	funcMap := template.FuncMap{
		"padRight":  padRight,
		"sectionH2": func(s string) string { return s + "\n" + strings.Repeat("-", len(s)) },
		"maxUsageLen": func(cmds []commandEntry) int {
			maxLen := 0
			for _, c := range cmds {
				if len(c.Usage) > maxLen {
					maxLen = len(c.Usage)
				}
			}
			return maxLen
		},
	}

	tmpl, err := template.New("skill").Funcs(funcMap).Parse(skillTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, groups); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return sb.String(), nil
}

// skillTemplate is the Go text/template for the reference content.
// The static preamble explains the compact notation; the dynamic sections
// are populated from the Cobra command tree.
var skillTemplate = `Handoff CLI Quick Reference
===========================

Documents under ` + "`docs/`" + ` are compressed into ` + "`.compressed/*_COMPACT.md`" + ` for you to read. Compact documents drop articles, abbreviate common terms (` + "`auth`" + `, ` + "`fn`" + `, ` + "`config`" + `) and replace connectors with symbols (` + "`→`" + ` for "returns", ` + "`∵`" + ` for "because"). Code blocks, inline code, URLs, paths and identifiers are copied byte-for-byte.

**Write compact, read compact.** When you update handoff notes, edit the source under ` + "`docs/`" + ` and run ` + "`handoff compress --compress-all`" + `. Never edit ` + "`*_COMPACT.md`" + ` files directly; the next run overwrites them.

**Never use interactive commands** that require terminal input. Pass ` + "`--force`" + ` to ` + "`handoff config init`" + ` only when you mean to reset the config.

{{ range . }}{{ if ne .Name "other" }}
{{ sectionH2 .Description }}

` + "```" + `
{{ $maxLen := maxUsageLen .Commands }}{{ range .Commands }}{{ padRight .Usage $maxLen }}  # {{ .Description }}
{{ end }}` + "```" + `
{{ end }}{{ end }}{{ range . }}{{ if eq .Name "other" }}
{{ sectionH2 .Description }}

` + "```" + `
{{ $maxLen := maxUsageLen .Commands }}{{ range .Commands }}{{ padRight .Usage $maxLen }}  # {{ .Description }}
{{ end }}` + "```" + `
{{ end }}{{ end }}
Key Concepts
------------

- **Source documents** are the markdown files in the configured source directory. They are the only files people and agents should edit.
- **Compact artifacts** (` + "`<name>_COMPACT.md`" + `) are generated. A document whose source, rules and tool version are unchanged is skipped.
- **Human artifacts** under ` + "`.human/docs/`" + ` are compact artifacts expanded back to prose. Expansion restores abbreviations and symbols but not dropped articles.
- **The ledger** (` + "`.handoff/ledger.sqlite`" + `) records every artifact and run. Inspect it with ` + "`handoff ledger ls`" + `.
- **Rules** live in ` + "`.handoff/config.yml`" + `. Show the merged tables with ` + "`handoff config show --effective`" + `.
`
