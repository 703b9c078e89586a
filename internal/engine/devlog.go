package engine

import (
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odyssey/handoff/internal/rules"
)

// DevLogMarker identifies dev-log artifacts by file name.
const DevLogMarker = "dev_log"

// devLogEntry is one entry of a compact dev log:
//
//	- t: 2024-03-01 14:00
//	  changes: [added auth fn]
//	  issues: [db conn flaky]
//	  next: wire req retries
type devLogEntry struct {
	Time    string     `yaml:"t"`
	Changes stringList `yaml:"changes"`
	Issues  stringList `yaml:"issues"`
	Next    stringList `yaml:"next"`
}

// stringList accepts either a scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value != "" {
			*l = stringList{node.Value}
		}
		return nil
	default:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
}

// IsDevLog reports whether an artifact should be rendered as a dev log.
func IsDevLog(name string, body string) bool {
	if !strings.Contains(filepath.Base(name), DevLogMarker) {
		return false
	}
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "- ")
}

// DecompressDocument decompresses an artifact, rendering dev logs as a
// narrative. A dev log that does not parse falls back to Decompress.
func (d *Decompressor) DecompressDocument(name string, body string) (*Result, error) {
	if IsDevLog(name, body) {
		if res, ok := d.renderDevLog(body); ok {
			return res, nil
		}
	}
	return d.Decompress(body)
}

func (d *Decompressor) renderDevLog(body string) (*Result, bool) {
	var entries []devLogEntry
	if err := yaml.Unmarshal([]byte(body), &entries); err != nil || len(entries) == 0 {
		return nil, false
	}

	var sb strings.Builder
	for _, e := range entries {
		if e.Time != "" {
			sb.WriteString("## " + e.Time + "\n\n")
		}
		d.writeSection(&sb, "What Changed", e.Changes)
		d.writeSection(&sb, "Issues Encountered", e.Issues)
		d.writeSection(&sb, "Next Steps", e.Next)
		sb.WriteString("---\n\n")
	}

	output := sb.String()
	res := &Result{
		Output: output,
		Stages: []Stage{StageLoaded, StageDevLogRendered, StageReassembled},
		Stats: Stats{
			InputRunes:  rules.RuneLen(body),
			OutputRunes: rules.RuneLen(output),
		},
	}
	return res, true
}

func (d *Decompressor) writeSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("### " + title + "\n")
	for _, item := range items {
		sb.WriteString("- " + d.expandLine(item) + "\n")
	}
	sb.WriteString("\n")
}

// expandLine runs a single dev-log value through the decompression
// pipeline, keeping the raw value if it cannot be parsed.
func (d *Decompressor) expandLine(line string) string {
	res, err := d.Decompress(line)
	if err != nil {
		return line
	}
	return res.Output
}
