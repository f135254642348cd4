package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportTranscript writes the conversation to a markdown file in the current
// directory and returns its path.
func ExportTranscript(turns []*Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("nothing to export yet")
	}

	filename := fmt.Sprintf("vitae-session-%s.md", time.Now().Format("2006-01-02-150405"))
	path, err := filepath.Abs(filename)
	if err != nil {
		path = filename
	}

	var b strings.Builder
	b.WriteString("# vitae session\n\n")
	b.WriteString(fmt.Sprintf("Exported %s\n\n", time.Now().Format("2 January 2006, 15:04 MST")))

	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			b.WriteString("## You\n\n")
			b.WriteString(t.Content)
			b.WriteString("\n\n")
		case RoleAssistant:
			b.WriteString("## Assistant\n\n")
			if t.Content != "" {
				b.WriteString(t.Content)
				b.WriteString("\n\n")
			}
			if t.Status == TurnError && t.Err != "" {
				b.WriteString(fmt.Sprintf("> error: %s\n\n", t.Err))
			}
			if t.Proposal != nil {
				writeProposalMarkdown(&b, t.Proposal)
			}
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	return path, nil
}

func writeProposalMarkdown(b *strings.Builder, p *EditProposal) {
	b.WriteString(fmt.Sprintf("**Proposed changes** (%s)\n\n", p.Resolution))
	for _, d := range p.Diffs {
		switch d.Type {
		case "added":
			b.WriteString(fmt.Sprintf("- `%s` add: %s\n", d.Section, d.After))
		case "removed":
			b.WriteString(fmt.Sprintf("- `%s` remove: %s\n", d.Section, d.Before))
		case "modified":
			b.WriteString(fmt.Sprintf("- `%s` change: %s -> %s\n", d.Section, d.Before, d.After))
		}
	}
	b.WriteString("\n")
}
