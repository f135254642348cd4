package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportTranscript(t *testing.T) {
	t.Chdir(t.TempDir())

	user := newUserTurn("Add Python to my skills")
	assistant := newAssistantTurn()
	assistant.Status = TurnComplete
	assistant.appendContent("I'll add Python to your skills section.")
	assistant.attachProposal(&ChatEditResult{
		Operations: []EditOperation{{Section: "skills", Value: "Python"}},
		Diffs:      []DiffEntry{{Section: "skills", Type: "added", After: "Python"}},
	})
	assistant.Proposal.Resolution = Applied

	path, err := ExportTranscript([]*Turn{user, assistant})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# vitae session")
	assert.Contains(t, content, "## You")
	assert.Contains(t, content, "Add Python to my skills")
	assert.Contains(t, content, "## Assistant")
	assert.Contains(t, content, "**Proposed changes** (applied)")
	assert.Contains(t, content, "`skills` add: Python")
}

func TestExportTranscriptEmpty(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := ExportTranscript(nil)
	assert.Error(t, err)
}
