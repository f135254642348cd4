package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendNoteKeepsExistingContent(t *testing.T) {
	turn := newAssistantTurn()
	turn.appendContent("Here is what I suggest.")
	turn.appendNote("✓ Changes applied to your resume.")

	assert.Equal(t, "Here is what I suggest.\n✓ Changes applied to your resume.", turn.Content)

	// a second note appends again, earlier text is never rewritten
	turn.appendNote("another line")
	assert.Equal(t, "Here is what I suggest.\n✓ Changes applied to your resume.\nanother line", turn.Content)
}

func TestAppendNoteOnEmptyTurn(t *testing.T) {
	turn := newAssistantTurn()
	turn.appendNote("✗ Suggestion dismissed.")
	assert.Equal(t, "✗ Suggestion dismissed.", turn.Content)
}

func TestAttachProposalOnlyOnce(t *testing.T) {
	turn := newAssistantTurn()
	turn.attachProposal(&ChatEditResult{Confidence: "low"})
	require.NotNil(t, turn.Proposal)
	assert.Equal(t, "low", turn.Proposal.Confidence)

	turn.attachProposal(&ChatEditResult{Confidence: "normal"})
	assert.Equal(t, "low", turn.Proposal.Confidence, "a turn carries at most one proposal")
}

func TestAttachProposalDefaultsConfidence(t *testing.T) {
	turn := newAssistantTurn()
	turn.attachProposal(&ChatEditResult{})
	assert.Equal(t, "normal", turn.Proposal.Confidence)
}

func TestActionable(t *testing.T) {
	var p *EditProposal
	assert.False(t, p.Actionable(), "nil proposal is not actionable")

	p = &EditProposal{Resolution: Unresolved}
	assert.True(t, p.Actionable())

	for _, r := range []Resolution{Applied, Dismissed, Expired} {
		p.Resolution = r
		assert.False(t, p.Actionable(), string(r))
	}
}

func TestNewTurnsHaveDistinctIDs(t *testing.T) {
	a := newUserTurn("one")
	b := newUserTurn("two")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, TurnComplete, a.Status)
	assert.Equal(t, TurnStreaming, newAssistantTurn().Status)
}
