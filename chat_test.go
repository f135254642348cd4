package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func proposalTurn(resolution Resolution) *Turn {
	t := newAssistantTurn()
	t.Content = "How about this?"
	t.Status = TurnComplete
	t.Proposal = &EditProposal{
		Operations: []EditOperation{{Section: "skills", Value: "Python"}},
		Diffs:      []DiffEntry{{Section: "skills", Type: "added", After: "Python"}},
		Confidence: "normal",
		Resolution: resolution,
	}
	return t
}

func renderToView(turns ...*Turn) string {
	c := NewChatComponent(80, 24, false)
	c.Render(turns)
	return c.Viewport.View()
}

func TestRenderUnresolvedProposalShowsControls(t *testing.T) {
	view := renderToView(proposalTurn(Unresolved))
	assert.Contains(t, view, "Proposed changes")
	assert.Contains(t, view, "+ [skills] Python")
	assert.Contains(t, view, "apply with ctrl+a · dismiss with ctrl+x")
}

func TestRenderExpiredProposalOffersNoControls(t *testing.T) {
	view := renderToView(proposalTurn(Expired))
	assert.Contains(t, view, "expired")
	assert.NotContains(t, view, "apply with ctrl+a")
	assert.NotContains(t, view, "ctrl+x")
}

func TestRenderResolvedProposalFooter(t *testing.T) {
	assert.Contains(t, renderToView(proposalTurn(Applied)), "applied")

	dismissed := renderToView(proposalTurn(Dismissed))
	assert.Contains(t, dismissed, "dismissed")
	assert.NotContains(t, dismissed, "apply with ctrl+a")
}

func TestRenderLowConfidenceHeader(t *testing.T) {
	turn := proposalTurn(Unresolved)
	turn.Proposal.Confidence = "low"
	assert.Contains(t, renderToView(turn), "Proposed changes (low confidence)")
}

func TestRenderStreamingTurnShowsCursor(t *testing.T) {
	turn := newAssistantTurn()
	turn.Content = "Working on it"
	assert.Contains(t, renderToView(turn), "Working on it▌")
}

func TestRenderErrorTurn(t *testing.T) {
	turn := newAssistantTurn()
	turn.Status = TurnError
	turn.Err = "rate limited, retry in 30s"
	assert.Contains(t, renderToView(turn), "⚠ rate limited, retry in 30s")
}

func TestRenderDiffEntries(t *testing.T) {
	assert.Equal(t, "+ [skills] Go",
		renderDiffEntry(DiffEntry{Section: "skills", Type: "added", After: "Go"}))
	assert.Equal(t, "- [summary] Old line",
		renderDiffEntry(DiffEntry{Section: "summary", Type: "removed", Before: "Old line"}))
	assert.Equal(t, "~ [summary] Before → After",
		renderDiffEntry(DiffEntry{Section: "summary", Type: "modified", Before: "Before", After: "After"}))
}
