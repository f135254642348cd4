package main

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vitae-sh/vitae/backend"
)

// TurnRole identifies who authored a turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// TurnStatus tracks the delivery state of a turn.
type TurnStatus string

const (
	TurnStreaming TurnStatus = "streaming"
	TurnComplete  TurnStatus = "complete"
	TurnError     TurnStatus = "error"
)

// Resolution is the lifecycle state of an edit proposal.
// A proposal leaves Unresolved exactly once; Expired is assigned only while
// hydrating history from an earlier session.
type Resolution string

const (
	Unresolved Resolution = "unresolved"
	Applied    Resolution = "applied"
	Dismissed  Resolution = "dismissed"
	Expired    Resolution = "expired"
)

// Wire types are shared with the backend contracts.
type (
	EditOperation  = backend.EditOperation
	DiffEntry      = backend.DiffEntry
	ChatEditResult = backend.ChatEditResult
)

// EditProposal is a candidate change to the résumé carried by an assistant
// turn, pending explicit user acceptance.
type EditProposal struct {
	Operations []EditOperation
	Diffs      []DiffEntry
	Confidence string
	Resolution Resolution

	// resolving is set while an apply call is out to the application
	// engine, so a concurrent apply or dismiss cannot double-resolve.
	resolving bool
}

// Actionable reports whether the proposal still offers apply/dismiss controls.
func (p *EditProposal) Actionable() bool {
	return p != nil && p.Resolution == Unresolved && !p.resolving
}

// Turn is one message in the conversation. ID is client-generated and stable
// for the lifetime of the session; the durable storage identifier lives in
// the conversation's reconciliation map.
type Turn struct {
	ID        string
	Role      TurnRole
	Content   string
	CreatedAt time.Time
	Status    TurnStatus
	Proposal  *EditProposal
	Err       string
}

func newUserTurn(content string) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
		Status:    TurnComplete,
	}
}

func newAssistantTurn() *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Status:    TurnStreaming,
	}
}

// snapshot returns a copy safe to read outside the conversation lock. The
// operation and diff slices are shared; they are never mutated after the
// proposal is attached.
func (t *Turn) snapshot() *Turn {
	cp := *t
	if t.Proposal != nil {
		p := *t.Proposal
		cp.Proposal = &p
	}
	return &cp
}

// appendContent concatenates streamed text onto the turn.
func (t *Turn) appendContent(text string) {
	t.Content += text
}

// appendNote adds a short resolution line to the content. Content is
// append-only: the explanation the user already read is never rewritten.
func (t *Turn) appendNote(note string) {
	if t.Content != "" && !strings.HasSuffix(t.Content, "\n") {
		t.Content += "\n"
	}
	t.Content += note
}

// attachProposal sets the turn's edit proposal. A turn carries at most one
// proposal, and only once streaming has delivered it.
func (t *Turn) attachProposal(result *ChatEditResult) {
	if t.Proposal != nil {
		return
	}
	confidence := result.Confidence
	if confidence == "" {
		confidence = "normal"
	}
	t.Proposal = &EditProposal{
		Operations: result.Operations,
		Diffs:      result.Diffs,
		Confidence: confidence,
		Resolution: Unresolved,
	}
}
