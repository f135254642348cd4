package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vitae-sh/vitae/backend"
)

// NotifyFunc is a function that handles notifications
type NotifyFunc func(any)

// notification messages
type streamStartMsg struct{}
type turnUpdatedMsg struct{}
type streamCompleteMsg struct{}
type streamInterruptedMsg struct{ partialContent string }
type streamErrorMsg struct{ err error }
type historyHydratedMsg struct{ turns int }
type proposalResolvedMsg struct {
	turnID     string
	resolution Resolution
}

// ErrCommandInFlight is returned when a command is submitted while a
// previous one is still streaming. Submission is blocked, never queued.
var ErrCommandInFlight = errors.New("a command is already streaming")

const persistTimeout = 15 * time.Second

// Conversation is the session aggregate: the ordered message timeline, the
// transient-to-durable id map, and the single-command stream. The timeline
// is append-only; only the most recent assistant turn is mutated while its
// stream is live.
//
// The stream goroutine mutates turns while the UI goroutine renders on every
// tick, so mu guards the timeline and all turn fields. Readers get snapshot
// copies and never see a turn mid-mutation; the lock is never held across a
// network call.
type Conversation struct {
	client *backend.Client
	notify NotifyFunc

	mu       sync.Mutex
	timeline []*Turn

	// durableIDs bridges client-generated turn ids to storage ids once
	// persistence completes. Entries are 1:1 and never overwritten; a
	// missing entry means "not yet persisted" and status patches are
	// skipped, not queued.
	idMu       sync.Mutex
	durableIDs map[string]string

	resumeDoc  json.RawMessage
	jobContext *backend.JobContext

	inFlight atomic.Bool
	cancel   context.CancelFunc
}

// NewConversation creates an empty conversation backed by the given service
// client.
func NewConversation(client *backend.Client, notify NotifyFunc) *Conversation {
	if notify == nil {
		notify = func(any) {}
	}
	return &Conversation{
		client:     client,
		notify:     notify,
		durableIDs: make(map[string]string),
	}
}

// SetDocumentContext sets the résumé document and optional job context sent
// with every command.
func (c *Conversation) SetDocumentContext(doc json.RawMessage, job *backend.JobContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeDoc = doc
	c.jobContext = job
}

// Turns returns a snapshot of the current timeline, safe to render while a
// stream is mutating the live turns.
func (c *Conversation) Turns() []*Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Turn, len(c.timeline))
	for i, t := range c.timeline {
		out[i] = t.snapshot()
	}
	return out
}

// Streaming reports whether a command stream is currently open.
func (c *Conversation) Streaming() bool {
	return c.inFlight.Load()
}

// Submit sends a user command through the command channel. At most one
// command may be in flight; a second call is rejected with
// ErrCommandInFlight and leaves the timeline untouched.
func (c *Conversation) Submit(ctx context.Context, command string) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrCommandInFlight
	}

	user := newUserTurn(command)
	streamCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.timeline = append(c.timeline, user)
	c.cancel = cancel
	c.mu.Unlock()

	go c.stream(streamCtx, user)
	return nil
}

// CancelStream aborts the in-flight command at the transport boundary.
// Events already decoded stay in the timeline; the assistant turn keeps
// whatever state it had reached.
func (c *Conversation) CancelStream() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// stream drives one command: open the transport, decode events into the
// assistant turn, then hand the finished pair to background persistence.
func (c *Conversation) stream(ctx context.Context, user *Turn) {
	defer c.inFlight.Store(false)

	c.mu.Lock()
	req := backend.CommandRequest{
		Command:    user.Content,
		Resume:     c.resumeDoc,
		JobContext: c.jobContext,
	}
	c.mu.Unlock()

	body, err := c.client.OpenCommandStream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// user-initiated abort before the stream opened: no-op
			c.notify(streamInterruptedMsg{})
			return
		}
		assistant := newAssistantTurn()
		assistant.Status = TurnError
		assistant.Err = err.Error()
		c.mu.Lock()
		c.timeline = append(c.timeline, assistant)
		c.mu.Unlock()
		c.notify(streamErrorMsg{err: err})
		go c.persistPair(user, assistant)
		return
	}
	defer body.Close()

	assistant := newAssistantTurn()
	c.mu.Lock()
	c.timeline = append(c.timeline, assistant)
	c.mu.Unlock()
	c.notify(streamStartMsg{})

	decoder := NewStreamDecoder()
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			events := decoder.Feed(buf[:n])
			c.mu.Lock()
			for _, ev := range events {
				c.applyEvent(assistant, ev)
			}
			c.mu.Unlock()
			c.notify(turnUpdatedMsg{})
		}
		if readErr == nil {
			continue
		}
		if readErr == io.EOF {
			break
		}
		if ctx.Err() != nil {
			// user-initiated abort mid-stream: decoded content stays,
			// status is left as reached, nothing is persisted
			c.mu.Lock()
			partial := assistant.Content
			c.mu.Unlock()
			c.notify(streamInterruptedMsg{partialContent: partial})
			return
		}
		slog.Warn("command stream dropped", "error", readErr)
		c.mu.Lock()
		assistant.Status = TurnError
		assistant.Err = "connection lost, please try again"
		c.mu.Unlock()
		break
	}

	c.mu.Lock()
	failed := assistant.Status == TurnError
	errText := assistant.Err
	if !failed {
		assistant.Status = TurnComplete
	}
	c.mu.Unlock()

	if failed {
		c.notify(streamErrorMsg{err: errors.New(errText)})
	} else {
		c.notify(streamCompleteMsg{})
	}

	go c.persistPair(user, assistant)
}

// applyEvent mutates the in-progress assistant turn with one decoded event.
// Caller holds c.mu.
func (c *Conversation) applyEvent(assistant *Turn, ev StreamEvent) {
	switch ev.Type {
	case EventText:
		assistant.appendContent(ev.Text)
	case EventEditResult:
		assistant.attachProposal(ev.Edit)
	case EventError:
		assistant.Status = TurnError
		assistant.Err = ev.Message
	}
}

// persistPair submits the finished user+assistant pair to storage and
// records the returned durable ids. Persistence is an auxiliary durability
// concern: failures are logged and swallowed, the timeline is not altered
// and nothing is retried.
func (c *Conversation) persistPair(user, assistant *Turn) {
	c.mu.Lock()
	userRec := backend.TurnRecord{
		Role:    string(user.Role),
		Content: user.Content,
		Status:  string(user.Status),
	}
	asstRec := backend.TurnRecord{
		Role:    string(assistant.Role),
		Content: assistant.Content,
		Status:  string(assistant.Status),
	}
	if p := assistant.Proposal; p != nil {
		asstRec.EditResult = &ChatEditResult{
			Operations: p.Operations,
			Diffs:      p.Diffs,
			Confidence: p.Confidence,
		}
		asstRec.EditStatus = "pending"
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	ids, err := c.client.AppendTurnPair(ctx, userRec, asstRec)
	if err != nil {
		slog.Warn("failed to persist turn pair", "error", err)
		return
	}
	c.recordDurableID(user.ID, ids[0])
	c.recordDurableID(assistant.ID, ids[1])
	slog.Debug("turn pair persisted", "user", ids[0], "assistant", ids[1])
}

// recordDurableID stores a transient-to-durable mapping. Existing entries
// are never overwritten.
func (c *Conversation) recordDurableID(transientID, durableID string) {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	if _, ok := c.durableIDs[transientID]; ok {
		return
	}
	c.durableIDs[transientID] = durableID
}

// durableID looks up the storage id for a turn. ok is false while
// persistence is still in flight or has failed.
func (c *Conversation) durableID(transientID string) (string, bool) {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	id, ok := c.durableIDs[transientID]
	return id, ok
}

// findTurn returns the live turn with the given transient id. Caller holds
// c.mu.
func (c *Conversation) findTurn(turnID string) *Turn {
	for _, t := range c.timeline {
		if t.ID == turnID {
			return t
		}
	}
	return nil
}

// ActionableTurn returns a snapshot of the most recent assistant turn whose
// proposal still awaits a decision, if any.
func (c *Conversation) ActionableTurn() *Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.timeline) - 1; i >= 0; i-- {
		if t := c.timeline[i]; t.Role == RoleAssistant && t.Proposal.Actionable() {
			return t.snapshot()
		}
	}
	return nil
}

// ApplyProposal resolves a proposal by handing its operations to the
// application engine. The resolution happens exactly once; calling this on a
// turn without an actionable proposal is a no-op. While the engine call is
// in flight the proposal is held, so a concurrent apply or dismiss is also a
// no-op.
func (c *Conversation) ApplyProposal(ctx context.Context, turnID string) error {
	c.mu.Lock()
	t := c.findTurn(turnID)
	if t == nil || !t.Proposal.Actionable() {
		c.mu.Unlock()
		return nil
	}
	t.Proposal.resolving = true
	ops := t.Proposal.Operations
	c.mu.Unlock()

	if err := c.client.ApplyOperations(ctx, ops); err != nil {
		// the proposal stays unresolved so the user can retry
		c.mu.Lock()
		t.Proposal.resolving = false
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	t.Proposal.resolving = false
	t.Proposal.Resolution = Applied
	t.appendNote("✓ Changes applied to your resume.")
	content := t.Content
	c.mu.Unlock()

	c.notify(proposalResolvedMsg{turnID: turnID, resolution: Applied})
	go c.patchEditStatus(turnID, Applied, content)
	return nil
}

// DismissProposal resolves a proposal without touching the document.
func (c *Conversation) DismissProposal(turnID string) {
	c.mu.Lock()
	t := c.findTurn(turnID)
	if t == nil || !t.Proposal.Actionable() {
		c.mu.Unlock()
		return
	}
	t.Proposal.Resolution = Dismissed
	t.appendNote("✗ Suggestion dismissed.")
	content := t.Content
	c.mu.Unlock()

	c.notify(proposalResolvedMsg{turnID: turnID, resolution: Dismissed})
	go c.patchEditStatus(turnID, Dismissed, content)
}

// patchEditStatus records a resolution against storage, best-effort. When no
// durable id exists yet the patch is simply not sent: persistence may still
// be in flight or may have failed, and patches are never queued.
func (c *Conversation) patchEditStatus(turnID string, resolution Resolution, content string) {
	durable, ok := c.durableID(turnID)
	if !ok {
		slog.Debug("no durable id for turn, skipping edit status patch", "turn", turnID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := c.client.PatchEditStatus(ctx, durable, string(resolution), content); err != nil {
		slog.Warn("failed to patch edit status", "turn", durable, "error", err)
	}
}
