package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Hydrate loads persisted turns into the conversation at session start. The
// timeline and id map are built completely before being swapped in, so the
// UI never observes a half-loaded session. Durable ids double as the
// transient ids of loaded turns since no local-only copy of them exists.
//
// A proposal persisted as pending belongs to an earlier, abandoned session;
// its apply/dismiss affordance is no longer trustworthy because the
// underlying document may have changed. It is rendered as expired and
// patched to dismissed in storage, best-effort.
func (c *Conversation) Hydrate(ctx context.Context) error {
	stored, err := c.client.FetchHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to hydrate history: %w", err)
	}

	timeline := make([]*Turn, 0, len(stored))
	ids := make(map[string]string, len(stored))
	var stale []string

	for _, rec := range stored {
		t := &Turn{
			ID:        rec.ID,
			Role:      TurnRole(rec.Role),
			Content:   rec.Content,
			CreatedAt: rec.CreatedAt,
			Status:    loadedStatus(rec.Status),
		}
		if rec.EditResult != nil {
			t.Proposal = &EditProposal{
				Operations: rec.EditResult.Operations,
				Diffs:      rec.EditResult.Diffs,
				Confidence: rec.EditResult.Confidence,
				Resolution: loadedResolution(rec.EditStatus),
			}
			if t.Proposal.Resolution == Expired {
				stale = append(stale, t.ID)
			}
		}
		ids[rec.ID] = rec.ID
		timeline = append(timeline, t)
	}

	c.idMu.Lock()
	c.durableIDs = ids
	c.idMu.Unlock()

	c.mu.Lock()
	c.timeline = timeline
	c.mu.Unlock()

	if len(stale) > 0 {
		go c.dismissStaleProposals(stale)
	}

	c.notify(historyHydratedMsg{turns: len(timeline)})
	return nil
}

// loadedStatus maps a persisted turn status. Nothing streams out of storage.
func loadedStatus(status string) TurnStatus {
	if status == string(TurnError) {
		return TurnError
	}
	return TurnComplete
}

// loadedResolution maps a persisted edit status. Anything that is not a
// recorded decision is treated as left over from a crashed session.
func loadedResolution(editStatus string) Resolution {
	switch editStatus {
	case string(Applied):
		return Applied
	case string(Dismissed):
		return Dismissed
	default:
		return Expired
	}
}

// dismissStaleProposals records expired proposals as dismissed in storage so
// a later load sees a settled decision. Same fire-and-forget policy as live
// status patches.
func (c *Conversation) dismissStaleProposals(ids []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range ids {
		if err := c.client.PatchEditStatus(ctx, id, string(Dismissed), ""); err != nil {
			slog.Warn("failed to dismiss stale proposal", "turn", id, "error", err)
		}
	}
}
