package backend

import (
	"fmt"
	"time"
)

// EditOperation names a target location inside the structured résumé and the
// new value to place there. Operations are forwarded verbatim to the
// application engine, which applies them idempotently.
type EditOperation struct {
	Section     string `json:"section"`
	EntryIndex  *int   `json:"entryIndex,omitempty"`
	BulletIndex *int   `json:"bulletIndex,omitempty"`
	Value       string `json:"value"`
}

// DiffEntry describes one presentational change shown to the user before
// they decide on a proposal.
type DiffEntry struct {
	Section string `json:"section"`
	Type    string `json:"type"` // added | modified | removed
	Before  string `json:"before,omitempty"`
	After   string `json:"after,omitempty"`
}

// ChatEditResult is the edit payload produced by the command-interpretation
// service: the operations to apply plus the diff the user is shown.
type ChatEditResult struct {
	Operations []EditOperation `json:"operations"`
	Diffs      []DiffEntry     `json:"diffs"`
	Confidence string          `json:"confidence,omitempty"` // low | normal
}

// JobContext is optional job/company context sent along with a command.
type JobContext struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description,omitempty"`
}

// CommandRequest is the body of a command submission.
type CommandRequest struct {
	Command    string      `json:"command"`
	Resume     interface{} `json:"resume"`
	JobContext *JobContext `json:"jobContext,omitempty"`
}

// TurnRecord is one turn as submitted for persistence.
type TurnRecord struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Status     string          `json:"status"`
	EditResult *ChatEditResult `json:"editResult,omitempty"`
	EditStatus string          `json:"editStatus,omitempty"` // pending when an edit result is present
}

// StoredTurn is one persisted turn as returned by the history endpoint. The
// ID is the durable storage identifier.
type StoredTurn struct {
	ID         string          `json:"id"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	CreatedAt  time.Time       `json:"createdAt"`
	Status     string          `json:"status"`
	EditResult *ChatEditResult `json:"editResult,omitempty"`
	EditStatus string          `json:"editStatus,omitempty"`
}

// RateLimitError is returned when the service answers 429. RetryAfter is the
// wait hint for user-facing messaging.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// StatusError is a non-2xx response that is not a rate limit.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service returned status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("service returned status %d", e.Code)
}
