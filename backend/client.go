package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to the résumé service: the command-interpretation stream, the
// history store, the edit-status patch endpoint and the application engine.
// Only the request/response contracts live here; the engines themselves are
// server-side.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	stream  *http.Client
}

// NewClient creates a service client. The streaming client carries no
// timeout because a command stream stays open for as long as the assistant
// is talking; cancellation is the caller's context.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		stream:  &http.Client{},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// decodeFailure translates a non-2xx response into a typed error. It never
// returns nil.
func decodeFailure(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retryAfter"`
	}
	_ = json.Unmarshal(body, &payload)

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := payload.RetryAfter
		if retry == 0 {
			if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				retry = v
			}
		}
		return &RateLimitError{RetryAfter: time.Duration(retry) * time.Second}
	}

	return &StatusError{Code: resp.StatusCode, Message: payload.Error}
}

// OpenCommandStream submits a command and returns the raw event stream. A
// non-2xx response is translated into a typed error before any byte of the
// stream is read; 429 comes back as *RateLimitError. The caller owns the
// returned body and must close it.
func (c *Client) OpenCommandStream(ctx context.Context, cmd CommandRequest) (io.ReadCloser, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/command", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open command stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeFailure(resp)
	}
	return resp.Body, nil
}

// FetchHistory returns the persisted conversation turns in order.
func (c *Client) FetchHistory(ctx context.Context) ([]StoredTurn, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/chat/history", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeFailure(resp)
	}

	var turns []StoredTurn
	if err := json.NewDecoder(resp.Body).Decode(&turns); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return turns, nil
}

// AppendTurnPair persists a user+assistant turn pair and returns the durable
// ids assigned to them, in submission order.
func (c *Client) AppendTurnPair(ctx context.Context, user, assistant TurnRecord) ([]string, error) {
	payload, err := json.Marshal(struct {
		Turns []TurnRecord `json:"turns"`
	}{Turns: []TurnRecord{user, assistant}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode turn pair: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/history", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to append turns: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeFailure(resp)
	}

	var result struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode append response: %w", err)
	}
	if len(result.IDs) != 2 {
		return nil, fmt.Errorf("expected 2 durable ids, got %d", len(result.IDs))
	}
	return result.IDs, nil
}

// PatchEditStatus records an apply/dismiss decision against a persisted
// turn, addressed by its durable id. Content, when non-empty, replaces the
// stored turn content so the appended resolution note survives reloads.
func (c *Client) PatchEditStatus(ctx context.Context, durableID, status, content string) error {
	body := struct {
		Status  string `json:"status"`
		Content string `json:"content,omitempty"`
	}{Status: status, Content: content}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode edit status: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, "/api/chat/history/"+durableID+"/edit-status", bytes.NewReader(payload))
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to patch edit status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeFailure(resp)
	}
	return nil
}

// ApplyOperations hands a proposal's operations to the application engine.
// Application is idempotent server-side: replaying the same operations
// yields the same document.
func (c *Client) ApplyOperations(ctx context.Context, ops []EditOperation) error {
	payload, err := json.Marshal(struct {
		Operations []EditOperation `json:"operations"`
	}{Operations: ops})
	if err != nil {
		return fmt.Errorf("failed to encode operations: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/resume/apply", bytes.NewReader(payload))
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to apply operations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeFailure(resp)
	}
	return nil
}

// FetchResume returns the structured résumé document used as command
// context. The document is opaque to this client; parsing and rendering are
// server concerns.
func (c *Client) FetchResume(ctx context.Context) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/resume", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resume: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeFailure(resp)
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume: %w", err)
	}
	slog.Debug("fetched resume document", "bytes", len(doc))
	return doc, nil
}
