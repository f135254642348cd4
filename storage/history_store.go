package storage

import (
	"fmt"
	"time"
)

// HistoryStore handles prompt-recall history persistence
type HistoryStore struct {
	db  *DB
	cfg *HistoryConfig
}

// NewHistoryStore creates a new history store
func NewHistoryStore(db *DB, cfg *HistoryConfig) *HistoryStore {
	return &HistoryStore{
		db:  db,
		cfg: cfg,
	}
}

// HistoryEntry represents a single recalled prompt
type HistoryEntry struct {
	Content   string    // Prompt text
	Timestamp time.Time // When it was entered
}

// AppendPrompt adds a prompt to the history for a given profile
func (h *HistoryStore) AppendPrompt(profile, prompt string) error {
	_, err := h.db.conn.Exec(`
		INSERT INTO prompt_history (profile, prompt, timestamp)
		VALUES (?, ?, ?)`,
		profile,
		prompt,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append prompt: %w", err)
	}

	// Apply limit if configured
	if h.cfg != nil && h.cfg.MaxEntries > 0 {
		_, err = h.db.conn.Exec(`
			DELETE FROM prompt_history
			WHERE profile = ?
			AND id NOT IN (
				SELECT id FROM prompt_history
				WHERE profile = ?
				ORDER BY timestamp DESC, id DESC
				LIMIT ?
			)`,
			profile, profile, h.cfg.MaxEntries,
		)
		if err != nil {
			return fmt.Errorf("failed to apply prompt history limit: %w", err)
		}
	}

	return nil
}

// LoadPrompts loads prompt history for a given profile in chronological
// order (oldest first)
func (h *HistoryStore) LoadPrompts(profile string, limit int) ([]HistoryEntry, error) {
	query := `
		SELECT prompt, timestamp
		FROM prompt_history
		WHERE profile = ?
		ORDER BY timestamp ASC, id ASC`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := h.db.conn.Query(query, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var prompt string
		var timestamp int64

		if err := rows.Scan(&prompt, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}

		entries = append(entries, HistoryEntry{
			Content:   prompt,
			Timestamp: time.Unix(timestamp, 0),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}

	return entries, nil
}

// ClearPrompts clears all prompt history for a given profile
func (h *HistoryStore) ClearPrompts(profile string) error {
	_, err := h.db.conn.Exec("DELETE FROM prompt_history WHERE profile = ?", profile)
	if err != nil {
		return fmt.Errorf("failed to clear prompt history: %w", err)
	}
	return nil
}

// CleanupOldHistory removes history entries older than configured age
func (h *HistoryStore) CleanupOldHistory() error {
	if h.cfg == nil || h.cfg.MaxAgeDays <= 0 {
		return nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -h.cfg.MaxAgeDays).Unix()

	_, err := h.db.conn.Exec(
		"DELETE FROM prompt_history WHERE timestamp < ?",
		cutoffTime,
	)
	if err != nil {
		return fmt.Errorf("failed to cleanup old prompt history: %w", err)
	}

	return nil
}
