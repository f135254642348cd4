package storage

import "time"

// Schema version for migrations
const SchemaVersion = 1

// HistoryConfig holds prompt-recall history configuration
type HistoryConfig struct {
	Enabled    bool
	MaxEntries int
	MaxAgeDays int
}

// PromptRecord maps directly to the prompt_history table
type PromptRecord struct {
	ID        int64     `db:"id"`
	Profile   string    `db:"profile"`
	Prompt    string    `db:"prompt"`
	Timestamp time.Time `db:"timestamp"`
}

// SchemaVersionRecord tracks schema migrations
type SchemaVersionRecord struct {
	Version   int       `db:"version"`
	AppliedAt time.Time `db:"applied_at"`
}

// Schema is the SQL DDL for creating all tables
const Schema = `
-- Prompt history table: commands the user typed, recalled with up-arrow
CREATE TABLE IF NOT EXISTS prompt_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    profile TEXT NOT NULL,
    prompt TEXT NOT NULL,
    timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prompt_history_profile ON prompt_history(profile, timestamp DESC);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (1, unixepoch());
`
