package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, cfg *HistoryConfig) *HistoryStore {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHistoryStore(db, cfg)
}

func TestAppendAndLoadPrompts(t *testing.T) {
	store := newTestStore(t, &HistoryConfig{Enabled: true, MaxEntries: 100})

	require.NoError(t, store.AppendPrompt("/home/u/proj", "Add Python to my skills"))
	require.NoError(t, store.AppendPrompt("/home/u/proj", "Shorten my summary"))
	require.NoError(t, store.AppendPrompt("/home/u/other", "unrelated"))

	entries, err := store.LoadPrompts("/home/u/proj", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Add Python to my skills", entries[0].Content)
	assert.Equal(t, "Shorten my summary", entries[1].Content)
}

func TestPromptLimitTrimsOldest(t *testing.T) {
	store := newTestStore(t, &HistoryConfig{Enabled: true, MaxEntries: 3})

	for _, p := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, store.AppendPrompt("p", p))
	}

	entries, err := store.LoadPrompts("p", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "three", entries[0].Content)
	assert.Equal(t, "five", entries[2].Content)
}

func TestClearPrompts(t *testing.T) {
	store := newTestStore(t, &HistoryConfig{Enabled: true})

	require.NoError(t, store.AppendPrompt("p", "something"))
	require.NoError(t, store.ClearPrompts("p"))

	entries, err := store.LoadPrompts("p", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadPromptsHonorsLimit(t *testing.T) {
	store := newTestStore(t, &HistoryConfig{Enabled: true})

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, store.AppendPrompt("p", p))
	}

	entries, err := store.LoadPrompts("p", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCleanupOldHistoryNoopWithoutMaxAge(t *testing.T) {
	store := newTestStore(t, &HistoryConfig{Enabled: true})

	require.NoError(t, store.AppendPrompt("p", "keep me"))
	require.NoError(t, store.CleanupOldHistory())

	entries, err := store.LoadPrompts("p", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
