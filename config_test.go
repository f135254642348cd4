package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

// isolateConfig points every config source at scratch locations so tests
// never read the developer's real files or keyring.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("VITAE_API_KEY", "")
	gokeyring.MockInit()
	require.NoError(t, DeleteAPIKeyFromKeyring())
}

func writeUserConfig(t *testing.T, contents string) {
	t.Helper()
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	dir := filepath.Join(home, ".config", "vitae")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf.toml"), []byte(contents), 0o600))
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, "http://localhost:3000", cfg.Service.BaseURL)
	assert.Equal(t, 30, cfg.Service.TimeoutSeconds)
	assert.Empty(t, cfg.Service.APIKey)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 1000, cfg.History.MaxEntries)
	assert.Equal(t, 90, cfg.History.MaxAgeDays)
	assert.Contains(t, cfg.Storage.DatabasePath, filepath.Join("vitae", "vitae.sqlite"))
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	isolateConfig(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.Service.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Service.APIKey)
}

func TestLoadConfigUserFileOverridesDefaults(t *testing.T) {
	isolateConfig(t)
	writeUserConfig(t, `
[service]
base_url = "https://resume.example.com"
timeout_seconds = 5

[ui]
markdown_enabled = true
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://resume.example.com", cfg.Service.BaseURL)
	assert.Equal(t, 5, cfg.Service.TimeoutSeconds)
	assert.True(t, cfg.UI.MarkdownEnabled)
	// untouched sections keep their defaults
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigProjectFileOverridesUserFile(t *testing.T) {
	isolateConfig(t)
	writeUserConfig(t, "[logging]\nlevel = \"debug\"\n")
	require.NoError(t, os.WriteFile(".vitae.toml", []byte("[logging]\nlevel = \"warn\"\n"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigEnvOverridesFiles(t *testing.T) {
	isolateConfig(t)
	writeUserConfig(t, "[logging]\nlevel = \"debug\"\n\n[job]\ntitle = \"Backend Engineer\"\n")
	t.Setenv("VITAE_LOGGING_LEVEL", "error")
	t.Setenv("VITAE_JOB_COMPANY", "Acme")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "Acme", cfg.Job.Company)
	assert.Equal(t, "Backend Engineer", cfg.Job.Title)
}

func TestLoadConfigTakesAPIKeyFromKeyring(t *testing.T) {
	isolateConfig(t)
	require.NoError(t, SaveAPIKeyToKeyring("stored-key"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "stored-key", cfg.Service.APIKey)
}

func TestSaveAPIKeyPrefersKeyring(t *testing.T) {
	isolateConfig(t)

	require.NoError(t, SaveAPIKey("secret-key"))

	key, err := GetAPIKeyFromKeyring()
	require.NoError(t, err)
	assert.Equal(t, "secret-key", key)

	// the config file records the auth method, never the key itself
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(home, ".config", "vitae", "conf.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "keyring")
	assert.NotContains(t, string(data), "secret-key")
}
