package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	koanftoml "github.com/knadh/koanf/parsers/toml/v2"
	koanfenv "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

// Config represents the application configuration structure
type Config struct {
	Service ServiceConfig `koanf:"service"`
	Storage StorageConfig `koanf:"storage"`
	Logging LoggingConfig `koanf:"logging"`
	UI      UIConfig      `koanf:"ui"`
	History HistoryConfig `koanf:"history"`
	Job     JobConfig     `koanf:"job"`
}

// ServiceConfig holds the résumé service connection settings
type ServiceConfig struct {
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// StorageConfig holds local storage configuration
type StorageConfig struct {
	DatabasePath string `koanf:"database_path"` // Path to SQLite database
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// UIConfig holds UI-specific configuration
type UIConfig struct {
	MarkdownEnabled bool `koanf:"markdown_enabled"`
}

// HistoryConfig holds local prompt-recall history configuration
type HistoryConfig struct {
	Enabled    bool `koanf:"enabled"`
	MaxEntries int  `koanf:"max_entries"`
	MaxAgeDays int  `koanf:"max_age_days"`
}

// JobConfig holds optional job/company context sent with every command
type JobConfig struct {
	Title       string `koanf:"title"`
	Company     string `koanf:"company"`
	Description string `koanf:"description"`
}

// defaultConfig returns the configuration populated with sensible defaults.
func defaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".local", "share", "vitae", "vitae.sqlite")

	return Config{
		Service: ServiceConfig{
			BaseURL:        "http://localhost:3000",
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			DatabasePath: dbPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 1000,
			MaxAgeDays: 90,
		},
	}
}

// LoadConfig loads configuration from multiple sources
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Failed to get user home directory: %v", err)
	} else {
		userConfigPath := filepath.Join(homeDir, ".config", "vitae", "conf.toml")
		if err := k.Load(file.Provider(userConfigPath), koanftoml.Parser()); err != nil {
			log.Printf("Failed to load user config from %s: %v", userConfigPath, err)
		}
	}

	projectConfigPath := ".vitae.toml"
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := k.Load(file.Provider(projectConfigPath), koanftoml.Parser()); err != nil {
			log.Printf("Failed to load project config from %s: %v", projectConfigPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Unable to stat project config at %s: %v", projectConfigPath, err)
	}

	// Environment variables with prefix "VITAE_" override config values,
	// e.g. VITAE_SERVICE_BASE_URL overrides service.base_url
	if err := k.Load(koanfenv.Provider(".", koanfenv.Opt{
		Prefix: "VITAE_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, "VITAE_")), "_", ".")
			return key, value
		},
	}), nil); err != nil {
		log.Printf("Failed to load environment variables: %v", err)
	}

	// The API key can come from the keyring when the config carries none
	if k.String("service.api_key") == "" {
		if key, err := GetAPIKeyFromKeyring(); err == nil && key != "" {
			if err := k.Set("service.api_key", key); err != nil {
				log.Printf("Failed to set API key from keyring: %v", err)
			}
		}
	}

	config := defaultConfig()
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// SaveAPIKey stores the service API key, preferring the OS keyring. Only the
// auth method lands in the config file; the key itself does not.
func SaveAPIKey(apiKey string) error {
	if err := SaveAPIKeyToKeyring(apiKey); err != nil {
		log.Printf("Warning: Failed to save API key to keyring: %v", err)
		return writeUserConfigKey("service", "api_key", apiKey)
	}
	return writeUserConfigKey("service", "auth_method", "keyring")
}

// writeUserConfigKey sets one key in the user-level config file.
func writeUserConfigKey(section, key, value string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home dir: %w", err)
	}
	cfgDir := filepath.Join(homeDir, ".config", "vitae")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	cfgPath := filepath.Join(cfgDir, "conf.toml")

	k := koanf.New(".")
	if _, err := os.Stat(cfgPath); err == nil {
		if err := k.Load(file.Provider(cfgPath), koanftoml.Parser()); err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
	}

	if err := k.Set(section+"."+key, value); err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	data, err := k.Marshal(koanftoml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(cfgPath, data, 0o600)
}
