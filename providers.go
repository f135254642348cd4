package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vitae-sh/vitae/backend"
	"github.com/vitae-sh/vitae/storage"
	"go.uber.org/fx"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LoggerResult holds the configured logger
type LoggerResult struct {
	fx.Out
	Logger *slog.Logger
}

// ProvideLogger creates and returns a logger instance
func ProvideLogger() (LoggerResult, error) {
	logPath, err := getLogFilePath()
	if err != nil {
		return LoggerResult{}, err
	}

	// Set up lumberjack for log rotation
	logFile := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	logLevel := slog.LevelInfo
	if cli.Debug {
		logLevel = slog.LevelDebug
	}

	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(fileHandler)
	slog.SetDefault(logger)

	return LoggerResult{Logger: logger}, nil
}

// ProvideConfig loads and returns the application configuration
func ProvideConfig(logger *slog.Logger) (*Config, error) {
	logger.Info("loading configuration")
	config, err := LoadConfig()
	if err != nil {
		logger.Warn("using default configuration due to load failure", "error", err)
		defaults := defaultConfig()
		config = &defaults
	}
	logger.Info("configuration loaded", "service", config.Service.BaseURL)
	return config, nil
}

// StorageParams holds parameters for storage initialization
type StorageParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *Config
	Logger    *slog.Logger
}

// ProvideStorage initializes the SQLite database for local history. A storage
// failure degrades to a session without prompt recall rather than failing
// startup.
func ProvideStorage(params StorageParams) *storage.DB {
	if !params.Config.History.Enabled {
		return nil
	}

	db, err := storage.InitDB(params.Config.Storage.DatabasePath)
	if err != nil {
		params.Logger.Warn("failed to initialize storage, prompt recall disabled", "error", err)
		return nil
	}

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("closing storage")
			return db.Close()
		},
	})

	return db
}

// ProvideHistoryStore creates the prompt-recall history store
func ProvideHistoryStore(db *storage.DB, config *Config, logger *slog.Logger) *storage.HistoryStore {
	if db == nil {
		return nil
	}

	store := storage.NewHistoryStore(db, &storage.HistoryConfig{
		Enabled:    config.History.Enabled,
		MaxEntries: config.History.MaxEntries,
		MaxAgeDays: config.History.MaxAgeDays,
	})

	go func() {
		if err := store.CleanupOldHistory(); err != nil {
			logger.Warn("failed to clean up old prompt history", "error", err)
		}
	}()

	return store
}

// ProvideClient creates the résumé service client
func ProvideClient(config *Config, logger *slog.Logger) *backend.Client {
	timeout := time.Duration(config.Service.TimeoutSeconds) * time.Second
	logger.Info("creating service client", "base_url", config.Service.BaseURL)
	return backend.NewClient(config.Service.BaseURL, config.Service.APIKey, timeout)
}

// ProvideConversation creates the conversation wired to the running TUI
// program. The program reference is nil until StartTUI runs; notifications
// sent before then are dropped, which only affects startup races.
func ProvideConversation(client *backend.Client) *Conversation {
	return NewConversation(client, func(m any) {
		if program != nil {
			program.Send(m)
		}
	})
}

// TUIModelParams holds parameters for TUI model creation
type TUIModelParams struct {
	fx.In
	Config       *Config
	Conversation *Conversation
	History      *storage.HistoryStore
}

// ProvideTUIModel creates and returns the TUI model
func ProvideTUIModel(params TUIModelParams) *TUIModel {
	return NewTUIModel(params.Config, params.Conversation, params.History, historyProfile())
}

// StartTUI creates the TUI program and publishes the global reference used by
// background goroutines to deliver messages.
func StartTUI(model *TUIModel, logger *slog.Logger) *tea.Program {
	logger.Info("creating TUI program")
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	program = prog
	return prog
}

// historyProfile keys the prompt history. Separate working directories get
// separate recall histories, matching per-project resumes.
func historyProfile() string {
	wd, err := os.Getwd()
	if err != nil {
		return "default"
	}
	return wd
}

func getLogFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	logDir := filepath.Join(homeDir, ".local", "share", "vitae")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}
	return filepath.Join(logDir, "vitae.log"), nil
}
