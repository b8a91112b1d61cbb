package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string

	// Persistence
	StoreBackend string
	DatabasePath string
	StatePath    string
	CatalogPath  string

	// Scheduling
	BudgetSigningSecret string
	ConfirmationTTL     time.Duration
	RandomSeed          uint64
	DefaultUserID       string

	// Priority note analysis
	NoteAnalyzer      string
	NoteAnalysisDelay time.Duration
	GeminiAPIKey      string
	GeminiModel       string
	GroqAPIKey        string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
	Port                   string
}

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Note analyzers.
const (
	AnalyzerKeyword = "keyword"
	AnalyzerGemini  = "gemini"
	AnalyzerGroq    = "groq"
)

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STORE_BACKEND", BackendSQLite)
	v.SetDefault("DATABASE_PATH", "data/db/scheduler.db")
	v.SetDefault("STATE_PATH", "data/state")
	v.SetDefault("CONFIRMATION_TTL", "15m")
	v.SetDefault("NOTE_ANALYZER", AnalyzerKeyword)
	v.SetDefault("NOTE_ANALYSIS_DELAY", "2s")
	v.SetDefault("DEFAULT_USER_ID", "local")
	v.SetDefault("PORT", "8080")

	secret := v.GetString("BUDGET_SIGNING_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("BUDGET_SIGNING_SECRET environment variable not set")
	}

	backend := strings.ToLower(v.GetString("STORE_BACKEND"))
	if backend != BackendSQLite && backend != BackendFile {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendSQLite, BackendFile, backend)
	}

	ttl, err := time.ParseDuration(v.GetString("CONFIRMATION_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIRMATION_TTL: %w", err)
	}
	delay, err := time.ParseDuration(v.GetString("NOTE_ANALYSIS_DELAY"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTE_ANALYSIS_DELAY: %w", err)
	}

	analyzer := strings.ToLower(v.GetString("NOTE_ANALYZER"))
	geminiAPIKey := v.GetString("GEMINI_API_KEY")
	groqAPIKey := v.GetString("GROQ_API_KEY")
	switch analyzer {
	case AnalyzerKeyword:
	case AnalyzerGemini:
		if geminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	case AnalyzerGroq:
		if groqAPIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown NOTE_ANALYZER %q", analyzer)
	}

	var seed uint64
	if s := v.GetString("RANDOM_SEED"); s != "" {
		if seed, err = strconv.ParseUint(s, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
		}
	}

	allowed, err := parseIDs(v.GetString("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}
	var adminID int64
	if s := v.GetString("ADMIN_TELEGRAM_ID"); s != "" {
		if adminID, err = strconv.ParseInt(s, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return &Config{
		AppEnv:                 v.GetString("APP_ENV"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		LogFormat:              v.GetString("LOG_FORMAT"),
		StoreBackend:           backend,
		DatabasePath:           v.GetString("DATABASE_PATH"),
		StatePath:              v.GetString("STATE_PATH"),
		CatalogPath:            v.GetString("CATALOG_PATH"),
		BudgetSigningSecret:    secret,
		ConfirmationTTL:        ttl,
		RandomSeed:             seed,
		DefaultUserID:          v.GetString("DEFAULT_USER_ID"),
		NoteAnalyzer:           analyzer,
		NoteAnalysisDelay:      delay,
		GeminiAPIKey:           geminiAPIKey,
		GeminiModel:            v.GetString("GEMINI_MODEL"),
		GroqAPIKey:             groqAPIKey,
		TelegramBotToken:       v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     v.GetString("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
		Port:                   v.GetString("PORT"),
	}, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
