package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("BUDGET_SIGNING_SECRET", "s3cret")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "s3cret", cfg.BudgetSigningSecret)
		assert.Equal(t, BackendSQLite, cfg.StoreBackend)
		assert.Equal(t, AnalyzerKeyword, cfg.NoteAnalyzer)
		assert.Equal(t, 15*time.Minute, cfg.ConfirmationTTL)
		assert.Equal(t, 2*time.Second, cfg.NoteAnalysisDelay)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "local", cfg.DefaultUserID)
		assert.Zero(t, cfg.RandomSeed)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("BUDGET_SIGNING_SECRET", "s3cret")
		t.Setenv("APP_ENV", "production")
		t.Setenv("STORE_BACKEND", "FILE")
		t.Setenv("NOTE_ANALYZER", "groq")
		t.Setenv("GROQ_API_KEY", "groq_key")
		t.Setenv("RANDOM_SEED", "42")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "11, 22")
		t.Setenv("ADMIN_TELEGRAM_ID", "11")
		t.Setenv("CONFIRMATION_TTL", "1h")

		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, BackendFile, cfg.StoreBackend)
		assert.Equal(t, AnalyzerGroq, cfg.NoteAnalyzer)
		assert.Equal(t, "groq_key", cfg.GroqAPIKey)
		assert.Equal(t, uint64(42), cfg.RandomSeed)
		assert.Equal(t, []int64{11, 22}, cfg.TelegramAllowedUserIDs)
		assert.Equal(t, int64(11), cfg.AdminTelegramID)
		assert.Equal(t, time.Hour, cfg.ConfirmationTTL)
	})

	t.Run("MissingSecret", func(t *testing.T) {
		t.Setenv("BUDGET_SIGNING_SECRET", "")
		_, err := NewFromEnv()
		assert.EqualError(t, err, "BUDGET_SIGNING_SECRET environment variable not set")
	})

	t.Run("GeminiNeedsKey", func(t *testing.T) {
		t.Setenv("BUDGET_SIGNING_SECRET", "s3cret")
		t.Setenv("NOTE_ANALYZER", "gemini")
		t.Setenv("GEMINI_API_KEY", "")
		_, err := NewFromEnv()
		assert.EqualError(t, err, "GEMINI_API_KEY environment variable not set")
	})

	t.Run("Invalid", func(t *testing.T) {
		cases := map[string]string{
			"STORE_BACKEND":             "redis",
			"NOTE_ANALYZER":             "oracle",
			"CONFIRMATION_TTL":          "soon",
			"RANDOM_SEED":               "-1",
			"TELEGRAM_ALLOWED_USER_IDS": "1,abc",
		}
		for key, value := range cases {
			t.Run(key, func(t *testing.T) {
				t.Setenv("BUDGET_SIGNING_SECRET", "s3cret")
				t.Setenv(key, value)
				_, err := NewFromEnv()
				assert.Error(t, err)
			})
		}
	})
}
