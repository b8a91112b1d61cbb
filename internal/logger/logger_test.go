package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("Levels", func(t *testing.T) {
		l, err := New(Config{Level: "warn", Format: "json"})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("DefaultsToInfo", func(t *testing.T) {
		l, err := New(Config{})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := New(Config{Level: "loud"})
		assert.Error(t, err)
	})
}
