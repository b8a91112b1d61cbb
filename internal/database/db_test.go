package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scheduler.db")

	db, err := NewDB(path, nil)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"kv_store", "execution_metrics", "generation_runs"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	t.Run("ReopenIsNoChange", func(t *testing.T) {
		again, err := NewDB(path, nil)
		require.NoError(t, err)
		again.Close()
	})
}
