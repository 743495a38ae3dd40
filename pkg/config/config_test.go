package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.StepTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DRAG_STORE", "redis")
	t.Setenv("DRAG_REDIS_ADDR", "redis:6380")
	t.Setenv("DRAG_REDIS_DB", "2")
	t.Setenv("DRAG_WORDS_RPS", "2.5")
	t.Setenv("DRAG_STEP_TIMEOUT_SECONDS", "5")
	t.Setenv("DRAG_LOBBY_TIMEOUT_SECONDS", "nope")
	t.Setenv("DRAG_HISTORY_URL", "memory://")
	t.Setenv("DRAG_HISTORY_ALLOW_ANONYMOUS", "true")

	cfg := Load()
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "redis:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 2.5, cfg.WordsRPS)
	assert.Equal(t, 5*time.Second, cfg.StepTimeout)
	assert.Equal(t, Default().LobbyTimeout, cfg.LobbyTimeout)
	assert.Equal(t, "memory://", cfg.HistoryURL)
	assert.True(t, cfg.HistoryAllowAnonymous)
}

func TestLoadIgnoresUnknownStore(t *testing.T) {
	t.Setenv("DRAG_STORE", "etcd")
	assert.Equal(t, StoreMemory, Load().Store)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DRAG_FIRESTORE_COLLECTION=dotenv-games\nDRAG_REDIS_PASSWORD=from-file\n"), 0o600))
	t.Setenv("DRAG_FIRESTORE_COLLECTION", "")
	os.Unsetenv("DRAG_FIRESTORE_COLLECTION")
	t.Setenv("DRAG_REDIS_PASSWORD", "from-env")
	t.Cleanup(func() { os.Unsetenv("DRAG_FIRESTORE_COLLECTION") })

	require.NoError(t, LoadDotEnv(path))
	cfg := Load()
	assert.Equal(t, "dotenv-games", cfg.FirestoreCollection)
	assert.Equal(t, "from-env", cfg.RedisPassword, "set variables win over the file")
}
