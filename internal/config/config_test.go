package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "http://localhost:8000", cfg.ExtractorURL)
	assert.Equal(t, 3, cfg.ProbeTimeoutSeconds)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, 1000, cfg.MaxRetainedJobs)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("WORKER_POOL_SIZE", "8")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, 8, cfg.WorkerPoolSize)
	assert.Equal(t, "redis", cfg.StoreBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
}

func TestLoad_YAMLFileUnderEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server_addr: \":7070\"\nworker_pool_size: 2\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WORKER_POOL_SIZE", "16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ServerAddr, "yaml value applies when env is silent")
	assert.Equal(t, 16, cfg.WorkerPoolSize, "env wins over yaml")
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	_, err := Load()
	assert.Error(t, err)
}
