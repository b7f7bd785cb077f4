package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 8080, cfg.HTTPPort)
	require.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)
	require.Equal(t, 3, cfg.Concurrency)
	require.Equal(t, 24*time.Hour, cfg.CleanupMaxAge)
	require.Equal(t, 3, cfg.RetryMaxAttempts)
	require.Equal(t, time.Second, cfg.RetryBaseDelay)
	require.Equal(t, 30*time.Second, cfg.AIRequestTimeout)
	require.Equal(t, ":8080", cfg.Addr())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talentq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_port: 9090
redis_addr: "redis:6379"
concurrency: 8
process_timeout: 2m
retry_max_attempts: 5
ai_model: gpt-4o
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.HTTPPort)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
	require.Equal(t, 8, cfg.Concurrency)
	require.Equal(t, 2*time.Minute, cfg.ProcessTimeout)
	require.Equal(t, 5, cfg.RetryMaxAttempts)
	require.Equal(t, "gpt-4o", cfg.AIModel)

	// env wins over file
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("AI_MODEL", "gpt-4o-mini")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.HTTPPort)
	require.Equal(t, "gpt-4o-mini", cfg.AIModel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/no/such/file.yaml")
	require.Error(t, err)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().HTTPPort, cfg.HTTPPort)
}
