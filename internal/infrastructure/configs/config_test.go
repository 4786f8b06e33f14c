package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	require.Equal(t, uint16(8080), cfg.HTTP.Port)
	require.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)
	require.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)

	require.Equal(t, 10, cfg.RateLimiter.MaxRatePerSecond)
	require.Equal(t, 20, cfg.RateLimiter.MaxBurst)

	require.Equal(t, "admin", cfg.Audit.Actor)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("AUDIT_ACTOR", "batch-importer")
	t.Setenv("RATE_LIMIT_MAX_BURST", "50")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, uint16(9090), cfg.HTTP.Port)
	require.Equal(t, "batch-importer", cfg.Audit.Actor)
	require.Equal(t, 50, cfg.RateLimiter.MaxBurst)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("http:\n  port: 3000\naudit:\n  actor: scheduler\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, uint16(3000), cfg.HTTP.Port)
	require.Equal(t, "scheduler", cfg.Audit.Actor)

	// Untouched sections still get defaults.
	require.Equal(t, 10, cfg.RateLimiter.MaxRatePerSecond)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}
