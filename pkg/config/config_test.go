package config

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
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 10, cfg.Search.DefaultLimit)
	require.False(t, cfg.Kafka.Enabled)
	require.Equal(t, "postings-events", cfg.Kafka.PostingsTopic)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9000
redis:
  enabled: true
  cacheTTL: 5s
search:
  defaultLimit: 20
  maxResults: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("PE_KAFKA_ENABLED", "true")
	t.Setenv("PE_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("PE_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Server.Port)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, 5*time.Second, cfg.Redis.CacheTTL)
	require.Equal(t, 20, cfg.Search.DefaultLimit)
	require.True(t, cfg.Kafka.Enabled)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep their defaults
	require.Equal(t, "localhost", cfg.Postgres.Host)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  defaultLimit: 100\n  maxResults: 10\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnvOverridesIgnoreBadValues(t *testing.T) {
	t.Setenv("PE_SERVER_PORT", "eighty")
	t.Setenv("PE_POSTGRES_ENABLED", "maybe")
	t.Setenv("PE_REDIS_CACHE_TTL", "90s")
	t.Setenv("PE_METRICS_PORT", "9191")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.False(t, cfg.Postgres.Enabled)
	require.Equal(t, 90*time.Second, cfg.Redis.CacheTTL)
	require.Equal(t, 9191, cfg.Metrics.Port)
}
