package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "weighcheck", cfg.StoreNamespace)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.Equal(t, 256, cfg.DraftMax)
	require.Equal(t, 12*time.Hour, cfg.DraftIdleTTL)
	require.False(t, cfg.HasCloudTransport())
	require.False(t, cfg.LabelScanEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)
}

func TestLoadConfigTransports(t *testing.T) {
	t.Setenv("CLOUD_SYNC_ON_SAVE", "true")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("GCS_BUCKET", "dock-backups")
	t.Setenv("CLOUD_SYNC_TRANSPORTS", "drive,relational")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"drive", "relational"}, cfg.CloudSyncTransports)
}

func TestLoadConfigRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLevel(" WARN "))
	require.Equal(t, slog.LevelInfo, parseLevel("loud"))
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_NAMESPACE=dock-7\nRATE_LIMIT_PER_MINUTE=30\n"), 0o600))
	t.Setenv("APP_ENV_FILE", path)
	t.Setenv("RATE_LIMIT_PER_MINUTE", "90")
	t.Cleanup(func() { _ = os.Unsetenv("STORE_NAMESPACE") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "dock-7", cfg.StoreNamespace)
	require.Equal(t, 90, cfg.RateLimitPerMinute)
}

func TestRedisOptionsFeedStoresAndQueue(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("REDIS_ADDR", "redis.dock:6380")
	t.Setenv("REDIS_PASSWORD", "pw")
	t.Setenv("REDIS_DB", "4")
	t.Setenv("PG_MAX_CONNS", "9")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.EqualValues(t, 9, cfg.PGMaxConns)

	opts := cfg.RedisOptions()
	require.Equal(t, "redis.dock:6380", opts.Addr)
	require.Equal(t, 4, opts.DB)

	queue := opts.Asynq()
	require.Equal(t, "pw", queue.Password)
	require.Equal(t, 4, queue.DB)
}
