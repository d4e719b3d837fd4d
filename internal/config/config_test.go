package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("EVENTS_AMQP_URL", "")
	t.Setenv("EVENTS_PUBLISH_TIMEOUT_MS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Empty(t, cfg.Postgres.DSN)
	assert.True(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.Empty(t, cfg.Events.AMQPURL)
	assert.Equal(t, "dorm.tickets", cfg.Events.Exchange)
	assert.Equal(t, time.Second, cfg.Events.PublishTimeout())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("POSTGRES_DSN", "postgres://dorm@localhost/dorm")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_TTL_SECONDS", "5")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("EVENTS_PUBLISH_TIMEOUT_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.App.Addr())
	assert.Equal(t, "postgres://dorm@localhost/dorm", cfg.Postgres.DSN)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL())
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.Events.PublishTimeout())
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvAsInt_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("POSTGRES_MAX_CONNS", "lots")
	assert.Equal(t, 10, getEnvAsInt("POSTGRES_MAX_CONNS", 10))
}
