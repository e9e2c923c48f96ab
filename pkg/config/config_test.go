package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessExpiry())
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiry())
	assert.Equal(t, 60*time.Second, cfg.Analytics.CacheTTL())
	assert.Equal(t, "memory", cfg.Analytics.CacheBackend)
	assert.Equal(t, "0 8 * * *", cfg.Jobs.ReminderCron)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("JWT_ACCESS_EXPIRY_MINUTES", "5")
	t.Setenv("ANALYTICS_CACHE_BACKEND", "Redis")
	t.Setenv("ANALYTICS_CACHE_TTL_SECONDS", "15")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com,")
	t.Setenv("DATABASE_AUTO_MIGRATE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessExpiry())
	assert.Equal(t, "redis", cfg.Analytics.CacheBackend)
	assert.Equal(t, 15*time.Second, cfg.Analytics.CacheTTL())
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoad_RejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("ANALYTICS_CACHE_BACKEND", "memcached")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "crm", Password: "pw", Name: "crm", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=crm password=pw dbname=crm sslmode=disable", d.DSN())
}
