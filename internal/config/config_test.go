package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithMemoryStore(t *testing.T) {
	t.Setenv("DB_TYPE", "memory")
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, "devflow", cfg.Database.Name)
	assert.Equal(t, devJWTSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_TYPE", "mongodb")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "devflow_test")
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("RECORDER_RETRIES", "5")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Database.URI)
	assert.Equal(t, "devflow_test", cfg.Database.Name)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 5, cfg.RecorderRetries)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("mongodb without uri", func(t *testing.T) {
		t.Setenv("DB_TYPE", "mongodb")
		t.Setenv("MONGODB_URI", "")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "MONGODB_URI")
	})
	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("DB_TYPE", "postgres")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "unsupported DB_TYPE")
	})
	t.Run("production without secret", func(t *testing.T) {
		t.Setenv("DB_TYPE", "memory")
		t.Setenv("APP_ENV", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("DB_TYPE", "memory")
		t.Setenv("CACHE_TTL", "soon")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "CACHE_TTL")
	})
}
