package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "  s3cret  ")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 2, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 0, cfg.Pagination.DefaultOffset)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
	assert.Equal(t, "recipe.events", cfg.MQ.EventsChannel)
	assert.Empty(t, cfg.Storage.Backend)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("TOKEN_TTL", "86400")
	t.Setenv("PAGINATION_DEFAULT_LIMIT", "5")
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("STORAGE_PUBLIC_URL", "http://cdn.local/recipes/")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.True(t, cfg.Database.UseSSL)
	assert.Equal(t, 86400*time.Second, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.Pagination.DefaultLimit)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, "http://cdn.local/recipes", cfg.Storage.PublicURL)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("D_GO", "90m")
	t.Setenv("D_SECONDS", "30")
	t.Setenv("D_BAD", "soon")

	assert.Equal(t, 90*time.Minute, getEnvDuration("D_GO", time.Second))
	assert.Equal(t, 30*time.Second, getEnvDuration("D_SECONDS", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("D_BAD", time.Second))
	assert.Equal(t, time.Minute, getEnvDuration("D_MISSING", time.Minute))
}

func TestGetEnvInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("N_BAD", "lots")
	assert.Equal(t, 7, getEnvInt("N_BAD", 7))
}
