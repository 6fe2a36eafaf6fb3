package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "  secret  ")

	cfg := LoadConfig()

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 6, cfg.Auth.BcryptCost)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, StorageLocal, cfg.Storage.Backend)
	assert.Contains(t, cfg.Storage.CacheControl, "immutable")
	assert.Equal(t, 10, cfg.PubSub.MaxOutstanding)
	assert.Equal(t, MQNone, cfg.MQ.Backend)
	assert.Equal(t, 250, cfg.Avatar.Size)
	assert.False(t, cfg.Avatar.StrictResize)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("AVATAR_STRICT_RESIZE", "yes")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example/")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.UseSSL)
	assert.True(t, cfg.Avatar.StrictResize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "https://api.example", cfg.Avatar.PublicBaseURL)
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "-5s")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.True(t, getEnvBool("X_BOOL", true))
	assert.Equal(t, time.Second, getEnvDuration("X_DUR", time.Second))
}
