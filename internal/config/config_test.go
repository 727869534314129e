package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_EXPIRATION", "")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.AppEnv)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTCookieExpires)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, 10, cfg.LoginRateLimitMax)
	assert.Equal(t, 15*time.Minute, cfg.LoginRateLimitWindow)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_EXPIRATION", "2h")
	t.Setenv("JWT_COOKIE_EXPIRE_DAYS", "3")
	t.Setenv("APP_TIMEZONE", "Europe/Berlin")
	t.Setenv("DB_NAME", "mood_test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, 72*time.Hour, cfg.JWTCookieExpires)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone.String())
	assert.Contains(t, cfg.DSN(), "dbname=mood_test")
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_EXPIRATION", "seven days")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}
