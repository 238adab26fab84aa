package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "app.db", cfg.DatabasePath)
	assert.Equal(t, "session_id", cfg.SessionCookieName)
	assert.Equal(t, 24*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "bcrypt", cfg.PasswordAlgo)
	assert.Equal(t, devSessionSecret, cfg.SessionSecret)
	assert.False(t, cfg.CookieSecure)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("SESSION_IDLE_TTL", "30m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("PASSWORD_ALGO", "ARGON2ID")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://shop.example.com ,")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "argon2id", cfg.PasswordAlgo)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"http://localhost:5173", "https://shop.example.com"}, cfg.CORSOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":  {"SESSION_IDLE_TTL", "soon"},
		"zero duration": {"SESSION_IDLE_TTL", "0s"},
		"bad cost":      {"BCRYPT_COST", "ten"},
		"bad bool":      {"COOKIE_SECURE", "maybe"},
		"bad algo":      {"PASSWORD_ALGO", "md5"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnv_ReleaseRequiresSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("SESSION_SECRET", "")

	_, err := FromEnv()
	assert.Error(t, err)
}
