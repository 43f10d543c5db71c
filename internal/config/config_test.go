package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "PORT", "JWT_SECRET", "JWT_EXPIRY", "CART_PERSIST_DELAY", "CART_PERSIST_MAX_DELAY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":4000", cfg.HTTPAddr)
	assert.Equal(t, "development-secret", cfg.JWTSecret)
	assert.Equal(t, int64(7*24*3600), cfg.JWTExpirySeconds)
	assert.Equal(t, 120*time.Millisecond, cfg.CartPersistDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.CartPersistMaxDelay)
	assert.Equal(t, "+20", cfg.PhoneCountryCode)
	assert.False(t, cfg.ObjectStoreEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "8080")
	t.Setenv("CART_PERSIST_DELAY", "300ms")
	t.Setenv("CART_PERSIST_MAX_DELAY", "100ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://tux.example , ,https://order.tux.example")
	t.Setenv("JWT_EXPIRY", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 300*time.Millisecond, cfg.CartPersistDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.CartPersistMaxDelay)
	assert.Equal(t, []string{"https://tux.example", "https://order.tux.example"}, cfg.CorsAllowedOrigins)
	assert.Equal(t, int64(7*24*3600), cfg.JWTExpirySeconds)
}
