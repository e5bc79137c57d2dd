package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"API_PORT", "DATABASE_DRIVER", "REDIS_URL", "CORS_ALLOWED_ORIGINS", "WHATSAPP_POLL_INTERVAL_SECONDS", "SEED_DEMO_DATA"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 5, cfg.WhatsAppPollIntervalSeconds)
	assert.Equal(t, 3, cfg.WhatsAppMockConnectAfter)
	assert.Equal(t, 120, cfg.DraftTTLMinutes)
	assert.Equal(t, "BR", cfg.DefaultPhoneRegion)
	assert.False(t, cfg.SeedDemoData)
	assert.NotEmpty(t, cfg.CORSAllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("API_PORT", "9000")
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", "file:zapvenda.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.zapvenda.com.br, ,https://zapvenda.com.br")
	t.Setenv("WHATSAPP_POLL_INTERVAL_SECONDS", "10")
	t.Setenv("SEED_DEMO_DATA", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.APIPort)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "file:zapvenda.db", cfg.DatabaseURL)
	assert.Equal(t, []string{"https://app.zapvenda.com.br", "https://zapvenda.com.br"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 10, cfg.WhatsAppPollIntervalSeconds)
	assert.True(t, cfg.SeedDemoData)
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("ZV_TEST_INT", "five")
	t.Setenv("ZV_TEST_BOOL", "maybe")
	t.Setenv("ZV_TEST_SLICE", " , ")

	assert.Equal(t, 7, getEnvAsInt("ZV_TEST_INT", 7))
	assert.True(t, getEnvAsBool("ZV_TEST_BOOL", true))
	assert.Equal(t, []string{"x"}, getEnvAsSlice("ZV_TEST_SLICE", []string{"x"}))
}
