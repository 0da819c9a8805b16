package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcamposv/metrica/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.HTTPTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.Retry.BaseBackoff)
	// TTL por fuente, no una constante global
	assert.Equal(t, 15*time.Minute, cfg.Email.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Sales.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Ads.TTL)
	assert.Empty(t, cfg.Cache.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("METRICA_SERVER_PORT", "9090")
	t.Setenv("METRICA_EMAIL_API_KEY", "sekret")
	t.Setenv("METRICA_EMAIL_TTL", "30m")
	t.Setenv("METRICA_ADS_ACCESS_TOKEN", "tok")
	t.Setenv("METRICA_CACHE_PATH", "/tmp/metrica-cache")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sekret", cfg.Email.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.Email.TTL)
	assert.Equal(t, "tok", cfg.Ads.AccessToken)
	assert.Equal(t, "/tmp/metrica-cache", cfg.Cache.Path)
}

func TestLoadRejectsBadRetry(t *testing.T) {
	t.Setenv("METRICA_RETRY_MAX_RETRIES", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestTTLs(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	ttls := cfg.TTLs()
	assert.Equal(t, cfg.Email.TTL, ttls[models.SourceEmail])
	assert.Equal(t, cfg.Sales.TTL, ttls[models.SourceSales])
	assert.Equal(t, cfg.Ads.TTL, ttls[models.SourceAds])
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "debug"}}
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	cfg.Log.Level = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
	cfg.Log.Level = ""
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
