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

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultStoreBackend, cfg.StoreBackend)
	assert.Equal(t, DefaultContractsDir, cfg.ContractsDir)
	assert.Equal(t, DefaultLockWaitMS*time.Millisecond, cfg.LockWait)
	assert.Equal(t, float64(DefaultStartBalance), cfg.StartingBalance)
	assert.Equal(t, DefaultNetThreshold, cfg.NetworkThreatThreshold)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ENV", "production")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LOCK_WAIT_MS", "250")
	t.Setenv("NETWORK_THREAT_THRESHOLD", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.LockWait)
	assert.Equal(t, 0.5, cfg.NetworkThreatThreshold)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("LOCK_WAIT_MS", "not-a-number")
	t.Setenv("NETWORK_THREAT_THRESHOLD", "hot")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultLockWaitMS*time.Millisecond, cfg.LockWait)
	assert.Equal(t, DefaultNetThreshold, cfg.NetworkThreatThreshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.StoreBackend = "postgres" }},
		{"zero lock wait", func(c *Config) { c.LockWait = 0 }},
		{"threshold above 1", func(c *Config) { c.NetworkThreatThreshold = 1.2 }},
		{"zero rate limit", func(c *Config) { c.RateLimitRPM = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
