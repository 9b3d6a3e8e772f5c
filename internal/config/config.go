// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Ledger store
	ContractsDir    string // directory holding the three ledger documents
	StoreBackend    string // "file" or "memory"
	LockWait        time.Duration
	StartingBalance float64 // balance credited to auto-created treasuries

	// Decision engine
	NetworkThreatThreshold float64

	// Security
	RateLimitRPM int

	// Observability
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort         = "8080"
	DefaultEnv          = "development"
	DefaultLogLevel     = "info"
	DefaultContractsDir = "smart_contracts"
	DefaultStoreBackend = "file"
	DefaultLockWaitMS   = 5000
	DefaultRateLimit    = 120
	DefaultStartBalance = 100000
	DefaultNetThreshold = 0.7
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnv("PORT", DefaultPort),
		Env:                    getEnv("ENV", DefaultEnv),
		LogLevel:               getEnv("LOG_LEVEL", DefaultLogLevel),
		ContractsDir:           getEnv("CONTRACTS_DIR", DefaultContractsDir),
		StoreBackend:           getEnv("STORE_BACKEND", DefaultStoreBackend),
		LockWait:               time.Duration(getEnvInt64("LOCK_WAIT_MS", DefaultLockWaitMS)) * time.Millisecond,
		StartingBalance:        getEnvFloat("STARTING_BALANCE", DefaultStartBalance),
		NetworkThreatThreshold: getEnvFloat("NETWORK_THREAT_THRESHOLD", DefaultNetThreshold),
		RateLimitRPM:           int(getEnvInt64("RATE_LIMIT_RPM", DefaultRateLimit)),
		OTLPEndpoint:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "file", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be \"file\" or \"memory\", got %q", c.StoreBackend)
	}
	if c.LockWait <= 0 {
		return fmt.Errorf("LOCK_WAIT_MS must be positive")
	}
	if c.NetworkThreatThreshold < 0 || c.NetworkThreatThreshold > 1 {
		return fmt.Errorf("NETWORK_THREAT_THRESHOLD must be in [0,1]")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
