// Package config assembles runtime configuration from environment
// variables, with a .env file as optional local override.
//
// Environment Variables:
// System:
// - LOG_LEVEL: debug|info|warn|error (default: info)
// - LEDGER_DB_PATH: sqlite file for ledger persistence (default: "" = in-memory only)
// - HTTP_ADDR: operator API listen address (default: :8080)
//
// Client:
// - CLIENT_POLL_INTERVAL_MS: initial result poll interval (default: 500)
// - CLIENT_POLL_MAX_INTERVAL_MS: backoff ceiling for result polls (default: 2000)
// - CLIENT_BUDGET_MS: total wait budget for one classification (default: 60000)
//
// Worker:
// - WORKER_IDLE_MS: sleep between scan cycles with no work (default: 1000)
// - RECLAIM_CRON: fee reclamation schedule (default: @hourly)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	System SystemConfig `json:"system"`
	Client ClientConfig `json:"client"`
	Worker WorkerConfig `json:"worker"`
}

type SystemConfig struct {
	LogLevel     string `json:"log_level"`
	LedgerDBPath string `json:"ledger_db_path"`
	HTTPAddr     string `json:"http_addr"`
}

// ClientConfig tunes the async proxy's polling loop.
type ClientConfig struct {
	PollInterval    time.Duration `json:"poll_interval"`
	PollMaxInterval time.Duration `json:"poll_max_interval"`
	Budget          time.Duration `json:"budget"`
}

// WorkerConfig tunes the oracle scan loop and the fee reclamation schedule.
type WorkerConfig struct {
	IdleDelay   time.Duration `json:"idle_delay"`
	ReclaimCron string        `json:"reclaim_cron"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	config := &Config{
		System: SystemConfig{
			LogLevel:     getEnvString("LOG_LEVEL", "info"),
			LedgerDBPath: getEnvString("LEDGER_DB_PATH", ""),
			HTTPAddr:     getEnvString("HTTP_ADDR", ":8080"),
		},
		Client: ClientConfig{
			PollInterval:    getEnvMillis("CLIENT_POLL_INTERVAL_MS", 500),
			PollMaxInterval: getEnvMillis("CLIENT_POLL_MAX_INTERVAL_MS", 2000),
			Budget:          getEnvMillis("CLIENT_BUDGET_MS", 60000),
		},
		Worker: WorkerConfig{
			IdleDelay:   getEnvMillis("WORKER_IDLE_MS", 1000),
			ReclaimCron: getEnvString("RECLAIM_CRON", "@hourly"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Client.PollInterval <= 0 {
		return fmt.Errorf("CLIENT_POLL_INTERVAL_MS must be positive")
	}
	if c.Client.PollMaxInterval < c.Client.PollInterval {
		return fmt.Errorf("CLIENT_POLL_MAX_INTERVAL_MS must be >= CLIENT_POLL_INTERVAL_MS")
	}
	if c.Client.Budget <= 0 {
		return fmt.Errorf("CLIENT_BUDGET_MS must be positive")
	}
	if c.Worker.IdleDelay <= 0 {
		return fmt.Errorf("WORKER_IDLE_MS must be positive")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvMillis gets a duration configured as integer milliseconds
func getEnvMillis(key string, defaultValue int) time.Duration {
	ms := defaultValue
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			ms = intValue
		}
	}
	return time.Duration(ms) * time.Millisecond
}
