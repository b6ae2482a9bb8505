// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the database (always absolute)
	Port     int
	DevMode  bool
	LogLevel string

	// Refresh pipeline
	RefreshCronEnabled  bool
	RefreshCronSchedule string
	PriceStaleAfter     time.Duration
	SnapshotHourUTC     int

	// Quote provider
	ProviderBaseURL     string
	ProviderAPIKey      string
	ProviderDailyBudget int
	ProviderTimeout     time.Duration

	// Trading
	OrderRetryBudget int
	WatchlistCap     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RefreshCronEnabled:  getEnvAsBool("REFRESH_CRON_ENABLED", false),
		RefreshCronSchedule: getEnv("REFRESH_CRON_SCHEDULE", "0 * * * *"),
		PriceStaleAfter:     getEnvAsMillis("PRICE_STALE_AFTER_MS", 3600000),
		SnapshotHourUTC:     getEnvAsInt("SNAPSHOT_HOUR_UTC", 21),

		ProviderBaseURL:     getEnv("PROVIDER_BASE_URL", "https://www.alphavantage.co/query"),
		ProviderAPIKey:      getEnv("PROVIDER_API_KEY", ""),
		ProviderDailyBudget: getEnvAsInt("PROVIDER_DAILY_BUDGET", 25),
		ProviderTimeout:     getEnvAsMillis("PROVIDER_TIMEOUT_MS", 20000),

		OrderRetryBudget: getEnvAsInt("ORDER_RETRY_BUDGET", 3),
		WatchlistCap:     getEnvAsInt("WATCHLIST_CAP", 20),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the path of the application database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "stockpilot.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.ProviderDailyBudget < 0 {
		return fmt.Errorf("PROVIDER_DAILY_BUDGET must not be negative")
	}
	if c.OrderRetryBudget < 0 {
		return fmt.Errorf("ORDER_RETRY_BUDGET must not be negative")
	}
	if c.WatchlistCap < 1 {
		return fmt.Errorf("WATCHLIST_CAP must be at least 1")
	}
	if c.SnapshotHourUTC < 0 || c.SnapshotHourUTC > 23 {
		return fmt.Errorf("SNAPSHOT_HOUR_UTC must be between 0 and 23")
	}
	// Note: provider API key optional - refresh runs in skip-only mode
	// when the provider is unreachable.
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultValue)) * time.Millisecond
}
