package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Market feed
	GammaAPIURL            string
	DataAPIURL             string
	MarketTopicKeyword     string
	MarketDurationKeywords []string
	MarketFetchLimit       int
	TradesFetchLimit       int
	FeedFetchTimeout       time.Duration

	// Scheduler
	PricePollInterval     time.Duration
	MarketRefreshInterval time.Duration
	IdlePollInterval      time.Duration

	// Trading defaults (mutable at runtime through the control surface)
	TradeMode         string
	TradeTargetShares int
	TradeMaxPrice     float64
	TradeMaxSessions  int // 0 = unbounded

	// Storage
	StorageMode  string // "postgres" or "memory"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Market feed defaults
		GammaAPIURL:            getEnvOrDefault("GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		DataAPIURL:             getEnvOrDefault("DATA_API_URL", "https://data-api.polymarket.com"),
		MarketTopicKeyword:     getEnvOrDefault("MARKET_TOPIC_KEYWORD", "btc"),
		MarketDurationKeywords: getCSVOrDefault("MARKET_DURATION_KEYWORDS", []string{"15", "15m", "15-min"}),
		MarketFetchLimit:       getIntOrDefault("MARKET_FETCH_LIMIT", 200),
		TradesFetchLimit:       getIntOrDefault("TRADES_FETCH_LIMIT", 50),
		FeedFetchTimeout:       getDurationOrDefault("FEED_FETCH_TIMEOUT", 10*time.Second),

		// Scheduler defaults
		PricePollInterval:     getDurationOrDefault("PRICE_POLL_INTERVAL", 5*time.Second),
		MarketRefreshInterval: getDurationOrDefault("MARKET_REFRESH_INTERVAL", 30*time.Second),
		IdlePollInterval:      getDurationOrDefault("IDLE_POLL_INTERVAL", time.Second),

		// Trading defaults
		TradeMode:         getEnvOrDefault("TRADE_MODE", "paper"),
		TradeTargetShares: getIntOrDefault("TRADE_TARGET_SHARES", 20),
		TradeMaxPrice:     getFloat64OrDefault("TRADE_MAX_PRICE", 0.35),
		TradeMaxSessions:  getIntOrDefault("TRADE_MAX_SESSIONS", 0),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "memory"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "sessionbot"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "sessionbot"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "sessionbot"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.GammaAPIURL == "" {
		return fmt.Errorf("GAMMA_API_URL cannot be empty")
	}

	if c.DataAPIURL == "" {
		return fmt.Errorf("DATA_API_URL cannot be empty")
	}

	if c.MarketTopicKeyword == "" {
		return fmt.Errorf("MARKET_TOPIC_KEYWORD cannot be empty")
	}

	if c.PricePollInterval <= 0 {
		return fmt.Errorf("PRICE_POLL_INTERVAL must be positive, got %s", c.PricePollInterval)
	}

	if c.MarketRefreshInterval <= 0 {
		return fmt.Errorf("MARKET_REFRESH_INTERVAL must be positive, got %s", c.MarketRefreshInterval)
	}

	if c.IdlePollInterval <= 0 {
		return fmt.Errorf("IDLE_POLL_INTERVAL must be positive, got %s", c.IdlePollInterval)
	}

	if c.TradeMaxPrice <= 0 || c.TradeMaxPrice >= 1.0 {
		return fmt.Errorf("TRADE_MAX_PRICE must be between 0 and 1.0, got %f", c.TradeMaxPrice)
	}

	if c.TradeTargetShares <= 0 {
		return fmt.Errorf("TRADE_TARGET_SHARES must be positive, got %d", c.TradeTargetShares)
	}

	if c.TradeMaxSessions < 0 {
		return fmt.Errorf("TRADE_MAX_SESSIONS cannot be negative, got %d", c.TradeMaxSessions)
	}

	if c.TradeMode != "paper" && c.TradeMode != "live" {
		return fmt.Errorf("TRADE_MODE must be 'paper' or 'live', got %q", c.TradeMode)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "memory" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'memory', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getCSVOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return defaultValue
	}

	return out
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
