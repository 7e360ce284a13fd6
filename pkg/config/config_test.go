package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.GammaAPIURL)
	assert.Equal(t, "https://data-api.polymarket.com", cfg.DataAPIURL)
	assert.Equal(t, "btc", cfg.MarketTopicKeyword)
	assert.Equal(t, []string{"15", "15m", "15-min"}, cfg.MarketDurationKeywords)
	assert.Equal(t, 200, cfg.MarketFetchLimit)
	assert.Equal(t, 50, cfg.TradesFetchLimit)
	assert.Equal(t, 5*time.Second, cfg.PricePollInterval)
	assert.Equal(t, 30*time.Second, cfg.MarketRefreshInterval)
	assert.Equal(t, "paper", cfg.TradeMode)
	assert.Equal(t, 20, cfg.TradeTargetShares)
	assert.InDelta(t, 0.35, cfg.TradeMaxPrice, 1e-9)
	assert.Equal(t, 0, cfg.TradeMaxSessions)
	assert.Equal(t, "memory", cfg.StorageMode)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PRICE_POLL_INTERVAL", "250ms")
	t.Setenv("MARKET_DURATION_KEYWORDS", "hourly, 1h")
	t.Setenv("TRADE_TARGET_SHARES", "5")
	t.Setenv("TRADE_MODE", "live")
	t.Setenv("STORAGE_MODE", "postgres")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.PricePollInterval)
	assert.Equal(t, []string{"hourly", "1h"}, cfg.MarketDurationKeywords)
	assert.Equal(t, 5, cfg.TradeTargetShares)
	assert.Equal(t, "live", cfg.TradeMode)
	assert.Equal(t, "postgres", cfg.StorageMode)
}

func TestLoadFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TRADE_TARGET_SHARES", "not-a-number")
	t.Setenv("PRICE_POLL_INTERVAL", "garbage")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.TradeTargetShares)
	assert.Equal(t, 5*time.Second, cfg.PricePollInterval)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "ceiling-too-high",
			mutate:  func(c *Config) { c.TradeMaxPrice = 1.0 },
			wantErr: "TRADE_MAX_PRICE",
		},
		{
			name:    "ceiling-zero",
			mutate:  func(c *Config) { c.TradeMaxPrice = 0 },
			wantErr: "TRADE_MAX_PRICE",
		},
		{
			name:    "negative-target",
			mutate:  func(c *Config) { c.TradeTargetShares = -1 },
			wantErr: "TRADE_TARGET_SHARES",
		},
		{
			name:    "negative-session-limit",
			mutate:  func(c *Config) { c.TradeMaxSessions = -5 },
			wantErr: "TRADE_MAX_SESSIONS",
		},
		{
			name:    "unknown-mode",
			mutate:  func(c *Config) { c.TradeMode = "dry-run" },
			wantErr: "TRADE_MODE",
		},
		{
			name:    "unknown-storage",
			mutate:  func(c *Config) { c.StorageMode = "sqlite" },
			wantErr: "STORAGE_MODE",
		},
		{
			name:    "zero-poll-interval",
			mutate:  func(c *Config) { c.PricePollInterval = 0 },
			wantErr: "PRICE_POLL_INTERVAL",
		},
		{
			name:    "empty-topic",
			mutate:  func(c *Config) { c.MarketTopicKeyword = "" },
			wantErr: "MARKET_TOPIC_KEYWORD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
