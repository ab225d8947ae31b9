package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisory-trading-bot/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, "SIM", c.Mode)
	assert.Equal(t, 30*time.Second, c.PollInterval())
	assert.Equal(t, 5*time.Minute, c.Cooldown())
	assert.InDelta(t, 0.20, c.Throttle.AdvisoryQuota, 1e-9)
	assert.Equal(t, 3, c.Risk.MaxOpenPositions)
	assert.Len(t, c.Timeframes, len(types.AllTimeframes))
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Market.Symbol, c.Market.Symbol)
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeConfig(t, `
mode: DRY_RUN
poll_seconds: 10
timezone: UTC
market:
  symbol: INFY
  instrument_token: 408065
risk:
  max_open_positions: 5
throttle:
  cooldown_minutes: 2
timeframes:
  short:
    interval: 10m
    rsi: 9
    ema_short: 5
    ema_long: 13
    macd_fast: 5
    macd_slow: 13
    macd_signal: 4
    bollinger: 10
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "DRY_RUN", c.Mode)
	assert.Equal(t, 10*time.Second, c.PollInterval())
	assert.Equal(t, "INFY", c.Market.Symbol)
	assert.Equal(t, 408065, c.Market.InstrumentToken)
	assert.Equal(t, 5, c.Risk.MaxOpenPositions)
	assert.Equal(t, 2*time.Minute, c.Cooldown())
	assert.Equal(t, 10*time.Minute, c.Timeframes[types.TFShort].Interval)
	assert.Equal(t, 9, c.Timeframes[types.TFShort].RSI)
	// Unlisted timeframes keep their defaults.
	assert.Equal(t, time.Hour, c.Timeframes[types.TFMedium].Interval)
	// Unset sections keep their defaults too.
	assert.InDelta(t, 0.08, c.Risk.TakeProfitPct, 1e-9)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("BOT_MODE", "LIVE")
	t.Setenv("BOT_POLL_SECONDS", "45")
	t.Setenv("BOT_SERVER_ADDR", ":9090")

	c, err := LoadConfig(writeConfig(t, "mode: SIM\n"))
	require.NoError(t, err)
	assert.Equal(t, "LIVE", c.Mode)
	assert.Equal(t, 45, c.PollSeconds)
	assert.Equal(t, ":9090", c.Server.Addr)
}

func TestLoadConfigBadEnv(t *testing.T) {
	t.Setenv("BOT_POLL_SECONDS", "soon")

	_, err := LoadConfig(writeConfig(t, ""))
	assert.ErrorContains(t, err, "BOT_POLL_SECONDS")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "mode: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad mode", func(c *Config) { c.Mode = "PAPER" }, "invalid mode"},
		{"negative poll", func(c *Config) { c.PollSeconds = -1 }, "poll_seconds"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"size above one", func(c *Config) { c.Risk.PositionSizePct = 1.5 }, "position_size_pct"},
		{"zero stop loss", func(c *Config) { c.Risk.StopLossPct = 0 }, "stop_loss_pct"},
		{"no positions", func(c *Config) { c.Risk.MaxOpenPositions = 0 }, "max_open_positions"},
		{"negative cooldown", func(c *Config) { c.Throttle.CooldownMinutes = -1 }, "cooldown_minutes"},
		{"quota above one", func(c *Config) { c.Throttle.AdvisoryQuota = 1.2 }, "advisory_quota"},
		{"unknown timeframe", func(c *Config) { c.Timeframes["weekly"] = c.Timeframes[types.TFShort] }, "unknown timeframe"},
		{"incomplete periods", func(c *Config) {
			p := c.Timeframes[types.TFShort]
			p.EMALong = 0
			c.Timeframes[types.TFShort] = p
		}, "timeframes.short"},
		{"bad provider", func(c *Config) { c.Advisor.Provider = "gemini" }, "advisor.provider"},
		{"scrape without url", func(c *Config) { c.News.Source = "scrape" }, "news.url"},
		{"bad news source", func(c *Config) { c.News.Source = "rss" }, "news.source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			tt.mutate(c)
			assert.ErrorContains(t, c.Validate(), tt.errMsg)
		})
	}
}
