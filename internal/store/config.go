package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"advisory-trading-bot/internal/signal"
	"advisory-trading-bot/internal/ta"
	"advisory-trading-bot/internal/types"
)

type Config struct {
	Mode               string `yaml:"mode"`
	PollSeconds        int    `yaml:"poll_seconds"`
	TickTimeoutSeconds int    `yaml:"tick_timeout_seconds"`
	Timezone           string `yaml:"timezone"`
	TradeLogSize       int    `yaml:"trade_log_size"`
	Market             struct {
		Symbol          string  `yaml:"symbol"`
		Exchange        string  `yaml:"exchange"`
		Product         string  `yaml:"product"`
		InstrumentToken int     `yaml:"instrument_token"`
		SimStartPrice   float64 `yaml:"sim_start_price"`
		SimStartBalance float64 `yaml:"sim_start_balance"`
		SimSeed         int64   `yaml:"sim_seed"`
	} `yaml:"market"`
	Risk struct {
		PositionSizePct  float64 `yaml:"position_size_pct"`
		TakeProfitPct    float64 `yaml:"take_profit_pct"`
		StopLossPct      float64 `yaml:"stop_loss_pct"`
		MaxOpenPositions int     `yaml:"max_open_positions"`
	} `yaml:"risk"`
	Throttle struct {
		CooldownMinutes int     `yaml:"cooldown_minutes"`
		AdvisoryQuota   float64 `yaml:"advisory_quota"`
	} `yaml:"throttle"`
	Signal     signal.Thresholds              `yaml:"signal"`
	Timeframes map[types.Timeframe]ta.Periods `yaml:"timeframes"`
	Advisor    struct {
		Provider          string  `yaml:"provider"`
		Model             string  `yaml:"model"`
		MaxTokens         int     `yaml:"max_tokens"`
		Temperature       float32 `yaml:"temperature"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RequestsPerMinute float64 `yaml:"requests_per_minute"`
	} `yaml:"advisor"`
	News struct {
		Source          string `yaml:"source"`
		URL             string `yaml:"url"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		MaxItems        int    `yaml:"max_items"`
	} `yaml:"news"`
	Server struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"server"`
}

// Default returns a configuration that runs fully simulated.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "SIM"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 30
	}
	if c.TickTimeoutSeconds == 0 {
		c.TickTimeoutSeconds = 20
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.TradeLogSize == 0 {
		c.TradeLogSize = 50
	}
	if c.Market.Symbol == "" {
		c.Market.Symbol = "BTCUSDT"
	}
	if c.Market.Exchange == "" {
		c.Market.Exchange = "NSE"
	}
	if c.Market.Product == "" {
		c.Market.Product = "CNC"
	}
	if c.Market.SimStartPrice == 0 {
		c.Market.SimStartPrice = 45000
	}
	if c.Market.SimStartBalance == 0 {
		c.Market.SimStartBalance = 10000
	}
	if c.Risk.PositionSizePct == 0 {
		c.Risk.PositionSizePct = 0.05
	}
	if c.Risk.TakeProfitPct == 0 {
		c.Risk.TakeProfitPct = 0.08
	}
	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = 0.05
	}
	if c.Risk.MaxOpenPositions == 0 {
		c.Risk.MaxOpenPositions = 3
	}
	if c.Throttle.CooldownMinutes == 0 {
		c.Throttle.CooldownMinutes = 5
	}
	if c.Throttle.AdvisoryQuota == 0 {
		c.Throttle.AdvisoryQuota = 0.20
	}

	def := signal.DefaultThresholds()
	if c.Signal.MinTrendStrength == 0 {
		c.Signal.MinTrendStrength = def.MinTrendStrength
	}
	if c.Signal.MinAdvisoryConfidence == 0 {
		c.Signal.MinAdvisoryConfidence = def.MinAdvisoryConfidence
	}
	if c.Signal.LevelProximity == 0 {
		c.Signal.LevelProximity = def.LevelProximity
	}
	if c.Signal.MaxVolatility == 0 {
		c.Signal.MaxVolatility = def.MaxVolatility
	}

	if c.Timeframes == nil {
		c.Timeframes = map[types.Timeframe]ta.Periods{}
	}
	for _, tf := range types.AllTimeframes {
		if _, ok := c.Timeframes[tf]; !ok {
			p, _ := ta.DefaultPeriods(tf)
			c.Timeframes[tf] = p
		}
	}

	if c.Advisor.Provider == "" {
		c.Advisor.Provider = "noop"
	}
	if c.Advisor.MaxTokens == 0 {
		c.Advisor.MaxTokens = 512
	}
	if c.Advisor.Temperature == 0 {
		c.Advisor.Temperature = 0.3
	}
	if c.Advisor.TimeoutSeconds == 0 {
		c.Advisor.TimeoutSeconds = 15
	}
	if c.Advisor.RequestsPerMinute == 0 {
		c.Advisor.RequestsPerMinute = 6
	}
	if c.News.Source == "" {
		c.News.Source = "sim"
	}
	if c.News.CacheTTLSeconds == 0 {
		c.News.CacheTTLSeconds = 300
	}
	if c.News.MaxItems == 0 {
		c.News.MaxItems = 5
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

func (c *Config) Validate() error {
	switch c.Mode {
	case "SIM", "DRY_RUN", "LIVE":
	default:
		return fmt.Errorf("invalid mode '%s': must be 'SIM', 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive, got %d", c.PollSeconds)
	}
	if c.TickTimeoutSeconds <= 0 {
		return fmt.Errorf("tick_timeout_seconds must be positive, got %d", c.TickTimeoutSeconds)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if c.TradeLogSize <= 0 {
		return errors.New("trade_log_size must be positive")
	}
	if c.Risk.PositionSizePct <= 0 || c.Risk.PositionSizePct > 1 {
		return fmt.Errorf("risk.position_size_pct must be in (0,1], got %.4f", c.Risk.PositionSizePct)
	}
	if c.Risk.TakeProfitPct <= 0 || c.Risk.StopLossPct <= 0 {
		return errors.New("risk.take_profit_pct and risk.stop_loss_pct must be positive")
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive, got %d", c.Risk.MaxOpenPositions)
	}
	if c.Throttle.CooldownMinutes < 0 {
		return fmt.Errorf("throttle.cooldown_minutes cannot be negative, got %d", c.Throttle.CooldownMinutes)
	}
	if c.Throttle.AdvisoryQuota <= 0 || c.Throttle.AdvisoryQuota > 1 {
		return fmt.Errorf("throttle.advisory_quota must be in (0,1], got %.2f", c.Throttle.AdvisoryQuota)
	}
	for tf, p := range c.Timeframes {
		if !tf.Valid() {
			return fmt.Errorf("unknown timeframe '%s'", tf)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("timeframes.%s: %w", tf, err)
		}
	}
	switch c.Advisor.Provider {
	case "noop", "openai", "claude":
	default:
		return fmt.Errorf("advisor.provider must be 'noop', 'openai' or 'claude', got '%s'", c.Advisor.Provider)
	}
	switch c.News.Source {
	case "sim":
	case "scrape":
		if c.News.URL == "" {
			return errors.New("news.url is required when news.source is 'scrape'")
		}
	default:
		return fmt.Errorf("news.source must be 'sim' or 'scrape', got '%s'", c.News.Source)
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c *Config) TickTimeout() time.Duration {
	return time.Duration(c.TickTimeoutSeconds) * time.Second
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Throttle.CooldownMinutes) * time.Minute
}

// applyEnv lets deployment environments override a few operational knobs.
func (c *Config) applyEnv() error {
	if v := os.Getenv("BOT_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("BOT_POLL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOT_POLL_SECONDS: %w", err)
		}
		c.PollSeconds = n
	}
	if v := os.Getenv("BOT_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	return nil
}

// LoadConfig reads path, fills defaults and applies env overrides. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyDefaults()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
