package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"advisory-trading-bot/internal/advisor"
	"advisory-trading-bot/internal/advisor/advisorobs"
	"advisory-trading-bot/internal/advisor/claude"
	"advisory-trading-bot/internal/advisor/noop"
	"advisory-trading-bot/internal/advisor/openai"
	"advisory-trading-bot/internal/engine"
	"advisory-trading-bot/internal/engine/engineobs"
	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/market"
	"advisory-trading-bot/internal/market/marketobs"
	"advisory-trading-bot/internal/news"
	"advisory-trading-bot/internal/store"
)

// initializeSystem loads .env and initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func shutdownObservability() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to flush telemetry: %v\n", err)
	}
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath)
		return nil, err
	}
	logger.Info(ctx, "Config loaded",
		"path", configPath,
		"mode", cfg.Mode,
		"symbol", cfg.Market.Symbol,
		"advisor", cfg.Advisor.Provider,
		"news", cfg.News.Source,
	)
	return cfg, nil
}

// initializeMarket builds the market adapter with observability
func initializeMarket(ctx context.Context, cfg *store.Config) (interfaces.MarketData, error) {
	m, err := market.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}

	switch cfg.Mode {
	case "SIM":
		logger.Info(ctx, "Using simulated market", "start_price", cfg.Market.SimStartPrice, "start_balance", cfg.Market.SimStartBalance)
	case "DRY_RUN":
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	return marketobs.Wrap(m), nil
}

// initializeNews builds the cached headline source
func initializeNews(cfg *store.Config) (interfaces.NewsSource, error) {
	svc, err := news.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("news: %w", err)
	}
	return svc, nil
}

// initializeAdvisor picks the model client, rate limits it and wraps it with observability
func initializeAdvisor(ctx context.Context, cfg *store.Config) interfaces.Advisor {
	var adv interfaces.Advisor

	switch cfg.Advisor.Provider {
	case "openai":
		adv = openai.New(cfg)
	case "claude":
		adv = claude.New(cfg)
	default:
		logger.Warn(ctx, "No advisor provider configured - using noop advisor (always neutral)")
		return advisorobs.Wrap(noop.New(), "noop")
	}

	adv = advisor.RateLimited(adv, cfg.Advisor.RequestsPerMinute)
	return advisorobs.Wrap(adv, cfg.Advisor.Provider)
}

// initializeController wires the engine and its collaborators behind a controller
func initializeController(ctx context.Context, cfg *store.Config) (*engine.Controller, error) {
	mkt, err := initializeMarket(ctx, cfg)
	if err != nil {
		return nil, err
	}
	src, err := initializeNews(cfg)
	if err != nil {
		return nil, err
	}
	adv := initializeAdvisor(ctx, cfg)

	eng := engine.New(cfg, mkt, src, adv)
	return engine.NewController(engineobs.Wrap(eng, cfg.Market.Symbol, cfg.Mode), cfg.PollInterval()), nil
}
