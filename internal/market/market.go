package market

import (
	"fmt"
	"os"
	"time"

	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/market/kite"
	"advisory-trading-bot/internal/market/sim"
	"advisory-trading-bot/internal/store"
	"advisory-trading-bot/internal/types"
)

// New builds the market adapter for cfg.Mode. Kite credentials come from
// KITE_API_KEY and KITE_ACCESS_TOKEN.
func New(cfg *store.Config) (interfaces.MarketData, error) {
	intervals := make(map[types.Timeframe]time.Duration, len(cfg.Timeframes))
	for tf, p := range cfg.Timeframes {
		intervals[tf] = p.Interval
	}

	switch cfg.Mode {
	case "SIM":
		return sim.New(sim.Params{
			StartPrice:   cfg.Market.SimStartPrice,
			StartBalance: cfg.Market.SimStartBalance,
			Seed:         cfg.Market.SimSeed,
			Intervals:    intervals,
		}), nil
	case "DRY_RUN", "LIVE":
		return kite.New(kite.Params{
			Mode:            cfg.Mode,
			APIKey:          os.Getenv("KITE_API_KEY"),
			AccessToken:     os.Getenv("KITE_ACCESS_TOKEN"),
			Exchange:        cfg.Market.Exchange,
			Symbol:          cfg.Market.Symbol,
			Product:         cfg.Market.Product,
			InstrumentToken: cfg.Market.InstrumentToken,
			Intervals:       intervals,
		})
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}
