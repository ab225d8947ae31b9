package noop

import (
	"context"

	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/types"
)

// Advisor is used when no model is configured. It always reads neutral, which
// keeps the bot from ever entering on its own.
type Advisor struct{}

func New() *Advisor {
	return &Advisor{}
}

func (a *Advisor) Evaluate(ctx context.Context, headlines []types.NewsItem, snap types.Snapshot, price float64) (types.AdvisorySignal, error) {
	logger.Debug(ctx, "Noop advisor called - always neutral", "headlines", len(headlines))
	return types.NeutralSignal("noop_advisor"), nil
}
