package interfaces

import (
	"context"

	"advisory-trading-bot/internal/types"
)

// MarketData is the exchange collaborator: prices, history, balance and order execution.
type MarketData interface {
	CurrentPrice(ctx context.Context) (float64, error)
	HistoricalBars(ctx context.Context, tf types.Timeframe, limit int) ([]types.Bar, error)
	AccountBalance(ctx context.Context) (float64, error)
	SubmitOrder(ctx context.Context, req types.OrderReq) (types.Fill, error)
}
