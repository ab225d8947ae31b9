package engine

import (
	"context"

	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/types"
)

// riskManager sizes new positions and decides when open ones must be closed.
type riskManager struct {
	sizePct       float64 // fraction of balance committed per position
	takeProfitPct float64 // unrealized gain that closes a position
	stopLossPct   float64 // unrealized loss that closes a position
}

func newRiskManager(sizePct, takeProfitPct, stopLossPct float64) *riskManager {
	return &riskManager{
		sizePct:       sizePct,
		takeProfitPct: takeProfitPct,
		stopLossPct:   stopLossPct,
	}
}

// sizePosition returns the quantity worth sizePct of balance at price.
func (rm *riskManager) sizePosition(balance, price float64) float64 {
	if balance <= 0 || price <= 0 {
		return 0
	}
	return balance * rm.sizePct / price
}

// unrealizedPct is the side-aware return of pos at price, as a fraction.
func unrealizedPct(pos types.Position, price float64) float64 {
	if pos.EntryPrice <= 0 {
		return 0
	}
	if pos.Side == types.SideSell {
		return (pos.EntryPrice - price) / pos.EntryPrice
	}
	return (price - pos.EntryPrice) / pos.EntryPrice
}

func (rm *riskManager) shouldTakeProfit(pos types.Position, price float64) bool {
	return unrealizedPct(pos, price) >= rm.takeProfitPct
}

func (rm *riskManager) shouldStopLoss(pos types.Position, price float64) bool {
	return -unrealizedPct(pos, price) >= rm.stopLossPct
}

// exitReason reports which exit rule fires for pos, if any. Take-profit wins
// when both could apply.
func (rm *riskManager) exitReason(ctx context.Context, pos types.Position, price float64) (string, bool) {
	switch {
	case rm.shouldTakeProfit(pos, price):
		logger.Risk(ctx, "TAKE_PROFIT_TRIGGERED",
			"position_id", pos.ID,
			"side", pos.Side,
			"entry_price", pos.EntryPrice,
			"current_price", price,
			"unrealized_pct", unrealizedPct(pos, price),
		)
		return reasonTakeProfit, true
	case rm.shouldStopLoss(pos, price):
		logger.Risk(ctx, "STOP_LOSS_TRIGGERED",
			"position_id", pos.ID,
			"side", pos.Side,
			"entry_price", pos.EntryPrice,
			"current_price", price,
			"unrealized_pct", unrealizedPct(pos, price),
		)
		return reasonStopLoss, true
	}
	return "", false
}
