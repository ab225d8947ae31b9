package engine

import (
	"context"
	"fmt"

	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/types"
)

const (
	reasonTakeProfit = "TAKE_PROFIT"
	reasonStopLoss   = "STOP_LOSS"
	reasonSignal     = "SIGNAL"
	reasonOpposing   = "OPPOSING_SIGNAL"
)

// orderExecutor submits orders to the market and normalizes the fills.
type orderExecutor struct {
	market interfaces.MarketData
}

func newOrderExecutor(market interfaces.MarketData) *orderExecutor {
	return &orderExecutor{market: market}
}

// submit places a market order for size at roughly refPrice. A fill missing
// price or size is taken to have executed in full at refPrice.
func (oe *orderExecutor) submit(ctx context.Context, side types.Side, size, refPrice float64, tag string) (types.Fill, error) {
	req := types.OrderReq{Side: side, Size: size, Price: refPrice, Tag: tag}

	fill, err := oe.market.SubmitOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to place order", err,
			"side", side,
			"size", size,
			"price", refPrice,
			"tag", tag,
		)
		return types.Fill{}, fmt.Errorf("%w: submit %s order: %w", ErrCollaboratorUnavailable, side, err)
	}

	if fill.Side == "" {
		fill.Side = side
	}
	if fill.Price <= 0 {
		fill.Price = refPrice
	}
	if fill.Size <= 0 {
		fill.Size = size
	}
	return fill, nil
}

// cashFlow is the balance change caused by a fill: buys debit, sells credit.
func cashFlow(side types.Side, price, size float64) float64 {
	if side == types.SideBuy {
		return -price * size
	}
	return price * size
}
