package marketobs

import (
	"context"

	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/trace"
	"advisory-trading-bot/internal/types"
)

// observableMarket wraps a MarketData with observability (logging & tracing)
type observableMarket struct {
	market interfaces.MarketData
}

// Compile-time interface check
var _ interfaces.MarketData = (*observableMarket)(nil)

// Wrap wraps a market with observability middleware
func Wrap(m interfaces.MarketData) interfaces.MarketData {
	return &observableMarket{market: m}
}

func (om *observableMarket) CurrentPrice(ctx context.Context) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "market.CurrentPrice")
	defer span.End()

	price, err := om.market.CurrentPrice(ctx)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch price", err)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Price fetched", "price", price)
	return price, nil
}

func (om *observableMarket) HistoricalBars(ctx context.Context, tf types.Timeframe, limit int) ([]types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "market.HistoricalBars")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching historical bars", "timeframe", tf, "limit", limit)

	bars, err := om.market.HistoricalBars(ctx, tf, limit)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch bars", err, "timeframe", tf, "limit", limit)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Bars fetched successfully", "timeframe", tf, "count", len(bars))
	return bars, nil
}

func (om *observableMarket) AccountBalance(ctx context.Context) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "market.AccountBalance")
	defer span.End()

	bal, err := om.market.AccountBalance(ctx)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch balance", err)
		return 0, err
	}
	return bal, nil
}

// SubmitOrder places an order with observability
func (om *observableMarket) SubmitOrder(ctx context.Context, req types.OrderReq) (types.Fill, error) {
	ctx, span := trace.StartSpan(ctx, "market.SubmitOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"side", req.Side,
		"size", req.Size,
		"price", req.Price,
		"tag", req.Tag,
	)

	fill, err := om.market.SubmitOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"side", req.Side,
			"size", req.Size,
		)
		return types.Fill{}, err
	}

	logger.InfoSkip(ctx, 1, "Order placed successfully",
		"order_id", fill.OrderID,
		"status", fill.Status,
		"price", fill.Price,
		"size", fill.Size,
	)
	return fill, nil
}
