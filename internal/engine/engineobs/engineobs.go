package engineobs

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/trace"
	"advisory-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
	attrs  oteltrace.SpanStartOption
}

var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap traces and logs every tick of eng. symbol and mode tag the tick span.
func Wrap(eng interfaces.Engine, symbol, mode string) interfaces.Engine {
	return &observableEngine{
		engine: eng,
		attrs:  trace.InstrumentAttrs(symbol, mode),
	}
}

func (oe *observableEngine) Tick(ctx context.Context) (*types.TickResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Tick", oe.attrs)
	defer span.End()

	start := time.Now()

	logger.DebugSkip(ctx, 1, "Starting trading cycle")

	result, err := oe.engine.Tick(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("tick_id", result.TickID),
		attribute.String("action", string(result.Action)),
		attribute.Int("trades", len(result.Trades)),
	)
	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"tick_id", result.TickID,
		"price", result.Price,
		"action", result.Action,
		"trend", result.Trend.Direction,
		"trend_strength", result.Trend.Strength,
		"advisory", result.Advisory.Sentiment,
		"reason", result.Reason,
		"trades", len(result.Trades),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

func (oe *observableEngine) Refresh(ctx context.Context) (*types.TickResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Refresh", oe.attrs)
	defer span.End()

	result, err := oe.engine.Refresh(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Market refresh failed", err)
		return nil, err
	}
	logger.InfoSkip(ctx, 1, "Market refreshed",
		"tick_id", result.TickID,
		"price", result.Price,
		"trend", result.Trend.Direction,
		"trend_strength", result.Trend.Strength,
	)
	return result, nil
}

func (oe *observableEngine) Snapshot() types.BotState {
	return oe.engine.Snapshot()
}
