package interfaces

import (
	"context"

	"advisory-trading-bot/internal/types"
)

type Engine interface {
	// Tick evaluates the market and manages positions.
	Tick(ctx context.Context) (*types.TickResult, error)
	// Refresh evaluates and publishes without trading.
	Refresh(ctx context.Context) (*types.TickResult, error)
	Snapshot() types.BotState
}

// Controller is the run/stop surface exposed to operators.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	TickNow(ctx context.Context) (*types.TickResult, error)
	Refresh(ctx context.Context) (*types.TickResult, error)
	Snapshot() types.BotState
}
