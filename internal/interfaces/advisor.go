package interfaces

import (
	"context"

	"advisory-trading-bot/internal/types"
)

// Advisor turns headlines and the short-term indicator snapshot into a sentiment call.
type Advisor interface {
	Evaluate(ctx context.Context, headlines []types.NewsItem, snap types.Snapshot, price float64) (types.AdvisorySignal, error)
}
