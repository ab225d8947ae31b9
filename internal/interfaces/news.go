package interfaces

import (
	"context"

	"advisory-trading-bot/internal/types"
)

type NewsSource interface {
	LatestHeadlines(ctx context.Context) ([]types.NewsItem, error)
}
