package engine

import (
	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/store"
)

func New(cfg *store.Config, market interfaces.MarketData, news interfaces.NewsSource, adv interfaces.Advisor, opts ...Option) *Engine {
	return newEngine(cfg, market, news, adv, opts...)
}
