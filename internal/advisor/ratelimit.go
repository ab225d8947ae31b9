package advisor

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/types"
)

// ErrRateLimited is returned when the advisor's request budget is spent.
var ErrRateLimited = errors.New("advisor rate limited")

type rateLimited struct {
	next    interfaces.Advisor
	limiter *rate.Limiter
}

var _ interfaces.Advisor = (*rateLimited)(nil)

// RateLimited caps calls to next at perMinute. Calls over budget fail fast
// with ErrRateLimited instead of waiting, so a tick never stalls on the model.
func RateLimited(next interfaces.Advisor, perMinute float64) interfaces.Advisor {
	if perMinute <= 0 {
		return next
	}
	every := time.Duration(float64(time.Minute) / perMinute)
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Every(every), 1)}
}

func (r *rateLimited) Evaluate(ctx context.Context, headlines []types.NewsItem, snap types.Snapshot, price float64) (types.AdvisorySignal, error) {
	if !r.limiter.Allow() {
		return types.AdvisorySignal{}, ErrRateLimited
	}
	return r.next.Evaluate(ctx, headlines, snap, price)
}
