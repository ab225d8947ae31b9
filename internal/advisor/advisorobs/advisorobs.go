package advisorobs

import (
	"context"
	"time"

	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/trace"
	"advisory-trading-bot/internal/types"
)

// observableAdvisor wraps an Advisor with logging and tracing
type observableAdvisor struct {
	advisor interfaces.Advisor
	name    string
}

var _ interfaces.Advisor = (*observableAdvisor)(nil)

func Wrap(adv interfaces.Advisor, name string) interfaces.Advisor {
	return &observableAdvisor{advisor: adv, name: name}
}

func (oa *observableAdvisor) Evaluate(ctx context.Context, headlines []types.NewsItem, snap types.Snapshot, price float64) (types.AdvisorySignal, error) {
	ctx, span := trace.StartSpan(ctx, "advisor.Evaluate")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Requesting advisory signal",
		"provider", oa.name,
		"price", price,
		"rsi", snap.RSI,
		"headlines", len(headlines),
	)

	sig, err := oa.advisor.Evaluate(ctx, headlines, snap, price)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get advisory signal", err,
			"provider", oa.name,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return types.AdvisorySignal{}, err
	}

	logger.InfoSkip(ctx, 1, "Advisory signal received",
		"provider", oa.name,
		"sentiment", sig.Sentiment,
		"confidence", sig.Confidence,
		"reasoning", sig.Reasoning,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return sig, nil
}
