package signal

import (
	"fmt"
	"math"

	"advisory-trading-bot/internal/types"
)

// Thresholds gate the BUY and SELL paths. All comparisons are strict except proximity.
type Thresholds struct {
	MinTrendStrength      float64 `yaml:"min_trend_strength"`
	MinAdvisoryConfidence float64 `yaml:"min_advisory_confidence"`
	LevelProximity        float64 `yaml:"level_proximity"`
	MaxVolatility         float64 `yaml:"max_volatility"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTrendStrength:      0.7,
		MinAdvisoryConfidence: 0.7,
		LevelProximity:        0.005,
		MaxVolatility:         0.02,
	}
}

type Input struct {
	Trend    types.TrendVerdict
	Advisory types.AdvisorySignal
	Short    types.Snapshot
	Price    float64
}

type Recommendation struct {
	Action types.Action
	// Advisory is set when the advisory signal confirmed the action.
	Advisory bool
	Reason   string
}

type Combiner struct {
	th Thresholds
}

func NewCombiner(th Thresholds) *Combiner {
	return &Combiner{th: th}
}

func (c *Combiner) Thresholds() Thresholds { return c.th }

// Combine requires trend, advisory, level proximity and calm volatility to agree.
func (c *Combiner) Combine(in Input) Recommendation {
	if in.Short.Volatility >= c.th.MaxVolatility {
		return hold("volatility %.4f at or above %.4f", in.Short.Volatility, c.th.MaxVolatility)
	}
	if in.Trend.Strength <= c.th.MinTrendStrength {
		return hold("trend %s strength %.2f not above %.2f", in.Trend.Direction, in.Trend.Strength, c.th.MinTrendStrength)
	}
	if in.Advisory.Confidence <= c.th.MinAdvisoryConfidence {
		return hold("advisory confidence %.2f not above %.2f", in.Advisory.Confidence, c.th.MinAdvisoryConfidence)
	}

	switch {
	case in.Trend.Direction == types.Bullish && in.Advisory.Sentiment == types.Bullish:
		lvl, ok := c.nearLevel(in.Short.Liquidity, types.LevelSupport, in.Price)
		if !ok {
			return hold("bullish but price %.2f not near support", in.Price)
		}
		return Recommendation{
			Action:   types.ActionBuy,
			Advisory: true,
			Reason:   fmt.Sprintf("bullish trend %.2f, advisory %.2f, near support %.2f", in.Trend.Strength, in.Advisory.Confidence, lvl.Price),
		}
	case in.Trend.Direction == types.Bearish && in.Advisory.Sentiment == types.Bearish:
		lvl, ok := c.nearLevel(in.Short.Liquidity, types.LevelResistance, in.Price)
		if !ok {
			return hold("bearish but price %.2f not near resistance", in.Price)
		}
		return Recommendation{
			Action:   types.ActionSell,
			Advisory: true,
			Reason:   fmt.Sprintf("bearish trend %.2f, advisory %.2f, near resistance %.2f", in.Trend.Strength, in.Advisory.Confidence, lvl.Price),
		}
	}
	return hold("trend %s and advisory %s disagree", in.Trend.Direction, in.Advisory.Sentiment)
}

func (c *Combiner) nearLevel(levels []types.LiquidityLevel, kind types.LevelKind, price float64) (types.LiquidityLevel, bool) {
	for _, l := range levels {
		if l.Kind != kind || l.Price <= 0 {
			continue
		}
		if math.Abs(price-l.Price)/l.Price <= c.th.LevelProximity {
			return l, true
		}
	}
	return types.LiquidityLevel{}, false
}

func hold(format string, args ...any) Recommendation {
	return Recommendation{Action: types.ActionHold, Reason: fmt.Sprintf(format, args...)}
}
