package trend

import "advisory-trading-bot/internal/types"

const (
	overbought = 70.0
	oversold   = 30.0
)

// Weight is how much a timeframe's vote counts when directional votes disagree.
// Slower timeframes carry more weight.
func Weight(tf types.Timeframe) float64 {
	switch tf {
	case types.TFScalping:
		return 1
	case types.TFShort:
		return 2
	case types.TFMedium:
		return 3
	case types.TFTrend:
		return 4
	}
	return 0
}

// Vote classifies a single timeframe from its EMA crossover and RSI band.
func Vote(s types.Snapshot) types.Direction {
	switch {
	case s.EMAShort > s.EMALong && s.RSI < overbought:
		return types.Bullish
	case s.EMAShort < s.EMALong && s.RSI > oversold:
		return types.Bearish
	}
	return types.Neutral
}

// Analyze combines the per-timeframe votes into one verdict. Timeframes
// absent from snaps do not participate. Neutral wins outright when it holds
// more votes than both directions together; otherwise the weighted
// directional votes decide.
func Analyze(snaps map[types.Timeframe]types.Snapshot) types.TrendVerdict {
	v := types.TrendVerdict{Direction: types.Neutral, Votes: make(map[types.Timeframe]types.Direction, len(snaps))}
	if len(snaps) == 0 {
		return v
	}

	var bull, bear, neutral int
	var bullW, bearW float64
	for tf, s := range snaps {
		d := Vote(s)
		v.Votes[tf] = d
		switch d {
		case types.Bullish:
			bull++
			bullW += Weight(tf)
		case types.Bearish:
			bear++
			bearW += Weight(tf)
		default:
			neutral++
		}
	}

	total := float64(len(snaps))
	switch {
	case neutral > bull+bear:
		// Most timeframes see no trend; strength is how many agree on that.
		v.Strength = float64(neutral) / total
	case bull == bear || bullW == bearW:
		// no majority
	case bullW > bearW:
		v.Direction = types.Bullish
		v.Strength = float64(bull) / total
	default:
		v.Direction = types.Bearish
		v.Strength = float64(bear) / total
	}
	return v
}
