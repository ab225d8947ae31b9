package ta

import (
	"errors"
	"fmt"

	"advisory-trading-bot/internal/types"
)

var ErrUnorderedBars = errors.New("bars not in strictly increasing time order")

const bollingerWidth = 2.0

// ValidateBars rejects series with out-of-order or duplicate timestamps.
func ValidateBars(bars []types.Bar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Ts.After(bars[i-1].Ts) {
			return fmt.Errorf("bar %d at %s: %w", i, bars[i].Ts, ErrUnorderedBars)
		}
	}
	return nil
}

// Compute builds the full indicator snapshot for one timeframe. Either every
// indicator is computed or an error is returned; there are no partial snapshots.
func Compute(bars []types.Bar, tf types.Timeframe, p Periods) (types.Snapshot, error) {
	if len(bars) < p.MinBars() {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, insufficient("snapshot", p.MinBars(), len(bars)))
	}
	if err := ValidateBars(bars); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}

	closes := Closes(bars)
	snap := types.Snapshot{Timeframe: tf, Bars: len(bars), ComputedAt: bars[len(bars)-1].Ts}

	var err error
	if snap.RSI, err = RSI(closes, p.RSI); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}
	if snap.EMAShort, err = EMA(closes, p.EMAShort); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}
	if snap.EMALong, err = EMA(closes, p.EMALong); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}
	if snap.MACD, err = MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}
	if snap.Bollinger, err = Bollinger(closes, p.Bollinger, bollingerWidth); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}
	if snap.Volatility, err = Volatility(closes); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}
	if snap.Support, snap.Resistance, err = SupportResistance(bars); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}
	if snap.VolumeProfile, err = BuildVolumeProfile(bars); err != nil {
		return types.Snapshot{}, fmt.Errorf("%s: %w", tf, err)
	}
	snap.Liquidity = LiquidityLevels(bars)
	return snap, nil
}
