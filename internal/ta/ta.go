package ta

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"advisory-trading-bot/internal/types"
)

// ErrInsufficientData is returned when a series is shorter than an indicator needs.
var ErrInsufficientData = errors.New("insufficient data")

func insufficient(name string, need, have int) error {
	return fmt.Errorf("%s: need %d bars, have %d: %w", name, need, have, ErrInsufficientData)
}

func SMA(vals []float64, n int) (float64, error) {
	if n <= 0 || len(vals) < n {
		return 0, insufficient("sma", n, len(vals))
	}
	sum := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		sum += vals[i]
	}
	return sum / float64(n), nil
}

// EMASeries returns the exponential moving average aligned to vals[n-1:],
// seeded with the simple average of the first n values.
func EMASeries(vals []float64, n int) ([]float64, error) {
	if n <= 0 || len(vals) < n {
		return nil, insufficient("ema", n, len(vals))
	}
	k := 2.0 / float64(n+1)
	seed := 0.0
	for i := 0; i < n; i++ {
		seed += vals[i]
	}
	out := make([]float64, 0, len(vals)-n+1)
	prev := seed / float64(n)
	out = append(out, prev)
	for i := n; i < len(vals); i++ {
		prev = (vals[i]-prev)*k + prev
		out = append(out, prev)
	}
	return out, nil
}

func EMA(vals []float64, n int) (float64, error) {
	s, err := EMASeries(vals, n)
	if err != nil {
		return 0, err
	}
	return s[len(s)-1], nil
}

// RSI uses Wilder smoothing over the whole series. A flat series reads 50.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 || len(closes) < period+1 {
		return 0, insufficient("rsi", period+1, len(closes))
	}
	gain, loss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50, nil
	case avgLoss == 0:
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs)), nil
}

// StdDev is the population standard deviation of the last n values.
func StdDev(vals []float64, n int) (float64, error) {
	m, err := SMA(vals, n)
	if err != nil {
		return 0, err
	}
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n)), nil
}

func Bollinger(closes []float64, n int, k float64) (types.Bands, error) {
	mid, err := SMA(closes, n)
	if err != nil {
		return types.Bands{}, fmt.Errorf("bollinger: %w", err)
	}
	sd, err := StdDev(closes, n)
	if err != nil {
		return types.Bands{}, fmt.Errorf("bollinger: %w", err)
	}
	return types.Bands{Upper: mid + k*sd, Middle: mid, Lower: mid - k*sd}, nil
}

// MACD needs slow+signal-1 values: the signal line is an EMA over the MACD line itself.
func MACD(closes []float64, fast, slow, signal int) (types.MACD, error) {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return types.MACD{}, fmt.Errorf("macd: invalid periods %d/%d/%d", fast, slow, signal)
	}
	need := slow + signal - 1
	if len(closes) < need {
		return types.MACD{}, insufficient("macd", need, len(closes))
	}
	fastS, err := EMASeries(closes, fast)
	if err != nil {
		return types.MACD{}, err
	}
	slowS, err := EMASeries(closes, slow)
	if err != nil {
		return types.MACD{}, err
	}
	// fastS starts at index fast-1, slowS at slow-1; align on slowS.
	offset := slow - fast
	line := make([]float64, len(slowS))
	for i := range slowS {
		line[i] = fastS[i+offset] - slowS[i]
	}
	sig, err := EMA(line, signal)
	if err != nil {
		return types.MACD{}, err
	}
	last := line[len(line)-1]
	return types.MACD{Line: last, Signal: sig, Histogram: last - sig}, nil
}

// Volatility is the population standard deviation of simple bar-over-bar returns.
func Volatility(closes []float64) (float64, error) {
	if len(closes) < 2 {
		return 0, insufficient("volatility", 2, len(closes))
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		rets = append(rets, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(rets) == 0 {
		return 0, nil
	}
	return StdDev(rets, len(rets))
}

// SupportResistanceWindow is the trailing bar count for support and resistance.
const SupportResistanceWindow = 30

func SupportResistance(bars []types.Bar) (support, resistance float64, err error) {
	if len(bars) < SupportResistanceWindow {
		return 0, 0, insufficient("support/resistance", SupportResistanceWindow, len(bars))
	}
	win := bars[len(bars)-SupportResistanceWindow:]
	support, resistance = win[0].Low, win[0].High
	for _, b := range win[1:] {
		support = math.Min(support, b.Low)
		resistance = math.Max(resistance, b.High)
	}
	return support, resistance, nil
}

// BuildVolumeProfile buckets volume into equal-width close-price zones.
// The point of control is the first zone holding the most volume.
func BuildVolumeProfile(bars []types.Bar) (types.VolumeProfile, error) {
	var vp types.VolumeProfile
	if len(bars) == 0 {
		return vp, insufficient("volume profile", 1, 0)
	}
	lo, hi := bars[0].Close, bars[0].Close
	for _, b := range bars[1:] {
		lo = math.Min(lo, b.Close)
		hi = math.Max(hi, b.Close)
	}
	vp.Low, vp.High = lo, hi
	width := (hi - lo) / types.VolumeZones
	for _, b := range bars {
		z := 0
		if width > 0 {
			z = int((b.Close - lo) / width)
		}
		if z >= types.VolumeZones {
			z = types.VolumeZones - 1
		}
		vp.Zones[z] += b.Volume
	}
	for i := 1; i < types.VolumeZones; i++ {
		if vp.Zones[i] > vp.Zones[vp.POC] {
			vp.POC = i
		}
	}
	return vp, nil
}

const (
	liquidityVolumeRatio = 0.7
	maxLiquidityLevels   = 5
)

// LiquidityLevels flags bars trading more than 70% of the window's peak volume.
// Each flagged bar contributes its low as support and its high as resistance.
func LiquidityLevels(bars []types.Bar) []types.LiquidityLevel {
	maxVol := 0.0
	for _, b := range bars {
		maxVol = math.Max(maxVol, b.Volume)
	}
	if maxVol <= 0 {
		return nil
	}
	threshold := maxVol * liquidityVolumeRatio
	var levels []types.LiquidityLevel
	for _, b := range bars {
		if b.Volume <= threshold {
			continue
		}
		levels = append(levels,
			types.LiquidityLevel{Price: b.Low, Volume: b.Volume, Kind: types.LevelSupport},
			types.LiquidityLevel{Price: b.High, Volume: b.Volume, Kind: types.LevelResistance},
		)
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Volume > levels[j].Volume })
	if len(levels) > maxLiquidityLevels {
		levels = levels[:maxLiquidityLevels]
	}
	return levels
}

func Closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
