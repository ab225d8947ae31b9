package ta

import (
	"fmt"
	"time"

	"advisory-trading-bot/internal/types"
)

// Periods is the indicator parameter set for one timeframe class.
type Periods struct {
	Interval   time.Duration `yaml:"interval"`
	RSI        int           `yaml:"rsi"`
	EMAShort   int           `yaml:"ema_short"`
	EMALong    int           `yaml:"ema_long"`
	MACDFast   int           `yaml:"macd_fast"`
	MACDSlow   int           `yaml:"macd_slow"`
	MACDSignal int           `yaml:"macd_signal"`
	Bollinger  int           `yaml:"bollinger"`
}

var defaultPeriods = map[types.Timeframe]Periods{
	types.TFScalping: {Interval: 5 * time.Minute, RSI: 7, EMAShort: 9, EMALong: 21, MACDFast: 6, MACDSlow: 13, MACDSignal: 5, Bollinger: 10},
	types.TFShort:    {Interval: 15 * time.Minute, RSI: 14, EMAShort: 12, EMALong: 26, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, Bollinger: 20},
	types.TFMedium:   {Interval: time.Hour, RSI: 14, EMAShort: 20, EMALong: 50, MACDFast: 12, MACDSlow: 26, MACDSignal: 9, Bollinger: 20},
	types.TFTrend:    {Interval: 4 * time.Hour, RSI: 21, EMAShort: 21, EMALong: 55, MACDFast: 19, MACDSlow: 39, MACDSignal: 9, Bollinger: 30},
}

// DefaultPeriods returns the built-in parameter set for tf.
func DefaultPeriods(tf types.Timeframe) (Periods, bool) {
	p, ok := defaultPeriods[tf]
	return p, ok
}

// MinBars is the shortest series for which every indicator in the set is defined.
func (p Periods) MinBars() int {
	need := SupportResistanceWindow
	for _, n := range []int{p.RSI + 1, p.EMALong, p.EMAShort, p.MACDSlow + p.MACDSignal - 1, p.Bollinger} {
		if n > need {
			need = n
		}
	}
	return need
}

// FetchLimit is how many bars to request so the smoothed indicators have warmed up.
func (p Periods) FetchLimit() int {
	if n := p.MinBars() * 2; n > 100 {
		return n
	}
	return 100
}

func (p Periods) Validate() error {
	switch {
	case p.Interval <= 0:
		return fmt.Errorf("interval must be positive")
	case p.RSI <= 0, p.EMAShort <= 0, p.Bollinger <= 0, p.MACDSignal <= 0:
		return fmt.Errorf("periods must be positive")
	case p.EMAShort >= p.EMALong:
		return fmt.Errorf("ema_short (%d) must be below ema_long (%d)", p.EMAShort, p.EMALong)
	case p.MACDFast <= 0 || p.MACDFast >= p.MACDSlow:
		return fmt.Errorf("macd_fast (%d) must be positive and below macd_slow (%d)", p.MACDFast, p.MACDSlow)
	}
	return nil
}
