package types

import "time"

type Timeframe string

const (
	TFScalping Timeframe = "scalping"
	TFShort    Timeframe = "short"
	TFMedium   Timeframe = "medium"
	TFTrend    Timeframe = "trend"
)

// AllTimeframes lists the analysis classes from fastest to slowest.
var AllTimeframes = []Timeframe{TFScalping, TFShort, TFMedium, TFTrend}

func (tf Timeframe) Valid() bool {
	switch tf {
	case TFScalping, TFShort, TFMedium, TFTrend:
		return true
	}
	return false
}

type Bar struct {
	Ts                             time.Time
	Open, High, Low, Close, Volume float64
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the side that closes a position opened on s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

const VolumeZones = 10

type VolumeProfile struct {
	Zones [VolumeZones]float64 `json:"zones"`
	POC   int                  `json:"poc"`
	Low   float64              `json:"low"`
	High  float64              `json:"high"`
}

type LevelKind string

const (
	LevelSupport    LevelKind = "support"
	LevelResistance LevelKind = "resistance"
)

type LiquidityLevel struct {
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
	Kind   LevelKind `json:"kind"`
}

// Snapshot is the full indicator set for one timeframe, recomputed each tick.
type Snapshot struct {
	Timeframe     Timeframe        `json:"timeframe"`
	RSI           float64          `json:"rsi"`
	EMAShort      float64          `json:"ema_short"`
	EMALong       float64          `json:"ema_long"`
	MACD          MACD             `json:"macd"`
	Bollinger     Bands            `json:"bollinger"`
	Volatility    float64          `json:"volatility"`
	Support       float64          `json:"support"`
	Resistance    float64          `json:"resistance"`
	VolumeProfile VolumeProfile    `json:"volume_profile"`
	Liquidity     []LiquidityLevel `json:"liquidity"`
	Bars          int              `json:"bars"`
	ComputedAt    time.Time        `json:"computed_at"`
}

type TrendVerdict struct {
	Direction Direction               `json:"direction"`
	Strength  float64                 `json:"strength"`
	Votes     map[Timeframe]Direction `json:"votes,omitempty"`
}

type AdvisorySignal struct {
	Sentiment  Direction `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// NeutralSignal is what an unusable advisory degrades to.
func NeutralSignal(reason string) AdvisorySignal {
	return AdvisorySignal{Sentiment: Neutral, Confidence: 0, Reasoning: reason}
}

type Position struct {
	ID         string    `json:"id"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	Size       float64   `json:"size"`
	OpenedAt   time.Time `json:"opened_at"`
}

type TradeRecord struct {
	ID         string    `json:"id"`
	Side       Side      `json:"side"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	Timestamp  time.Time `json:"timestamp"`
	Profit     *float64  `json:"profit,omitempty"`
	PositionID string    `json:"position_id"`
	Reason     string    `json:"reason"`
	Advisory   bool      `json:"advisory"`
}

type OrderReq struct {
	Side  Side
	Size  float64
	Price float64 // reference price at decision time
	Tag   string
}

type Fill struct {
	OrderID string  `json:"order_id"`
	Side    Side    `json:"side"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Status  string  `json:"status"`
}

type NewsItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// TickResult summarises one evaluation cycle.
type TickResult struct {
	TickID   string         `json:"tick_id"`
	Time     time.Time      `json:"time"`
	Price    float64        `json:"price"`
	Trend    TrendVerdict   `json:"trend"`
	Advisory AdvisorySignal `json:"advisory"`
	Action   Action         `json:"action"`
	Reason   string         `json:"reason"`
	Trades   []TradeRecord  `json:"trades"`
}
