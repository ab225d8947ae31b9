package types

import "time"

type RunState string

const (
	Stopped RunState = "stopped"
	Running RunState = "running"
)

// BotState is the read-only view published after every tick.
type BotState struct {
	RunState       RunState               `json:"run_state"`
	Balance        float64                `json:"balance"`
	InitialBalance float64                `json:"initial_balance"`
	CurrentPrice   float64                `json:"current_price"`
	Snapshots      map[Timeframe]Snapshot `json:"snapshots"`
	Trend          TrendVerdict           `json:"trend"`
	Advisory       AdvisorySignal         `json:"advisory"`
	Positions      []Position             `json:"positions"`
	Trades         []TradeRecord          `json:"trades"`
	RecentNews     []NewsItem             `json:"recent_news"`
	LastTradeAt    time.Time              `json:"last_trade_at"`
	LastTickAt     time.Time              `json:"last_tick_at"`
	LastError      string                 `json:"last_error,omitempty"`
	TickCount      int64                  `json:"tick_count"`
}

// Clone returns a deep copy so the receiver can be handed to readers safely.
func (s BotState) Clone() BotState {
	out := s
	if s.Snapshots != nil {
		out.Snapshots = make(map[Timeframe]Snapshot, len(s.Snapshots))
		for tf, snap := range s.Snapshots {
			snap.Liquidity = append([]LiquidityLevel(nil), snap.Liquidity...)
			out.Snapshots[tf] = snap
		}
	}
	if s.Trend.Votes != nil {
		out.Trend.Votes = make(map[Timeframe]Direction, len(s.Trend.Votes))
		for tf, d := range s.Trend.Votes {
			out.Trend.Votes[tf] = d
		}
	}
	out.Positions = append([]Position(nil), s.Positions...)
	out.RecentNews = append([]NewsItem(nil), s.RecentNews...)
	out.Trades = make([]TradeRecord, len(s.Trades))
	for i, tr := range s.Trades {
		if tr.Profit != nil {
			p := *tr.Profit
			tr.Profit = &p
		}
		out.Trades[i] = tr
	}
	return out
}
