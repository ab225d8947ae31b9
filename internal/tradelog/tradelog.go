package tradelog

import (
	"sync"

	"advisory-trading-bot/internal/types"
)

// DefaultCapacity matches how many trades the dashboard ever showed.
const DefaultCapacity = 50

// Log is a bounded, most-recent-first trade history kept in memory only.
type Log struct {
	mu      sync.Mutex
	cap     int
	entries []types.TradeRecord
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{cap: capacity, entries: make([]types.TradeRecord, 0, capacity)}
}

// Append puts tr at the front, dropping the oldest entry once full.
func (l *Log) Append(tr types.TradeRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) < l.cap {
		l.entries = append(l.entries, types.TradeRecord{})
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = tr
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []types.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.TradeRecord, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Latest returns the most recent trade, if any.
func (l *Log) Latest() (types.TradeRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return types.TradeRecord{}, false
	}
	return l.entries[0], true
}
