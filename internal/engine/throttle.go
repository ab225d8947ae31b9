package engine

import (
	"fmt"
	"sync"
	"time"
)

// Throttle enforces the cooldown between entries and the daily cap on the
// share of trades confirmed by the advisory signal. Counters roll over at
// local midnight in loc.
type Throttle struct {
	mu          sync.Mutex
	cooldown    time.Duration
	quota       float64
	loc         *time.Location
	day         string
	total       int
	advisory    int
	lastTradeAt time.Time
}

func NewThrottle(cooldown time.Duration, quota float64, loc *time.Location) *Throttle {
	if loc == nil {
		loc = time.Local
	}
	return &Throttle{cooldown: cooldown, quota: quota, loc: loc}
}

func (t *Throttle) rollover(now time.Time) {
	d := dayKey(now, t.loc)
	if d != t.day {
		t.day = d
		t.total = 0
		t.advisory = 0
	}
}

// Allow reports whether a new entry may be placed at now. The returned error
// wraps ErrThrottled.
func (t *Throttle) Allow(now time.Time, advisory bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastTradeAt.IsZero() {
		if since := now.Sub(t.lastTradeAt); since < t.cooldown {
			return fmt.Errorf("cooldown: %s since last trade, need %s: %w", since.Round(time.Second), t.cooldown, ErrThrottled)
		}
	}

	t.rollover(now)
	if advisory && t.total > 0 {
		share := float64(t.advisory+1) / float64(t.total+1)
		if share >= t.quota {
			return fmt.Errorf("%d of %d trades today advisory-confirmed: %w", t.advisory, t.total, ErrQuotaExceeded)
		}
	}
	return nil
}

// Record counts an executed trade. Exits are recorded with advisory=false.
func (t *Throttle) Record(now time.Time, advisory bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(now)
	t.total++
	if advisory {
		t.advisory++
	}
	t.lastTradeAt = now
}

func (t *Throttle) LastTradeAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastTradeAt
}

// Counts returns today's totals as of now.
func (t *Throttle) Counts(now time.Time) (total, advisory int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(now)
	return t.total, t.advisory
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
