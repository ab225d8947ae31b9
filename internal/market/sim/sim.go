package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"advisory-trading-bot/internal/id"
	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/types"
)

// maxStep bounds the per-call price move, as +/- maxStep/2.
const maxStep = 100.0

// Params configures the simulated exchange.
type Params struct {
	StartPrice   float64
	StartBalance float64
	Seed         int64
	Intervals    map[types.Timeframe]time.Duration
}

// Market is an in-memory exchange: a random-walk price, a cash balance and
// immediate fills at the current price.
type Market struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	price     float64
	balance   float64
	intervals map[types.Timeframe]time.Duration
	now       func() time.Time
}

var _ interfaces.MarketData = (*Market)(nil)

func New(p Params) *Market {
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Market{
		rnd:       rand.New(rand.NewSource(seed)),
		price:     p.StartPrice,
		balance:   p.StartBalance,
		intervals: p.Intervals,
		now:       time.Now,
	}
}

// CurrentPrice advances the walk one step and returns the new price.
func (m *Market) CurrentPrice(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.price = m.step(m.price)
	return m.price, nil
}

// HistoricalBars walks backwards from the current price so the newest bar
// closes where the market is now.
func (m *Market) HistoricalBars(ctx context.Context, tf types.Timeframe, limit int) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	interval, ok := m.intervals[tf]
	if !ok || interval <= 0 {
		return nil, fmt.Errorf("no interval configured for timeframe %q", tf)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	end := m.now().Truncate(interval)
	bars := make([]types.Bar, limit)
	price := m.price
	for i := limit - 1; i >= 0; i-- {
		bars[i] = types.Bar{
			Ts:     end.Add(-time.Duration(limit-1-i) * interval),
			Open:   price - 10,
			High:   price + 20,
			Low:    price - 20,
			Close:  price,
			Volume: m.rnd.Float64() * 100,
		}
		price = m.step(price)
	}
	return bars, nil
}

func (m *Market) AccountBalance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

// SubmitOrder fills the whole size at the current price and moves the cash.
func (m *Market) SubmitOrder(ctx context.Context, req types.OrderReq) (types.Fill, error) {
	if err := ctx.Err(); err != nil {
		return types.Fill{}, err
	}
	if req.Size <= 0 {
		return types.Fill{}, fmt.Errorf("order size must be positive, got %v", req.Size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch req.Side {
	case types.SideBuy:
		m.balance -= req.Size * m.price
	case types.SideSell:
		m.balance += req.Size * m.price
	default:
		return types.Fill{}, fmt.Errorf("unknown side %q", req.Side)
	}

	return types.Fill{
		OrderID: "SIM-" + id.NewAt(m.now()),
		Side:    req.Side,
		Price:   m.price,
		Size:    req.Size,
		Status:  "FILLED",
	}, nil
}

// SetPrice pins the walk, for scripted scenarios.
func (m *Market) SetPrice(p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.price = p
}

func (m *Market) step(p float64) float64 {
	next := p + (m.rnd.Float64()-0.5)*maxStep
	if next <= 0 {
		return p
	}
	return next
}
