package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisory-trading-bot/internal/store"
	"advisory-trading-bot/internal/ta"
	"advisory-trading-bot/internal/types"
)

// fakeMarket serves scripted prices and bars and fills every order in full.
type fakeMarket struct {
	mu       sync.Mutex
	price    float64
	balance  float64
	barCount int // 0 means whatever the engine asks for
	priceErr error
	orderErr error
	orders   []types.OrderReq
	bars     func(n int) []types.Bar
}

func (m *fakeMarket) CurrentPrice(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.price, m.priceErr
}

func (m *fakeMarket) HistoricalBars(_ context.Context, _ types.Timeframe, limit int) ([]types.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := limit
	if m.barCount > 0 {
		n = m.barCount
	}
	return m.bars(n), nil
}

func (m *fakeMarket) AccountBalance(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance, nil
}

func (m *fakeMarket) SubmitOrder(_ context.Context, req types.OrderReq) (types.Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return types.Fill{}, m.orderErr
	}
	m.orders = append(m.orders, req)
	return types.Fill{OrderID: fmt.Sprintf("F%d", len(m.orders)), Side: req.Side, Price: m.price, Size: req.Size, Status: "FILLED"}, nil
}

type fakeNews struct{ err error }

func (n fakeNews) LatestHeadlines(context.Context) ([]types.NewsItem, error) {
	if n.err != nil {
		return nil, n.err
	}
	return []types.NewsItem{{Title: "ETF inflows continue", Source: "test"}}, nil
}

type fakeAdvisor struct {
	sig types.AdvisorySignal
	err error
}

func (a *fakeAdvisor) Evaluate(context.Context, []types.NewsItem, types.Snapshot, float64) (types.AdvisorySignal, error) {
	return a.sig, a.err
}

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// uptrendBars is a zigzag that drifts up (+3, -2, ...) and ends at last. The
// final bar carries the window's peak volume, putting support just under last.
func uptrendBars(last float64) func(n int) []types.Bar {
	return func(n int) []types.Bar {
		closes := make([]float64, n)
		for i := 1; i < n; i++ {
			step := -2.0
			if i%2 == 1 {
				step = 3
			}
			closes[i] = closes[i-1] + step
		}
		off := last - closes[n-1]

		bars := make([]types.Bar, n)
		for i := range bars {
			c := closes[i] + off
			vol := 100.0
			if i == n-1 {
				vol = 1000
			}
			bars[i] = types.Bar{
				Ts:     t0.Add(time.Duration(i-n) * time.Minute),
				Open:   c,
				High:   c + 10,
				Low:    c - 10,
				Close:  c,
				Volume: vol,
			}
		}
		return bars
	}
}

func flatBars(price float64) func(n int) []types.Bar {
	return func(n int) []types.Bar {
		bars := make([]types.Bar, n)
		for i := range bars {
			bars[i] = types.Bar{Ts: t0.Add(time.Duration(i-n) * time.Minute), Open: price, High: price, Low: price, Close: price, Volume: 10}
		}
		return bars
	}
}

type harness struct {
	eng    *Engine
	market *fakeMarket
	adv    *fakeAdvisor
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := store.Default()
	cfg.Timezone = "UTC"

	h := &harness{
		market: &fakeMarket{price: 45000, balance: 10000, bars: uptrendBars(45000)},
		adv:    &fakeAdvisor{sig: types.AdvisorySignal{Sentiment: types.Bullish, Confidence: 0.8, Reasoning: "inflows"}},
		now:    t0,
	}
	h.eng = New(cfg, h.market, fakeNews{}, h.adv, WithClock(func() time.Time { return h.now }))
	return h
}

func TestTickOpensPositionOnAgreement(t *testing.T) {
	h := newHarness(t)

	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.Bullish, res.Trend.Direction)
	assert.InDelta(t, 1.0, res.Trend.Strength, 1e-9)
	assert.Equal(t, types.ActionBuy, res.Action)
	require.Len(t, res.Trades, 1)

	tr := res.Trades[0]
	assert.Equal(t, types.SideBuy, tr.Side)
	assert.InDelta(t, 45000, tr.Price, 1e-9)
	assert.InDelta(t, 0.0111, tr.Size, 1e-4)
	assert.Nil(t, tr.Profit)
	assert.True(t, tr.Advisory)
	assert.Equal(t, reasonSignal, tr.Reason)

	st := h.eng.Snapshot()
	require.Len(t, st.Positions, 1)
	assert.Equal(t, tr.PositionID, st.Positions[0].ID)
	assert.InDelta(t, 10000-45000*tr.Size, st.Balance, 1e-6)
	assert.InDelta(t, 10000, st.InitialBalance, 1e-9)
	assert.Len(t, st.Snapshots, len(types.AllTimeframes))
	assert.Len(t, st.RecentNews, 1)
	assert.Equal(t, t0, st.LastTradeAt)
	assert.Equal(t, int64(1), st.TickCount)
	assert.Empty(t, st.LastError)
}

func TestTickCooldownBlocksSecondEntry(t *testing.T) {
	h := newHarness(t)

	_, err := h.eng.Tick(context.Background())
	require.NoError(t, err)

	h.now = t0.Add(4 * time.Minute)
	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.ActionHold, res.Action)
	assert.Empty(t, res.Trades)
	assert.Contains(t, res.Reason, "cooldown")
}

func TestTickTakeProfitClosesPosition(t *testing.T) {
	h := newHarness(t)

	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)
	size := res.Trades[0].Size
	posID := res.Trades[0].PositionID

	h.now = t0.Add(time.Hour)
	h.market.mu.Lock()
	h.market.price = 48700
	h.market.mu.Unlock()

	res, err = h.eng.Tick(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)

	exit := res.Trades[0]
	assert.Equal(t, types.SideSell, exit.Side)
	assert.Equal(t, reasonTakeProfit, exit.Reason)
	assert.Equal(t, posID, exit.PositionID)
	assert.False(t, exit.Advisory)
	require.NotNil(t, exit.Profit)
	assert.InDelta(t, 3700*size, *exit.Profit, 1e-6)

	st := h.eng.Snapshot()
	for _, p := range st.Positions {
		assert.NotEqual(t, posID, p.ID)
	}
	assert.Equal(t, exit.ID, st.Trades[0].ID, "newest trade first")
}

func TestTickStopLoss(t *testing.T) {
	h := newHarness(t)

	_, err := h.eng.Tick(context.Background())
	require.NoError(t, err)

	h.now = t0.Add(time.Hour)
	h.market.mu.Lock()
	h.market.price = 42700
	h.market.mu.Unlock()

	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Trades)
	assert.Equal(t, reasonStopLoss, res.Trades[0].Reason)
	require.NotNil(t, res.Trades[0].Profit)
	assert.Less(t, *res.Trades[0].Profit, 0.0)
}

func TestTickRejectsFourthPosition(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		_, err := h.eng.pos.open(fmt.Sprintf("P%d", i), types.SideBuy, 45000, 0.01, t0)
		require.NoError(t, err)
	}

	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Contains(t, res.Reason, ErrMaxPositionsExceeded.Error())
	assert.Empty(t, h.market.orders)
	assert.Len(t, h.eng.Snapshot().Positions, 3)
}

func TestTickOpposingSignalClosesOtherSide(t *testing.T) {
	h := newHarness(t)
	_, err := h.eng.pos.open("SHORT", types.SideSell, 45000, 0.02, t0.Add(-time.Hour))
	require.NoError(t, err)

	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, types.SideBuy, tr.Side)
	assert.Equal(t, "SHORT", tr.PositionID)
	assert.Equal(t, reasonOpposing, tr.Reason)
	assert.True(t, tr.Advisory)
	assert.Empty(t, h.eng.Snapshot().Positions, "no new position on the same tick")
}

func TestTickOrderFailureAbortsTick(t *testing.T) {
	h := newHarness(t)
	h.market.orderErr = errors.New("exchange rejected")

	res, err := h.eng.Tick(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrCollaboratorUnavailable)

	st := h.eng.Snapshot()
	assert.Empty(t, st.Positions)
	assert.Empty(t, st.Trades)
	assert.InDelta(t, 10000, st.Balance, 1e-9)
	assert.NotEmpty(t, st.LastError)
}

func TestTickFetchFailureAbandonsTick(t *testing.T) {
	h := newHarness(t)
	h.market.priceErr = errors.New("timeout")

	_, err := h.eng.Tick(context.Background())
	require.ErrorIs(t, err, ErrCollaboratorUnavailable)

	st := h.eng.Snapshot()
	assert.Equal(t, int64(1), st.TickCount)
	assert.Contains(t, st.LastError, "timeout")
	assert.Empty(t, h.market.orders)
}

func TestTickNewsFailureAbandonsTick(t *testing.T) {
	h := newHarness(t)
	h.eng.news = fakeNews{err: errors.New("feed down")}

	_, err := h.eng.Tick(context.Background())
	require.ErrorIs(t, err, ErrCollaboratorUnavailable)
}

func TestTickInsufficientData(t *testing.T) {
	h := newHarness(t)
	h.market.barCount = 10

	_, err := h.eng.Tick(context.Background())
	require.ErrorIs(t, err, ta.ErrInsufficientData)
	assert.Empty(t, h.eng.Snapshot().Snapshots)
}

func TestAbandonedTickLeavesBalanceUntouched(t *testing.T) {
	h := newHarness(t)
	h.market.barCount = 10

	_, err := h.eng.Tick(context.Background())
	require.Error(t, err)
	assert.Zero(t, h.eng.balance)
	assert.Zero(t, h.eng.initialBalance)
	assert.Zero(t, h.eng.Snapshot().InitialBalance)

	h.market.barCount = 0
	h.market.balance = 12000
	_, err = h.eng.Tick(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 12000, h.eng.Snapshot().InitialBalance, 1e-9)
}

func TestRefreshNeverTrades(t *testing.T) {
	h := newHarness(t)

	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	posID := res.Trades[0].PositionID

	// Past take-profit: a trading tick would close the position.
	h.now = t0.Add(time.Hour)
	h.market.mu.Lock()
	h.market.price = 48700
	h.market.mu.Unlock()

	res, err = h.eng.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.ActionHold, res.Action)
	assert.Empty(t, res.Trades)
	assert.Len(t, h.market.orders, 1)

	st := h.eng.Snapshot()
	require.Len(t, st.Positions, 1)
	assert.Equal(t, posID, st.Positions[0].ID)
	assert.InDelta(t, 48700, st.CurrentPrice, 1e-9)
	assert.Equal(t, int64(2), st.TickCount)
}

func TestTickSkipsShortTimeframes(t *testing.T) {
	h := newHarness(t)
	// Enough for scalping (30) and short (34), too few for medium (50) and trend (55).
	h.market.barCount = 40

	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)

	st := h.eng.Snapshot()
	assert.Contains(t, st.Snapshots, types.TFScalping)
	assert.Contains(t, st.Snapshots, types.TFShort)
	assert.NotContains(t, st.Snapshots, types.TFMedium)
	assert.NotContains(t, st.Snapshots, types.TFTrend)
	assert.Len(t, res.Trend.Votes, 2)
}

func TestTickAdvisorFailureReadsNeutral(t *testing.T) {
	tests := []struct {
		name string
		adv  fakeAdvisor
	}{
		{name: "error", adv: fakeAdvisor{err: errors.New("rate limited")}},
		{name: "out of range", adv: fakeAdvisor{sig: types.AdvisorySignal{Sentiment: types.Bullish, Confidence: 1.7}}},
		{name: "bad label", adv: fakeAdvisor{sig: types.AdvisorySignal{Sentiment: "moon", Confidence: 0.9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			*h.adv = tt.adv

			res, err := h.eng.Tick(context.Background())
			require.NoError(t, err)
			assert.Equal(t, types.Neutral, res.Advisory.Sentiment)
			assert.Zero(t, res.Advisory.Confidence)
			assert.Equal(t, types.ActionHold, res.Action)
			assert.Empty(t, res.Trades)
		})
	}
}

func TestTickFlatMarketHolds(t *testing.T) {
	h := newHarness(t)
	h.market.bars = flatBars(45000)

	res, err := h.eng.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Neutral, res.Trend.Direction)
	assert.InDelta(t, 1.0, res.Trend.Strength, 1e-9)
	assert.Equal(t, types.ActionHold, res.Action)

	snap := h.eng.Snapshot().Snapshots[types.TFShort]
	assert.InDelta(t, 50, snap.RSI, 1e-9)
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness(t)
	_, err := h.eng.Tick(context.Background())
	require.NoError(t, err)

	st := h.eng.Snapshot()
	require.NotEmpty(t, st.Positions)
	st.Positions[0].Size = 99
	st.Snapshots[types.TFShort] = types.Snapshot{}

	again := h.eng.Snapshot()
	assert.NotEqual(t, 99.0, again.Positions[0].Size)
	assert.NotZero(t, again.Snapshots[types.TFShort].RSI)
}

func TestConcurrentTicksSerialize(t *testing.T) {
	h := newHarness(t)
	h.market.bars = flatBars(45000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.eng.Tick(context.Background())
			_ = h.eng.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(8), h.eng.Snapshot().TickCount)
}
