package kite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"advisory-trading-bot/internal/types"
)

type fakeKite struct {
	ltp    float64
	ltpErr error
	net    float64
	orders []kiteconnect.OrderParams
}

func (f *fakeKite) GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error) {
	if f.ltpErr != nil {
		return nil, f.ltpErr
	}
	raw := map[string]map[string]any{}
	for _, i := range instruments {
		raw[i] = map[string]any{"instrument_token": 1, "last_price": f.ltp}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var q kiteconnect.QuoteLTP
	err = json.Unmarshal(b, &q)
	return q, err
}

func (f *fakeKite) GetHistoricalData(int, string, time.Time, time.Time, bool, bool) ([]kiteconnect.HistoricalData, error) {
	return nil, nil
}

func (f *fakeKite) GetUserMargins() (kiteconnect.AllMargins, error) {
	var m kiteconnect.AllMargins
	m.Equity.Net = f.net
	return m, nil
}

func (f *fakeKite) PlaceOrder(variety string, p kiteconnect.OrderParams) (kiteconnect.OrderResponse, error) {
	f.orders = append(f.orders, p)
	return kiteconnect.OrderResponse{OrderID: "230101000001"}, nil
}

func params(mode string) Params {
	return Params{Mode: mode, Exchange: "NSE", Symbol: "INFY", Product: "CNC", InstrumentToken: 408065}
}

func TestCurrentPriceAndBalance(t *testing.T) {
	t.Parallel()

	fk := &fakeKite{ltp: 1502.5, net: 250000}
	m := newWithClient(params("LIVE"), fk)

	p, err := m.CurrentPrice(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1502.5, p, 1e-9)

	bal, err := m.AccountBalance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 250000, bal, 1e-9)
}

func TestDryRunDoesNotPlaceOrders(t *testing.T) {
	t.Parallel()

	fk := &fakeKite{ltp: 1500}
	m := newWithClient(params("DRY_RUN"), fk)

	fill, err := m.SubmitOrder(context.Background(), types.OrderReq{Side: types.SideBuy, Size: 3.7, Price: 1490})
	require.NoError(t, err)
	assert.Empty(t, fk.orders)
	assert.Equal(t, "SIMULATED", fill.Status)
	assert.InDelta(t, 3, fill.Size, 1e-9)
	assert.InDelta(t, 1500, fill.Price, 1e-9)
}

func TestDryRunFallsBackToReferencePrice(t *testing.T) {
	t.Parallel()

	fk := &fakeKite{ltpErr: errors.New("down")}
	m := newWithClient(params("DRY_RUN"), fk)

	fill, err := m.SubmitOrder(context.Background(), types.OrderReq{Side: types.SideSell, Size: 2, Price: 1490})
	require.NoError(t, err)
	assert.InDelta(t, 1490, fill.Price, 1e-9)
}

func TestLiveOrder(t *testing.T) {
	t.Parallel()

	fk := &fakeKite{}
	m := newWithClient(params("LIVE"), fk)

	fill, err := m.SubmitOrder(context.Background(), types.OrderReq{Side: types.SideSell, Size: 5, Price: 1500, Tag: "OPPOSING_SIGNAL_CLOSE_X"})
	require.NoError(t, err)
	require.Len(t, fk.orders, 1)

	o := fk.orders[0]
	assert.Equal(t, "INFY", o.Tradingsymbol)
	assert.Equal(t, kiteconnect.TransactionTypeSell, o.TransactionType)
	assert.Equal(t, 5, o.Quantity)
	assert.Len(t, o.Tag, 20)
	assert.Equal(t, "230101000001", fill.OrderID)
}

func TestFractionalSizeRejected(t *testing.T) {
	t.Parallel()

	m := newWithClient(params("LIVE"), &fakeKite{})
	_, err := m.SubmitOrder(context.Background(), types.OrderReq{Side: types.SideBuy, Size: 0.4})
	require.Error(t, err)
}

func TestIntervalName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     time.Duration
		name   string
		native time.Duration
	}{
		{5 * time.Minute, "5minute", 5 * time.Minute},
		{time.Hour, "60minute", time.Hour},
		{4 * time.Hour, "60minute", time.Hour},
		{45 * time.Minute, "15minute", 15 * time.Minute},
	}
	for _, tt := range tests {
		name, native, err := intervalName(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.native, native)
	}

	_, _, err := intervalName(90 * time.Second)
	require.Error(t, err)
}

func TestResample(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	hourly := []types.Bar{
		{Ts: base, Open: 10, High: 12, Low: 9, Close: 11, Volume: 1},
		{Ts: base.Add(time.Hour), Open: 11, High: 15, Low: 10, Close: 14, Volume: 2},
		{Ts: base.Add(2 * time.Hour), Open: 14, High: 14, Low: 7, Close: 8, Volume: 3},
		{Ts: base.Add(3 * time.Hour), Open: 8, High: 9, Low: 8, Close: 9, Volume: 4},
		{Ts: base.Add(4 * time.Hour), Open: 9, High: 10, Low: 9, Close: 10, Volume: 5},
	}

	out := resample(hourly, 4*time.Hour, time.UTC, 0)
	require.Len(t, out, 2)
	assert.Equal(t, base, out[0].Ts)
	assert.InDelta(t, 10, out[0].Open, 1e-9)
	assert.InDelta(t, 15, out[0].High, 1e-9)
	assert.InDelta(t, 7, out[0].Low, 1e-9)
	assert.InDelta(t, 9, out[0].Close, 1e-9)
	assert.InDelta(t, 10, out[0].Volume, 1e-9)
	assert.Equal(t, base.Add(4*time.Hour), out[1].Ts)
}

func TestResampleAnchorsToSessionOpen(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 1, 9, 15, 0, 0, ist)
	var hourly []types.Bar
	for i := 0; i < 7; i++ { // 09:15 ... 15:15
		hourly = append(hourly, types.Bar{Ts: day.Add(time.Duration(i) * time.Hour), Open: 1, High: 2, Low: 1, Close: 1, Volume: 1})
	}
	next := day.AddDate(0, 0, 1)
	hourly = append(hourly, types.Bar{Ts: next, Open: 1, High: 2, Low: 1, Close: 1, Volume: 1})

	out := resample(hourly, 4*time.Hour, ist, nseOpen)
	require.Len(t, out, 3)
	assert.True(t, out[0].Ts.Equal(day))
	assert.InDelta(t, 4, out[0].Volume, 1e-9)
	assert.True(t, out[1].Ts.Equal(day.Add(4*time.Hour)))
	assert.InDelta(t, 3, out[1].Volume, 1e-9)
	assert.True(t, out[2].Ts.Equal(next))
}

func TestBucketStartBeforeOpen(t *testing.T) {
	t.Parallel()

	// 08:00 IST is in the bucket that began at 05:15.
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, ist)
	got := bucketStart(ts, 4*time.Hour, ist, nseOpen)
	assert.True(t, got.Equal(time.Date(2024, 3, 1, 5, 15, 0, 0, ist)))
}
