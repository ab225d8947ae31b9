package kite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"advisory-trading-bot/internal/id"
	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/types"
)

// kiteAPI is the subset of the Kite Connect client the adapter calls.
type kiteAPI interface {
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
	GetUserMargins() (kiteconnect.AllMargins, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
}

type Params struct {
	Mode            string // DRY_RUN simulates fills; LIVE places real orders
	APIKey          string
	AccessToken     string
	Exchange        string
	Symbol          string
	Product         string
	InstrumentToken int
	Intervals       map[types.Timeframe]time.Duration
	// Location and SessionOpen anchor resampled candles to the trading
	// session. Zero values mean NSE: 09:15 IST.
	Location    *time.Location
	SessionOpen time.Duration
}

var ist = time.FixedZone("IST", 5*3600+1800)

const nseOpen = 9*time.Hour + 15*time.Minute

// Market reads prices, candles and margins from Kite Connect.
type Market struct {
	p   Params
	kc  kiteAPI
	now func() time.Time
}

var _ interfaces.MarketData = (*Market)(nil)

func New(p Params) (*Market, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return newWithClient(p, kc), nil
}

func newWithClient(p Params, kc kiteAPI) *Market {
	if p.Location == nil {
		p.Location = ist
		if p.SessionOpen == 0 {
			p.SessionOpen = nseOpen
		}
	}
	return &Market{p: p, kc: kc, now: time.Now}
}

func (m *Market) instrument() string {
	return m.p.Exchange + ":" + m.p.Symbol
}

func (m *Market) CurrentPrice(ctx context.Context) (float64, error) {
	q, err := m.kc.GetLTP(m.instrument())
	if err != nil {
		return 0, fmt.Errorf("ltp %s: %w", m.instrument(), err)
	}
	ltp, ok := q[m.instrument()]
	if !ok {
		return 0, fmt.Errorf("ltp %s: instrument missing from response", m.instrument())
	}
	return ltp.LastPrice, nil
}

func (m *Market) HistoricalBars(ctx context.Context, tf types.Timeframe, limit int) ([]types.Bar, error) {
	if m.p.InstrumentToken == 0 {
		return nil, errors.New("instrument_token not configured")
	}
	interval, ok := m.p.Intervals[tf]
	if !ok {
		return nil, fmt.Errorf("no interval configured for timeframe %q", tf)
	}
	kiteInterval, native, err := intervalName(interval)
	if err != nil {
		return nil, err
	}

	// Markets are closed roughly two thirds of the day, so overfetch.
	to := m.now()
	from := to.Add(-time.Duration(limit) * interval * 3)

	data, err := m.kc.GetHistoricalData(m.p.InstrumentToken, kiteInterval, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("historical %s %s: %w", m.p.Symbol, kiteInterval, err)
	}

	bars := make([]types.Bar, 0, len(data))
	for _, d := range data {
		bars = append(bars, types.Bar{
			Ts:     d.Date.Time,
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: float64(d.Volume),
		})
	}
	if native != interval {
		bars = resample(bars, interval, m.p.Location, m.p.SessionOpen)
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

func (m *Market) AccountBalance(ctx context.Context) (float64, error) {
	mg, err := m.kc.GetUserMargins()
	if err != nil {
		return 0, fmt.Errorf("margins: %w", err)
	}
	return mg.Equity.Net, nil
}

// SubmitOrder places a market order for the whole-share part of the size.
// In DRY_RUN the order is filled locally at the last traded price.
func (m *Market) SubmitOrder(ctx context.Context, req types.OrderReq) (types.Fill, error) {
	qty := int(math.Floor(req.Size))
	if qty < 1 {
		return types.Fill{}, fmt.Errorf("size %v is below one share", req.Size)
	}

	if m.p.Mode == "DRY_RUN" {
		price := req.Price
		if ltp, err := m.CurrentPrice(ctx); err == nil {
			price = ltp
		}
		fill := types.Fill{
			OrderID: "SIM-" + id.NewAt(m.now()),
			Side:    req.Side,
			Price:   price,
			Size:    float64(qty),
			Status:  "SIMULATED",
		}
		logger.Info(ctx, "Simulated order placed", "symbol", m.p.Symbol, "side", req.Side, "qty", qty, "order_id", fill.OrderID)
		return fill, nil
	}

	var txn string
	switch req.Side {
	case types.SideBuy:
		txn = kiteconnect.TransactionTypeBuy
	case types.SideSell:
		txn = kiteconnect.TransactionTypeSell
	default:
		return types.Fill{}, fmt.Errorf("unknown side %q", req.Side)
	}

	resp, err := m.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        m.p.Exchange,
		Tradingsymbol:   m.p.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         m.p.Product,
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: txn,
		Quantity:        qty,
		Tag:             truncateTag(req.Tag),
	})
	if err != nil {
		return types.Fill{}, fmt.Errorf("place order: %w", err)
	}

	logger.Info(ctx, "Live order placed", "symbol", m.p.Symbol, "side", req.Side, "qty", qty, "order_id", resp.OrderID)
	return types.Fill{
		OrderID: resp.OrderID,
		Side:    req.Side,
		Price:   req.Price,
		Size:    float64(qty),
		Status:  "PLACED",
	}, nil
}

var intervalNames = map[time.Duration]string{
	time.Minute:      "minute",
	3 * time.Minute:  "3minute",
	5 * time.Minute:  "5minute",
	10 * time.Minute: "10minute",
	15 * time.Minute: "15minute",
	30 * time.Minute: "30minute",
	time.Hour:        "60minute",
	24 * time.Hour:   "day",
}

// intervalName maps a bar duration onto a Kite candle interval. Durations
// Kite does not serve fall back to the largest one that divides them, and the
// caller resamples.
func intervalName(d time.Duration) (string, time.Duration, error) {
	if n, ok := intervalNames[d]; ok {
		return n, d, nil
	}
	best := time.Duration(0)
	for k := range intervalNames {
		if k <= d && d%k == 0 && k > best {
			best = k
		}
	}
	if best == 0 {
		return "", 0, fmt.Errorf("unsupported candle interval %s", d)
	}
	return intervalNames[best], best, nil
}

// resample merges consecutive bars into buckets of d. Buckets start at the
// session open of each local day, so 60minute NSE candles (09:15 ... 15:15)
// become a 09:15 and a 13:15 bar rather than UTC-aligned fragments.
func resample(bars []types.Bar, d time.Duration, loc *time.Location, open time.Duration) []types.Bar {
	out := make([]types.Bar, 0, len(bars))
	for _, b := range bars {
		start := bucketStart(b.Ts, d, loc, open)
		if n := len(out); n > 0 && out[n-1].Ts.Equal(start) {
			last := &out[n-1]
			last.High = max(last.High, b.High)
			last.Low = min(last.Low, b.Low)
			last.Close = b.Close
			last.Volume += b.Volume
			continue
		}
		b.Ts = start
		out = append(out, b)
	}
	return out
}

func bucketStart(ts time.Time, d time.Duration, loc *time.Location, open time.Duration) time.Time {
	lt := ts.In(loc)
	anchor := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc).Add(open)
	off := lt.Sub(anchor)
	n := off / d
	if off < 0 && off%d != 0 {
		n--
	}
	return anchor.Add(n * d)
}

// Kite caps order tags at 20 characters.
func truncateTag(tag string) string {
	if len(tag) > 20 {
		return tag[:20]
	}
	return tag
}
