package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"advisory-trading-bot/internal/advisor"
	"advisory-trading-bot/internal/id"
	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/signal"
	"advisory-trading-bot/internal/store"
	"advisory-trading-bot/internal/ta"
	"advisory-trading-bot/internal/tradelog"
	"advisory-trading-bot/internal/trend"
	"advisory-trading-bot/internal/types"
)

// Engine runs one evaluation cycle per Tick. It is the only writer of trading
// state; readers get immutable copies through Snapshot.
type Engine struct {
	cfg      *store.Config
	market   interfaces.MarketData
	news     interfaces.NewsSource
	advisor  interfaces.Advisor
	combiner *signal.Combiner
	risk     *riskManager
	pos      *positionManager
	exec     *orderExecutor
	throttle *Throttle
	trades   *tradelog.Log
	periods  map[types.Timeframe]ta.Periods
	now      func() time.Time

	mu             sync.Mutex // serializes ticks
	balance        float64
	initialBalance float64
	tickCount      int64
	state          atomic.Pointer[types.BotState]
}

type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithThrottle injects a shared throttle instead of building one from config.
func WithThrottle(t *Throttle) Option {
	return func(e *Engine) { e.throttle = t }
}

func newEngine(cfg *store.Config, market interfaces.MarketData, news interfaces.NewsSource, adv interfaces.Advisor, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		market:   market,
		news:     news,
		advisor:  adv,
		combiner: signal.NewCombiner(cfg.Signal),
		risk:     newRiskManager(cfg.Risk.PositionSizePct, cfg.Risk.TakeProfitPct, cfg.Risk.StopLossPct),
		pos:      newPositionManager(cfg.Risk.MaxOpenPositions),
		exec:     newOrderExecutor(market),
		trades:   tradelog.New(cfg.TradeLogSize),
		periods:  cfg.Timeframes,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.throttle == nil {
		loc, err := cfg.Location()
		if err != nil {
			loc = time.Local
		}
		e.throttle = NewThrottle(cfg.Cooldown(), cfg.Throttle.AdvisoryQuota, loc)
	}
	e.state.Store(&types.BotState{RunState: types.Stopped, Snapshots: map[types.Timeframe]types.Snapshot{}})
	return e
}

// Snapshot returns a deep copy of the last published state.
func (e *Engine) Snapshot() types.BotState {
	return e.state.Load().Clone()
}

type tickInputs struct {
	price   float64
	balance float64
	bars    map[types.Timeframe][]types.Bar
	news    []types.NewsItem
}

// fetch gathers everything the tick needs concurrently. Any failure abandons the tick.
func (e *Engine) fetch(ctx context.Context) (*tickInputs, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TickTimeout())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	in := &tickInputs{}

	g.Go(func() error {
		p, err := e.market.CurrentPrice(gctx)
		if err != nil {
			return fmt.Errorf("current price: %w", err)
		}
		in.price = p
		return nil
	})
	g.Go(func() error {
		b, err := e.market.AccountBalance(gctx)
		if err != nil {
			return fmt.Errorf("account balance: %w", err)
		}
		in.balance = b
		return nil
	})
	g.Go(func() error {
		n, err := e.news.LatestHeadlines(gctx)
		if err != nil {
			return fmt.Errorf("headlines: %w", err)
		}
		in.news = n
		return nil
	})

	tfs := types.AllTimeframes
	bars := make([][]types.Bar, len(tfs))
	for i, tf := range tfs {
		i, tf := i, tf
		p, ok := e.periods[tf]
		if !ok {
			continue
		}
		g.Go(func() error {
			b, err := e.market.HistoricalBars(gctx, tf, p.FetchLimit())
			if err != nil {
				return fmt.Errorf("%s bars: %w", tf, err)
			}
			bars[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
	}

	in.bars = make(map[types.Timeframe][]types.Bar, len(tfs))
	for i, tf := range tfs {
		if bars[i] != nil {
			in.bars[tf] = bars[i]
		}
	}
	return in, nil
}

// snapshots computes every timeframe it can; a timeframe that fails is left out.
func (e *Engine) snapshots(ctx context.Context, bars map[types.Timeframe][]types.Bar) map[types.Timeframe]types.Snapshot {
	out := make(map[types.Timeframe]types.Snapshot, len(bars))
	for _, tf := range types.AllTimeframes {
		b, ok := bars[tf]
		if !ok {
			continue
		}
		snap, err := ta.Compute(b, tf, e.periods[tf])
		if err != nil {
			logger.Warn(ctx, "Timeframe excluded from tick", "timeframe", tf, "bars", len(b), "error", err)
			continue
		}
		out[tf] = snap
	}
	return out
}

// evaluateAdvisory never fails: an unavailable or malformed advisory reads as neutral.
func (e *Engine) evaluateAdvisory(ctx context.Context, news []types.NewsItem, short types.Snapshot, price float64) types.AdvisorySignal {
	sig, err := e.advisor.Evaluate(ctx, news, short, price)
	if err != nil {
		logger.Warn(ctx, "Advisory unavailable, treating as neutral", "error", err)
		return types.NeutralSignal("advisory unavailable")
	}
	sig, err = advisor.Validate(sig)
	if err != nil {
		logger.Warn(ctx, "Advisory rejected, treating as neutral", "error", err)
		return types.NeutralSignal("advisory rejected")
	}
	return sig
}

// Tick runs one full cycle: fetch, indicators, advisory, trend, exits, entry.
func (e *Engine) Tick(ctx context.Context) (*types.TickResult, error) {
	return e.cycle(ctx, true)
}

// Refresh fetches and evaluates the market and publishes the result, but
// never closes or opens a position.
func (e *Engine) Refresh(ctx context.Context) (*types.TickResult, error) {
	return e.cycle(ctx, false)
}

func (e *Engine) cycle(ctx context.Context, trade bool) (*types.TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	res := &types.TickResult{TickID: uuid.NewString(), Time: now, Action: types.ActionHold}
	logger.Debug(ctx, "Starting tick", "tick_id", res.TickID)

	in, err := e.fetch(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Tick abandoned: fetch failed", err, "tick_id", res.TickID)
		e.publishError(now, err)
		return nil, err
	}

	snaps := e.snapshots(ctx, in.bars)
	if len(snaps) == 0 {
		err := fmt.Errorf("no timeframe has enough bars: %w", ta.ErrInsufficientData)
		logger.ErrorWithErr(ctx, "Tick abandoned", err, "tick_id", res.TickID)
		e.publishError(now, err)
		return nil, err
	}

	e.balance = in.balance
	if e.initialBalance == 0 {
		e.initialBalance = in.balance
	}
	res.Price = in.price

	short, hasShort := snaps[types.TFShort]
	res.Advisory = types.NeutralSignal("short-term snapshot unavailable")
	if hasShort {
		res.Advisory = e.evaluateAdvisory(ctx, in.news, short, in.price)
	}
	res.Trend = trend.Analyze(snaps)
	logger.Debug(ctx, "Market evaluated",
		"tick_id", res.TickID,
		"price", in.price,
		"trend", res.Trend.Direction,
		"trend_strength", res.Trend.Strength,
		"advisory", res.Advisory.Sentiment,
		"advisory_confidence", res.Advisory.Confidence,
		"timeframes", len(snaps),
	)

	if trade {
		err = e.runExits(ctx, now, in.price, res)
		if err == nil {
			if hasShort {
				err = e.runEntry(ctx, now, in.price, short, res)
			} else {
				res.Reason = "short-term snapshot unavailable"
			}
		}
	} else {
		res.Reason = "evaluation only"
	}

	e.publish(now, in, snaps, res, err)
	if err != nil {
		logger.ErrorWithErr(ctx, "Tick aborted during execution", err, "tick_id", res.TickID, "trades", len(res.Trades))
		return nil, err
	}
	return res, nil
}

// runExits closes every position whose take-profit or stop-loss fires.
// Exits skip the cooldown and count as non-advisory trades.
func (e *Engine) runExits(ctx context.Context, now time.Time, price float64, res *types.TickResult) error {
	for _, p := range e.pos.list() {
		reason, ok := e.risk.exitReason(ctx, p, price)
		if !ok {
			continue
		}
		if err := e.closePosition(ctx, p, price, now, reason, false, res); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runEntry(ctx context.Context, now time.Time, price float64, short types.Snapshot, res *types.TickResult) error {
	rec := e.combiner.Combine(signal.Input{Trend: res.Trend, Advisory: res.Advisory, Short: short, Price: price})
	res.Reason = rec.Reason
	logger.Decision(ctx, string(rec.Action), res.Trend.Strength, rec.Reason,
		"tick_id", res.TickID,
		"advisory_confidence", res.Advisory.Confidence,
	)
	if rec.Action == types.ActionHold {
		return nil
	}

	if err := e.throttle.Allow(now, rec.Advisory); err != nil {
		logger.Debug(ctx, "Entry throttled", "tick_id", res.TickID, "action", rec.Action, "error", err)
		res.Reason = err.Error()
		return nil
	}

	side := types.Side(rec.Action)

	// An opposing signal only flattens the other side this tick.
	if opposing := e.pos.bySide(side.Opposite()); len(opposing) > 0 {
		for _, p := range opposing {
			if err := e.closePosition(ctx, p, price, now, reasonOpposing, rec.Advisory, res); err != nil {
				return err
			}
		}
		res.Action = rec.Action
		return nil
	}

	if err := e.pos.canOpen(); err != nil {
		logger.Risk(ctx, "MAX_POSITIONS", "tick_id", res.TickID, "open", e.pos.count(), "error", err)
		res.Reason = err.Error()
		return nil
	}
	size := e.risk.sizePosition(e.balance, price)
	if size <= 0 {
		res.Reason = "position size is zero"
		return nil
	}

	fill, err := e.exec.submit(ctx, side, size, price, reasonSignal)
	if err != nil {
		return err
	}
	pos, err := e.pos.open(id.NewAt(now), side, fill.Price, fill.Size, now)
	if err != nil {
		// canOpen passed above and only this goroutine mutates positions.
		return err
	}
	tr := types.TradeRecord{
		ID:         id.NewAt(now),
		Side:       side,
		Price:      fill.Price,
		Size:       fill.Size,
		Timestamp:  now,
		PositionID: pos.ID,
		Reason:     reasonSignal,
		Advisory:   rec.Advisory,
	}
	e.applyTrade(ctx, tr, now, res)
	res.Action = rec.Action
	return nil
}

func (e *Engine) closePosition(ctx context.Context, p types.Position, price float64, now time.Time, reason string, advisory bool, res *types.TickResult) error {
	fill, err := e.exec.submit(ctx, p.Side.Opposite(), p.Size, price, reason)
	if err != nil {
		return err
	}
	tr, err := e.pos.close(p.ID, fill.Price, now, id.NewAt(now), reason)
	if err != nil {
		return err
	}
	tr.Advisory = advisory
	e.applyTrade(ctx, tr, now, res)
	return nil
}

// applyTrade records an executed trade everywhere it needs to go.
func (e *Engine) applyTrade(ctx context.Context, tr types.TradeRecord, now time.Time, res *types.TickResult) {
	e.balance += cashFlow(tr.Side, tr.Price, tr.Size)
	e.trades.Append(tr)
	e.throttle.Record(now, tr.Advisory)
	res.Trades = append(res.Trades, tr)

	fields := []any{"position_id", tr.PositionID, "reason", tr.Reason, "advisory", tr.Advisory, "balance", e.balance}
	if tr.Profit != nil {
		fields = append(fields, "profit", *tr.Profit)
	}
	logger.Trade(ctx, string(tr.Side), tr.Size, tr.Price, tr.ID, fields...)
}

func (e *Engine) publish(now time.Time, in *tickInputs, snaps map[types.Timeframe]types.Snapshot, res *types.TickResult, tickErr error) {
	e.tickCount++
	s := types.BotState{
		RunState:       types.Stopped,
		Balance:        e.balance,
		InitialBalance: e.initialBalance,
		CurrentPrice:   in.price,
		Snapshots:      snaps,
		Trend:          res.Trend,
		Advisory:       res.Advisory,
		Positions:      e.pos.list(),
		Trades:         e.trades.Entries(),
		RecentNews:     in.news,
		LastTradeAt:    e.throttle.LastTradeAt(),
		LastTickAt:     now,
		TickCount:      e.tickCount,
	}
	if tickErr != nil {
		s.LastError = tickErr.Error()
	}
	s = s.Clone()
	e.state.Store(&s)
}

// publishError keeps the previous market view and records why the tick failed.
func (e *Engine) publishError(now time.Time, tickErr error) {
	e.tickCount++
	s := e.state.Load().Clone()
	s.LastTickAt = now
	s.TickCount = e.tickCount
	s.LastError = tickErr.Error()
	if errors.Is(tickErr, context.Canceled) {
		s.LastError = "tick cancelled"
	}
	e.state.Store(&s)
}
