package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"advisory-trading-bot/internal/interfaces"
	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/types"
)

// Controller is the run/stop state machine around the engine. While running,
// a cron schedule fires ticks; a tick still in flight causes the next one to be skipped.
type Controller struct {
	engine interfaces.Engine
	every  time.Duration

	mu     sync.Mutex
	state  types.RunState
	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewController(eng interfaces.Engine, every time.Duration) *Controller {
	return &Controller{engine: eng, every: every, state: types.Stopped}
}

func (c *Controller) State() types.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start schedules ticks every interval. Calling Start while running is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == types.Running {
		return nil
	}

	cl := cronLogger{}
	cr := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	// Ticks outlive the request that started the bot; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if _, err := cr.AddFunc(fmt.Sprintf("@every %s", c.every), func() { c.tick(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("schedule ticks: %w", err)
	}
	cr.Start()

	c.cron = cr
	c.cancel = cancel
	c.state = types.Running
	logger.Info(ctx, "Bot started", "interval", c.every.String())
	return nil
}

// Stop prevents further ticks and waits for an in-flight tick to finish, or
// for ctx to end. Calling Stop while stopped is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state == types.Stopped {
		c.mu.Unlock()
		return nil
	}
	done := c.cron.Stop()
	cancel := c.cancel
	c.cron = nil
	c.cancel = nil
	c.state = types.Stopped
	c.mu.Unlock()

	// The tick context is released only once the in-flight tick has returned,
	// even when the caller gives up waiting.
	go func() {
		<-done.Done()
		cancel()
	}()

	select {
	case <-done.Done():
		logger.Info(ctx, "Bot stopped")
		return nil
	case <-ctx.Done():
		logger.Warn(ctx, "Bot stop timed out waiting for in-flight tick, it will complete in the background")
		return ctx.Err()
	}
}

// TickNow runs a trading cycle immediately. It is refused while stopped.
func (c *Controller) TickNow(ctx context.Context) (*types.TickResult, error) {
	if c.State() != types.Running {
		return nil, ErrNotRunning
	}
	return c.engine.Tick(ctx)
}

// Refresh re-evaluates the market and publishes a new snapshot without
// trading, in any run state.
func (c *Controller) Refresh(ctx context.Context) (*types.TickResult, error) {
	return c.engine.Refresh(ctx)
}

// Snapshot is the engine's published state with the current run state applied.
func (c *Controller) Snapshot() types.BotState {
	s := c.engine.Snapshot()
	s.RunState = c.State()
	return s
}

func (c *Controller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// Errors are logged by the engine and surface in the snapshot's LastError.
	_, _ = c.engine.Tick(ctx)
}

// cronLogger routes cron's own messages (skips, recovered panics) to the bot logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.ErrorWithErr(context.Background(), "cron: "+msg, err, keysAndValues...)
}
