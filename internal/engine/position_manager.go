package engine

import (
	"fmt"
	"time"

	"advisory-trading-bot/internal/types"
)

// positionManager owns the open positions, in the order they were opened.
type positionManager struct {
	max       int
	positions []types.Position
}

func newPositionManager(max int) *positionManager {
	return &positionManager{max: max}
}

func (pm *positionManager) count() int {
	return len(pm.positions)
}

// canOpen is checked before an order is submitted so a full book never sends one.
func (pm *positionManager) canOpen() error {
	if len(pm.positions) >= pm.max {
		return fmt.Errorf("%d of %d open: %w", len(pm.positions), pm.max, ErrMaxPositionsExceeded)
	}
	return nil
}

func (pm *positionManager) open(id string, side types.Side, price, size float64, at time.Time) (types.Position, error) {
	if err := pm.canOpen(); err != nil {
		return types.Position{}, err
	}
	p := types.Position{ID: id, Side: side, EntryPrice: price, Size: size, OpenedAt: at}
	pm.positions = append(pm.positions, p)
	return p, nil
}

func (pm *positionManager) get(id string) (types.Position, bool) {
	for _, p := range pm.positions {
		if p.ID == id {
			return p, true
		}
	}
	return types.Position{}, false
}

// close removes the position and returns the closing trade, with profit
// measured against that position's own entry and size.
func (pm *positionManager) close(id string, price float64, at time.Time, tradeID, reason string) (types.TradeRecord, error) {
	for i, p := range pm.positions {
		if p.ID != id {
			continue
		}
		pm.positions = append(pm.positions[:i], pm.positions[i+1:]...)
		profit := realizedProfit(p, price)
		return types.TradeRecord{
			ID:         tradeID,
			Side:       p.Side.Opposite(),
			Price:      price,
			Size:       p.Size,
			Timestamp:  at,
			Profit:     &profit,
			PositionID: p.ID,
			Reason:     reason,
		}, nil
	}
	return types.TradeRecord{}, fmt.Errorf("close %s: %w", id, ErrPositionNotFound)
}

// list returns a copy so callers can close positions while iterating.
func (pm *positionManager) list() []types.Position {
	return append([]types.Position(nil), pm.positions...)
}

func (pm *positionManager) bySide(side types.Side) []types.Position {
	var out []types.Position
	for _, p := range pm.positions {
		if p.Side == side {
			out = append(out, p)
		}
	}
	return out
}

func realizedProfit(p types.Position, exit float64) float64 {
	if p.Side == types.SideSell {
		return (p.EntryPrice - exit) * p.Size
	}
	return (exit - p.EntryPrice) * p.Size
}
