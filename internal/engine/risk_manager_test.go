package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisory-trading-bot/internal/types"
)

func TestSizePosition(t *testing.T) {
	t.Parallel()

	rm := newRiskManager(0.05, 0.08, 0.05)
	assert.InDelta(t, 0.011111, rm.sizePosition(10000, 45000), 1e-6)
	assert.Zero(t, rm.sizePosition(0, 45000))
	assert.Zero(t, rm.sizePosition(10000, 0))
}

func TestExitReason(t *testing.T) {
	t.Parallel()

	rm := newRiskManager(0.05, 0.08, 0.05)
	long := types.Position{ID: "L", Side: types.SideBuy, EntryPrice: 45000, Size: 0.01}
	short := types.Position{ID: "S", Side: types.SideSell, EntryPrice: 45000, Size: 0.01}

	tests := []struct {
		name   string
		pos    types.Position
		price  float64
		reason string
		exit   bool
	}{
		{"long take profit", long, 48700, reasonTakeProfit, true},
		{"long at threshold", long, 48600, reasonTakeProfit, true},
		{"long inside band", long, 46000, "", false},
		{"long stop loss", long, 42750, reasonStopLoss, true},
		{"short take profit", short, 41000, reasonTakeProfit, true},
		{"short stop loss", short, 47300, reasonStopLoss, true},
		{"short inside band", short, 44000, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reason, ok := rm.exitReason(context.Background(), tt.pos, tt.price)
			assert.Equal(t, tt.exit, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestTakeProfitWinsOverStopLoss(t *testing.T) {
	t.Parallel()

	// Zero thresholds make both rules fire on an unchanged price.
	rm := newRiskManager(0.05, 0, 0)
	reason, ok := rm.exitReason(context.Background(), types.Position{Side: types.SideBuy, EntryPrice: 100}, 100)
	require.True(t, ok)
	assert.Equal(t, reasonTakeProfit, reason)
}

func TestPositionManager(t *testing.T) {
	t.Parallel()

	pm := newPositionManager(3)
	for _, id := range []string{"a", "b", "c"} {
		_, err := pm.open(id, types.SideBuy, 45000, 0.01, t0)
		require.NoError(t, err)
	}

	_, err := pm.open("d", types.SideBuy, 45000, 0.01, t0)
	assert.ErrorIs(t, err, ErrMaxPositionsExceeded)
	assert.Equal(t, 3, pm.count())

	tr, err := pm.close("b", 48700, t0, "T1", reasonTakeProfit)
	require.NoError(t, err)
	assert.Equal(t, types.SideSell, tr.Side)
	assert.Equal(t, "b", tr.PositionID)
	require.NotNil(t, tr.Profit)
	assert.InDelta(t, 37, *tr.Profit, 1e-9)

	_, ok := pm.get("b")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "c"}, []string{pm.list()[0].ID, pm.list()[1].ID})

	_, err = pm.close("b", 48700, t0, "T2", reasonTakeProfit)
	assert.ErrorIs(t, err, ErrPositionNotFound)

	assert.NoError(t, pm.canOpen())
}

func TestRealizedProfitShort(t *testing.T) {
	t.Parallel()

	p := types.Position{Side: types.SideSell, EntryPrice: 45000, Size: 0.1}
	assert.InDelta(t, 400, realizedProfit(p, 41000), 1e-9)
	assert.InDelta(t, -200, realizedProfit(p, 47000), 1e-9)
}

func TestCashFlow(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, -450, cashFlow(types.SideBuy, 45000, 0.01), 1e-9)
	assert.InDelta(t, 487, cashFlow(types.SideSell, 48700, 0.01), 1e-9)
}
