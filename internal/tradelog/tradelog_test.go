package tradelog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisory-trading-bot/internal/types"
)

func TestAppend_NewestFirstAndCapped(t *testing.T) {
	t.Parallel()

	l := New(DefaultCapacity)
	for i := 0; i < 60; i++ {
		l.Append(types.TradeRecord{ID: fmt.Sprintf("t%02d", i)})
	}

	got := l.Entries()
	require.Len(t, got, 50)
	assert.Equal(t, "t59", got[0].ID)
	assert.Equal(t, "t10", got[49].ID)

	latest, ok := l.Latest()
	require.True(t, ok)
	assert.Equal(t, "t59", latest.ID)
}

func TestEntries_ReturnsCopy(t *testing.T) {
	t.Parallel()

	l := New(3)
	l.Append(types.TradeRecord{ID: "a"})
	got := l.Entries()
	got[0].ID = "mutated"

	assert.Equal(t, "a", l.Entries()[0].ID)
	assert.Equal(t, 1, l.Len())
}

func TestLatest_Empty(t *testing.T) {
	t.Parallel()

	_, ok := New(0).Latest()
	assert.False(t, ok)
}
