package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleFirstTradeAllowed(t *testing.T) {
	t.Parallel()

	th := NewThrottle(5*time.Minute, 0.2, time.UTC)
	assert.NoError(t, th.Allow(t0, true))
	assert.NoError(t, th.Allow(t0, false))
}

func TestThrottleCooldown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		allowed bool
	}{
		{"4 minutes", 4 * time.Minute, false},
		{"just under", 5*time.Minute - time.Second, false},
		{"exactly cooldown", 5 * time.Minute, true},
		{"6 minutes", 6 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			th := NewThrottle(5*time.Minute, 1, time.UTC)
			th.Record(t0, false)

			err := th.Allow(t0.Add(tt.elapsed), false)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrThrottled)
				assert.NotErrorIs(t, err, ErrQuotaExceeded)
			}
		})
	}
}

func TestThrottleAdvisoryQuota(t *testing.T) {
	t.Parallel()

	th := NewThrottle(0, 0.2, time.UTC)
	// 10 trades today, 2 of them advisory-confirmed.
	for i := 0; i < 10; i++ {
		th.Record(t0.Add(time.Duration(i)*time.Minute), i < 2)
	}
	total, adv := th.Counts(t0.Add(time.Hour))
	require.Equal(t, 10, total)
	require.Equal(t, 2, adv)

	err := th.Allow(t0.Add(time.Hour), true)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.ErrorIs(t, err, ErrThrottled)

	// Non-advisory entries are not subject to the quota.
	assert.NoError(t, th.Allow(t0.Add(time.Hour), false))
}

func TestThrottleQuotaWithRoom(t *testing.T) {
	t.Parallel()

	th := NewThrottle(0, 0.2, time.UTC)
	for i := 0; i < 10; i++ {
		th.Record(t0, false)
	}
	// (0+1)/(10+1) is under 0.2.
	assert.NoError(t, th.Allow(t0, true))
}

func TestThrottleDayRollover(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+5:30", 5*3600+1800)
	th := NewThrottle(0, 0.2, loc)

	// 19:00 UTC on Mar 1 is already Mar 2 in loc.
	late := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	th.Record(late.Add(-2*time.Hour), true)
	th.Record(late.Add(-time.Hour), false)

	total, _ := th.Counts(late.Add(-time.Hour))
	assert.Equal(t, 2, total)

	total, adv := th.Counts(late)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, adv)
	assert.NoError(t, th.Allow(late, true))
	assert.Equal(t, late.Add(-time.Hour), th.LastTradeAt())
}

func TestDayKey(t *testing.T) {
	t.Parallel()

	ny := time.FixedZone("EST", -5*3600)
	ts := time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-02", dayKey(ts, time.UTC))
	assert.Equal(t, "2024-03-01", dayKey(ts, ny))
}
