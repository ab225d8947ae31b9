package engine

import (
	"errors"
	"fmt"
)

var (
	ErrMaxPositionsExceeded = errors.New("max open positions reached")
	ErrPositionNotFound     = errors.New("position not found")
	// ErrThrottled marks an entry skipped by the trade throttle. It is expected, not a failure.
	ErrThrottled = errors.New("trade throttled")
	// ErrQuotaExceeded is the advisory-share flavour of ErrThrottled.
	ErrQuotaExceeded = fmt.Errorf("advisory quota exceeded: %w", ErrThrottled)
	// ErrCollaboratorUnavailable wraps market, news or order failures that abandon a tick.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrNotRunning is returned when a trading tick is requested from a stopped bot.
	ErrNotRunning = errors.New("bot is not running")
)
