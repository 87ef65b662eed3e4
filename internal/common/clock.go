package common

import (
	"time"

	"github.com/semweave/semweave/internal/types/interfaces"
)

// SystemClock is the wall-clock implementation of interfaces.Clock.
type SystemClock struct{}

// NewSystemClock creates the production clock.
func NewSystemClock() interfaces.Clock {
	return SystemClock{}
}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant; tests use it to make claim
// timestamps and checkpoints deterministic.
type FixedClock struct {
	Instant time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.Instant }
