package input

import (
	"context"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// DefaultResolution is the length of one tick.
const DefaultResolution = 100 * time.Millisecond

// Clock is a monotonic tick source.
type Clock interface {
	Now() logic.Tick
}

// Yielder suspends the caller between polls so other work can run.
type Yielder interface {
	Yield(ctx context.Context) error
}

// YieldFunc adapts a function to the Yielder interface.
type YieldFunc func(ctx context.Context) error

// Yield calls f(ctx).
func (f YieldFunc) Yield(ctx context.Context) error {
	return f(ctx)
}

// RealClock counts ticks of a fixed resolution since it was created.
// The count is truncated to 32 bits and wraps like a hardware tick counter.
type RealClock struct {
	start      time.Time
	resolution time.Duration
	now        func() time.Time
}

// NewRealClock starts a clock. A non-positive resolution selects DefaultResolution.
func NewRealClock(resolution time.Duration) *RealClock {
	return newRealClock(resolution, time.Now)
}

func newRealClock(resolution time.Duration, now func() time.Time) *RealClock {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &RealClock{start: now(), resolution: resolution, now: now}
}

// Now returns the number of whole ticks since the clock started, mod 2^32.
func (c *RealClock) Now() logic.Tick {
	return logic.Tick(uint64(c.now().Sub(c.start) / c.resolution))
}

// Resolution returns the tick length.
func (c *RealClock) Resolution() time.Duration {
	return c.resolution
}

// SleepYielder yields by sleeping for a fixed interval.
type SleepYielder struct {
	Interval time.Duration
}

// Yield sleeps for Interval or until ctx is done.
func (y SleepYielder) Yield(ctx context.Context) error {
	t := time.NewTimer(y.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
