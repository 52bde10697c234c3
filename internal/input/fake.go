package input

import (
	"context"

	"github.com/sweeney/button-sensor/internal/logic"
)

// FakeClock is a manually driven clock. It also implements Yielder: every
// Yield advances the clock by Step ticks, which simulates one poll interval
// passing while the caller is suspended.
type FakeClock struct {
	T    logic.Tick
	Step logic.Tick

	// Yields counts calls to Yield.
	Yields int
}

// NewFakeClock creates a clock at start that advances one tick per yield.
func NewFakeClock(start logic.Tick) *FakeClock {
	return &FakeClock{T: start, Step: 1}
}

// Now returns the current tick.
func (c *FakeClock) Now() logic.Tick {
	return c.T
}

// Advance moves the clock forward by n ticks.
func (c *FakeClock) Advance(n logic.Tick) {
	c.T += n
}

// Yield advances the clock by Step. It fails only if ctx is already done.
func (c *FakeClock) Yield(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Yields++
	c.T += c.Step
	return nil
}
