package input

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
)

var (
	released = gpio.Sample{}
	pressA   = gpio.Sample{A: true}
	pressB   = gpio.Sample{B: true}
)

func samples(parts ...[]gpio.Sample) []gpio.Sample {
	var out []gpio.Sample
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func newTestPoller(r gpio.Reader, start logic.Tick) (*Poller, *FakeClock) {
	clock := NewFakeClock(start)
	return NewPoller(r, clock, clock, logic.NewClassifier(4), nil), clock
}

// pollN polls n times, advancing the clock one tick after each poll.
func pollN(t *testing.T, p *Poller, clock *FakeClock, n int) []logic.Event {
	t.Helper()
	out := make([]logic.Event, n)
	for i := range out {
		ev, err := p.Poll()
		require.NoError(t, err)
		out[i] = ev
		clock.Advance(1)
	}
	return out
}

type flakyReader struct {
	*gpio.FakeReader
	failOn map[int]bool
	calls  int
}

func (f *flakyReader) Read() (bool, bool, error) {
	f.calls++
	if f.failOn[f.calls] {
		return false, false, errors.New("transient")
	}
	return f.FakeReader.Read()
}

func TestPollShortPress(t *testing.T) {
	r := gpio.NewFakeReader(samples(gpio.Repeat(pressA, 2), []gpio.Sample{released}))
	p, clock := newTestPoller(r, 0)

	got := pollN(t, p, clock, 3)
	assert.Equal(t, []logic.Event{logic.EventNone, logic.EventNone, logic.EventAShort}, got)
	assert.Equal(t, logic.Tick(2), p.Tick())
}

func TestPollLongPress(t *testing.T) {
	r := gpio.NewFakeReader(samples(gpio.Repeat(pressA, 5), []gpio.Sample{released}))
	p, clock := newTestPoller(r, 0)

	got := pollN(t, p, clock, 6)
	want := []logic.Event{
		logic.EventNone, logic.EventNone, logic.EventNone, logic.EventNone,
		logic.EventALong,
		logic.EventNone,
	}
	assert.Equal(t, want, got)

	last, ok := p.LastActivity()
	assert.True(t, ok)
	assert.Equal(t, logic.Tick(4), last)
}

func TestPollReadErrorDoesNotAdvance(t *testing.T) {
	r := gpio.NewFakeReader([]gpio.Sample{pressA})
	p, _ := newTestPoller(r, 0)

	_, err := p.Poll()
	require.NoError(t, err)
	assert.Equal(t, logic.ButtonA, p.Held())

	r.ReadError = errors.New("bus error")
	ev, err := p.Poll()
	require.Error(t, err)
	assert.ErrorIs(t, err, r.ReadError)
	assert.Equal(t, logic.EventNone, ev)
	assert.Equal(t, logic.ButtonA, p.Held())
}

func TestWaitForEventReturnsNextEvent(t *testing.T) {
	r := gpio.NewFakeReader([]gpio.Sample{released, released, pressA, released})
	p, clock := newTestPoller(r, 0)

	ev, err := p.WaitForEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, logic.EventAShort, ev)
	assert.Equal(t, 4, r.Reads)
	assert.Equal(t, 4, clock.Yields, "one yield per poll")
}

func TestWaitForEventFlushesHeldLongPress(t *testing.T) {
	r := gpio.NewFakeReader(samples(
		gpio.Repeat(pressA, 8),
		[]gpio.Sample{released, released, pressB, released},
	))
	p, clock := newTestPoller(r, 0)

	// A is already long-held when the wait starts.
	pre := pollN(t, p, clock, 6)
	require.Equal(t, logic.EventALong, pre[5])

	ev, err := p.WaitForEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, logic.EventBShort, ev, "the in-flight A_LONG must be eaten")
	assert.Equal(t, 12, r.Reads)
}

func TestWaitForEventReadErrorKeepsFlushing(t *testing.T) {
	fake := gpio.NewFakeReader(samples(
		gpio.Repeat(pressA, 8),
		[]gpio.Sample{released, pressB, released},
	))
	r := &flakyReader{FakeReader: fake, failOn: map[int]bool{8: true}}
	p, clock := newTestPoller(r, 0)

	pollN(t, p, clock, 6)

	ev, err := p.WaitForEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, logic.EventBShort, ev)
}

func TestWaitForEventContextCancelled(t *testing.T) {
	r := gpio.NewFakeReader([]gpio.Sample{released})
	p, _ := newTestPoller(r, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev, err := p.WaitForEvent(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, logic.EventNone, ev)
	assert.Equal(t, 1, r.Reads)
}

func TestWaitForEventOrTimeoutIdle(t *testing.T) {
	r := gpio.NewFakeReader([]gpio.Sample{released})
	p, clock := newTestPoller(r, 0)

	ev, err := p.WaitForEventOrTimeout(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, logic.EventNone, ev)
	assert.Equal(t, logic.Tick(11), clock.Now(), "returns on the first check past the deadline")
	assert.Equal(t, 11, r.Reads)
}

func TestWaitForEventOrTimeoutEvent(t *testing.T) {
	r := gpio.NewFakeReader([]gpio.Sample{released, pressA, released})
	p, clock := newTestPoller(r, 0)

	ev, err := p.WaitForEventOrTimeout(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, logic.EventAShort, ev)
	assert.Equal(t, logic.Tick(3), clock.Now())
}

func TestWaitForEventOrTimeoutDuringFlush(t *testing.T) {
	r := gpio.NewFakeReader(gpio.Repeat(pressA, 1))
	p, clock := newTestPoller(r, 0)

	pollN(t, p, clock, 5)

	ev, err := p.WaitForEventOrTimeout(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, logic.EventNone, ev, "a button held throughout never produces a new event")
	assert.Equal(t, 9, r.Reads)
}

func TestWaitForEventOrTimeoutAcrossWrap(t *testing.T) {
	start := ^logic.Tick(0) - 2
	r := gpio.NewFakeReader([]gpio.Sample{released})
	p, clock := newTestPoller(r, start)

	ev, err := p.WaitForEventOrTimeout(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, logic.EventNone, ev)
	assert.Equal(t, 6, clock.Yields)
	assert.Equal(t, start+6, clock.Now())
}

func TestWaitForEventOrTimeoutYieldFunc(t *testing.T) {
	r := gpio.NewFakeReader([]gpio.Sample{released})
	clock := NewFakeClock(0)
	calls := 0
	y := YieldFunc(func(ctx context.Context) error {
		calls++
		clock.Advance(2)
		return nil
	})
	p := NewPoller(r, clock, y, logic.NewClassifier(4), nil)

	_, err := p.WaitForEventOrTimeout(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRealClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c := newRealClock(100*time.Millisecond, func() time.Time { return now })

	assert.Equal(t, logic.Tick(0), c.Now())

	now = base.Add(450 * time.Millisecond)
	assert.Equal(t, logic.Tick(4), c.Now())

	now = base.Add(time.Hour)
	assert.Equal(t, logic.Tick(36000), c.Now())
}

func TestRealClockWraps(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c := newRealClock(time.Nanosecond, func() time.Time { return now })

	now = base.Add(time.Duration(1<<32 + 3))
	assert.Equal(t, logic.Tick(3), c.Now())
}

func TestRealClockDefaultResolution(t *testing.T) {
	assert.Equal(t, DefaultResolution, NewRealClock(0).Resolution())
}

func TestSleepYielder(t *testing.T) {
	y := SleepYielder{Interval: time.Millisecond}
	require.NoError(t, y.Yield(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	y = SleepYielder{Interval: time.Hour}
	assert.ErrorIs(t, y.Yield(ctx), context.Canceled)
}
