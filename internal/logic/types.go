// Package logic contains pure business logic for two-button input classification.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable, either as a Tick or a time.Time parameter.
package logic

import "time"

// Mask is a bitmask of buttons. Bit 0 is button A, bit 1 is button B.
type Mask uint8

const (
	ButtonA    Mask = 1 << 0
	ButtonB    Mask = 1 << 1
	ButtonBoth      = ButtonA | ButtonB
)

// MaskOf builds a Mask from two instantaneous button levels.
func MaskOf(a, b bool) Mask {
	var m Mask
	if a {
		m |= ButtonA
	}
	if b {
		m |= ButtonB
	}
	return m
}

// String returns "NONE", "A", "B" or "BOTH".
func (m Mask) String() string {
	switch m & ButtonBoth {
	case ButtonA:
		return "A"
	case ButtonB:
		return "B"
	case ButtonBoth:
		return "BOTH"
	}
	return "NONE"
}

// Event is the discrete result of one classifier poll.
type Event uint8

const (
	EventNone Event = iota
	EventAShort
	EventBShort
	EventBoth
	EventALong
	EventBLong
	EventBothLong
)

var eventNames = [...]string{
	EventNone:     "NONE",
	EventAShort:   "A_SHORT",
	EventBShort:   "B_SHORT",
	EventBoth:     "BOTH",
	EventALong:    "A_LONG",
	EventBLong:    "B_LONG",
	EventBothLong: "BOTH_LONG",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "UNKNOWN"
}

// IsLong reports whether e is one of the repeating long-press events.
func (e Event) IsLong() bool {
	return e == EventALong || e == EventBLong || e == EventBothLong
}

// AllEvents lists every non-None event in declaration order.
var AllEvents = []Event{EventAShort, EventBShort, EventBoth, EventALong, EventBLong, EventBothLong}

// Tick is a monotonic counter that wraps at 2^32.
// Differences must always be taken with Elapsed.
type Tick uint32

// Elapsed returns now - since in modular arithmetic, so it stays correct
// across a counter wrap.
func Elapsed(now, since Tick) Tick {
	return now - since
}

// DefaultLongPress is the hold duration, in 100 ms ticks, after which a
// combination counts as a long press.
const DefaultLongPress Tick = 4

// Input represents a single sample of both buttons.
type Input struct {
	A    bool // true = pressed
	B    bool
	Tick Tick
}

// Record is a classified event ready to be published.
type Record struct {
	ID        string
	Timestamp time.Time
	Event     Event
	Held      Mask // buttons held at the moment of the poll
	Repeat    int  // number of consecutive long polls before this one
}

// EventCounts tracks the number of each event type since startup.
// Long events are counted once per hold, not once per poll.
type EventCounts struct {
	AShort   int
	BShort   int
	Both     int
	ALong    int
	BLong    int
	BothLong int
}

// Add increments the counter for e. EventNone is ignored.
func (c *EventCounts) Add(e Event) {
	switch e {
	case EventAShort:
		c.AShort++
	case EventBShort:
		c.BShort++
	case EventBoth:
		c.Both++
	case EventALong:
		c.ALong++
	case EventBLong:
		c.BLong++
	case EventBothLong:
		c.BothLong++
	}
}

// Total returns the sum of all counters.
func (c EventCounts) Total() int {
	return c.AShort + c.BShort + c.Both + c.ALong + c.BLong + c.BothLong
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
