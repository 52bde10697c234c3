package logic

// Classifier turns polled button levels into discrete events.
// It is not safe for concurrent use; a single owner must poll it.
type Classifier struct {
	longPress Tick

	// Buttons currently held, latched on the last change.
	held Mask
	// Whether the current episode was still under longPress at the last poll.
	// Only read when all buttons are released.
	wasShort bool
	// Every button seen during the current episode. Zero while idle.
	everHeld Mask
	// Set only on the transition from nothing held to something held.
	pressStart Tick
	// Set whenever held changes. Delays long events after a partial release.
	lastChange Tick

	lastActivity Tick
	active       bool
}

// NewClassifier creates a classifier. A zero longPress selects DefaultLongPress.
func NewClassifier(longPress Tick) *Classifier {
	if longPress == 0 {
		longPress = DefaultLongPress
	}
	return &Classifier{longPress: longPress}
}

// Poll consumes one sample and returns at most one event.
// Presses are reported on full release (short) or while held past the
// threshold (long, repeated on every poll).
func (c *Classifier) Poll(in Input) Event {
	current := MaskOf(in.A, in.B)
	now := in.Tick

	if current != 0 {
		c.lastActivity = now
		c.active = true
	}

	if current != 0 && c.held == 0 {
		c.pressStart = now
	}

	isShort := current != 0 && Elapsed(now, c.pressStart) < c.longPress

	if current != c.held {
		c.lastChange = now

		if current != 0 {
			// Nothing is reported until every button is released. A partial
			// release of BOTH still reports BOTH on the final release.
			c.held = current
			c.wasShort = isShort
			c.everHeld |= current
			return EventNone
		}

		// Checking wasShort rather than isShort guarantees every episode
		// yields either one short event or one or more long events.
		ev := EventNone
		if c.wasShort {
			ev = shortEvent(c.everHeld)
		}
		c.held = 0
		c.wasShort = isShort
		c.everHeld = 0
		return ev
	}

	if current == 0 {
		return EventNone
	}

	c.wasShort = isShort

	// Measured from lastChange, not pressStart, so releasing one of two held
	// buttons does not fire an immediate single-button long event.
	if Elapsed(now, c.lastChange) >= c.longPress {
		return longEvent(current)
	}
	return EventNone
}

// Held returns the latched set of held buttons.
func (c *Classifier) Held() Mask {
	return c.held
}

// LongPress returns the configured threshold in ticks.
func (c *Classifier) LongPress() Tick {
	return c.longPress
}

// LastActivity returns the tick of the most recent poll that saw any button
// pressed. ok is false until a press has been observed.
func (c *Classifier) LastActivity() (tick Tick, ok bool) {
	return c.lastActivity, c.active
}

func shortEvent(m Mask) Event {
	switch m {
	case ButtonA:
		return EventAShort
	case ButtonB:
		return EventBShort
	}
	return EventBoth
}

func longEvent(m Mask) Event {
	switch m {
	case ButtonA:
		return EventALong
	case ButtonB:
		return EventBLong
	}
	return EventBothLong
}
