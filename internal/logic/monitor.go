package logic

import "time"

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// LongRepeat publishes every Nth repeat of a sustained long event.
	// Zero publishes only the first poll of each hold.
	LongRepeat int
	// IdleAfter is the number of ticks without a press before the monitor
	// reports idle. Zero disables idle tracking.
	IdleAfter Tick
	// NewID, if set, assigns Record.ID to every published record.
	NewID func(time.Time) string
}

// Monitor sits downstream of a Classifier. It decides which events are worth
// publishing, counts them and tracks heartbeat and idle timing.
type Monitor struct {
	repeat        RepeatFilter
	idle          IdleWatch
	newID         func(time.Time) string
	startTime     time.Time
	lastHeartbeat time.Time
	eventCounts   EventCounts
	last          Record
}

// NewMonitor creates a monitor. startTime is used for heartbeat uptime and
// startTick is the reference for idle detection until the first press.
func NewMonitor(cfg MonitorConfig, startTime time.Time, startTick Tick) *Monitor {
	return &Monitor{
		repeat:        RepeatFilter{Every: cfg.LongRepeat},
		idle:          NewIdleWatch(cfg.IdleAfter, startTick),
		newID:         cfg.NewID,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Observe takes the result of one classifier poll and returns the records
// that should be published (zero or one).
func (m *Monitor) Observe(ev Event, held Mask, now time.Time) []Record {
	publish, repeat := m.repeat.Filter(ev)
	if !publish {
		return nil
	}
	if repeat == 0 {
		m.eventCounts.Add(ev)
	}

	r := Record{
		Timestamp: now,
		Event:     ev,
		Held:      held,
		Repeat:    repeat,
	}
	if m.newID != nil {
		r.ID = m.newID(now)
	}
	m.last = r
	return []Record{r}
}

// CheckIdle reports idle transitions given the classifier's last activity.
func (m *Monitor) CheckIdle(now, lastActivity Tick, active bool) IdleTransition {
	return m.idle.Check(now, lastActivity, active)
}

// IsIdle reports whether the monitor is currently in the idle state.
func (m *Monitor) IsIdle() bool {
	return m.idle.Idle()
}

// LastRecord returns the most recently published record. Event is EventNone
// if nothing has been published yet.
func (m *Monitor) LastRecord() Record {
	return m.last
}

// EventCountsSnapshot returns a copy of the event counters.
func (m *Monitor) EventCountsSnapshot() EventCounts {
	return m.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.eventCounts,
	}
}

// RepeatFilter thins the classifier's per-poll long events.
type RepeatFilter struct {
	Every int

	last Event
	run  int
}

// Filter reports whether ev should be published and how many consecutive
// polls of the same long event preceded it. Short events always pass.
func (f *RepeatFilter) Filter(ev Event) (publish bool, repeat int) {
	if !ev.IsLong() {
		f.last = EventNone
		f.run = 0
		return ev != EventNone, 0
	}

	if ev == f.last {
		f.run++
	} else {
		f.last = ev
		f.run = 0
	}

	if f.run == 0 {
		return true, 0
	}
	if f.Every > 0 && f.run%f.Every == 0 {
		return true, f.run
	}
	return false, f.run
}

// IdleTransition is the result of an idle check.
type IdleTransition int

const (
	IdleUnchanged IdleTransition = iota
	IdleEntered
	IdleLeft
)

// IdleWatch edge-detects periods without button activity.
type IdleWatch struct {
	after Tick
	start Tick
	idle  bool
}

// NewIdleWatch creates a watch that fires after the given number of ticks.
// start is used as the reference until the first press is seen.
func NewIdleWatch(after, start Tick) IdleWatch {
	return IdleWatch{after: after, start: start}
}

// Check compares now with the last activity tick. active is false until the
// first press.
func (w *IdleWatch) Check(now, lastActivity Tick, active bool) IdleTransition {
	if w.after == 0 {
		return IdleUnchanged
	}

	ref := w.start
	if active {
		ref = lastActivity
	}
	quiet := Elapsed(now, ref) >= w.after

	switch {
	case quiet && !w.idle:
		w.idle = true
		return IdleEntered
	case !quiet && w.idle:
		w.idle = false
		return IdleLeft
	}
	return IdleUnchanged
}

// Idle reports the current state.
func (w *IdleWatch) Idle() bool {
	return w.idle
}
