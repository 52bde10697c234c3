// Package input drives the button classifier from hardware. It samples the
// buttons, stamps each sample with a tick and offers blocking waits for the
// next event.
package input

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
)

// Poller feeds a Classifier from a gpio.Reader.
// It is not safe for concurrent use; the polling goroutine owns it.
type Poller struct {
	reader     gpio.Reader
	clock      Clock
	yielder    Yielder
	classifier *logic.Classifier
	log        logrus.FieldLogger

	tick logic.Tick
}

// NewPoller creates a Poller. A nil log discards output.
func NewPoller(reader gpio.Reader, clock Clock, yielder Yielder, classifier *logic.Classifier, log logrus.FieldLogger) *Poller {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Poller{
		reader:     reader,
		clock:      clock,
		yielder:    yielder,
		classifier: classifier,
		log:        log,
	}
}

// Poll samples both buttons once and returns the classifier's event.
// On a read error the classifier is not advanced.
func (p *Poller) Poll() (logic.Event, error) {
	a, b, err := p.reader.Read()
	if err != nil {
		return logic.EventNone, fmt.Errorf("read buttons: %w", err)
	}
	p.tick = p.clock.Now()
	return p.classifier.Poll(logic.Input{A: a, B: b, Tick: p.tick}), nil
}

// Tick returns the tick of the last successful poll.
func (p *Poller) Tick() logic.Tick {
	return p.tick
}

// Held returns the buttons the classifier currently considers held.
func (p *Poller) Held() logic.Mask {
	return p.classifier.Held()
}

// LastActivity returns the tick of the last poll that saw a button pressed.
func (p *Poller) LastActivity() (logic.Tick, bool) {
	return p.classifier.LastActivity()
}

// WaitForEvent blocks until a new event is reported and returns it.
// An event already in progress on entry (a repeating long press) is flushed
// first, so the returned event always starts after the call.
// It returns early only if ctx is done.
func (p *Poller) WaitForEvent(ctx context.Context) (logic.Event, error) {
	return p.wait(ctx, func() bool { return false })
}

// WaitForEventOrTimeout is WaitForEvent with a deadline measured in ticks
// from entry. It returns EventNone and a nil error once more than timeout
// ticks have passed, whichever phase the wait is in.
func (p *Poller) WaitForEventOrTimeout(ctx context.Context, timeout logic.Tick) (logic.Event, error) {
	start := p.clock.Now()
	return p.wait(ctx, func() bool {
		return logic.Elapsed(p.clock.Now(), start) > timeout
	})
}

func (p *Poller) wait(ctx context.Context, expired func() bool) (logic.Event, error) {
	flushing := true
	for {
		found := logic.EventNone
		ev, err := p.Poll()
		switch {
		case err != nil:
			// A failed read says nothing about the buttons; keep the phase.
			p.log.WithError(err).Warn("button read failed")
		case flushing:
			flushing = ev != logic.EventNone
		default:
			found = ev
		}

		if err := p.yielder.Yield(ctx); err != nil {
			return logic.EventNone, err
		}
		if found != logic.EventNone {
			return found, nil
		}
		if expired() {
			return logic.EventNone, nil
		}
	}
}
