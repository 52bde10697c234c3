package mqtt

import (
	"github.com/sweeney/button-sensor/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Records contains all button events that were published.
	Records []logic.Record

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the button event.
func (f *FakePublisher) Publish(record logic.Record) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	record = WithID(record)
	f.Records = append(f.Records, record)

	payload, err := FormatPayload(record)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Events returns the event type of every published record, in order.
func (f *FakePublisher) Events() []logic.Event {
	out := make([]logic.Event, len(f.Records))
	for i, r := range f.Records {
		out[i] = r.Event
	}
	return out
}

// SystemEventNames returns the Event field of every system event, in order.
func (f *FakePublisher) SystemEventNames() []string {
	out := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		out[i] = e.Event
	}
	return out
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Records = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
