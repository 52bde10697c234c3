package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/button-sensor/internal/logic"
)

// BufferCapacity is the number of messages held while the broker is unreachable.
const BufferCapacity = 256

// client is the subset of paho.Client used by RealPublisher.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client client
	topic  string
	log    logrus.FieldLogger

	mu        sync.Mutex
	buffer    *ringBuffer
	connected bool // a connection has been established at least once
	replaying bool // onConnect is sending buffered messages
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// not reachable within the connect timeout the publisher is still returned and
// keeps retrying in the background.
func NewRealPublisher(broker string, log logrus.FieldLogger) (*RealPublisher, error) {
	p := newPublisher(nil, log)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("button-sensor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.WithError(err).Warn("mqtt connection lost")
		})

	c := paho.NewClient(opts)
	p.client = c

	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.log.WithField("broker", broker).Warn("mqtt broker not reachable yet, buffering")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(c client, log logrus.FieldLogger) *RealPublisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	buf := newRingBuffer(BufferCapacity)
	buf.log = log
	return &RealPublisher{
		client: c,
		topic:  Topic,
		log:    log,
		buffer: buf,
	}
}

// Publish sends a button event to the MQTT broker.
func (p *RealPublisher) Publish(record logic.Record) error {
	payload, err := FormatPayload(record)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.publish(bufferedMsg{topic: p.topic, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	msg := bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if err := p.publish(msg); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

// publish sends msg, or queues it behind older messages while the broker is
// down or a replay is in progress.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if p.replaying || !p.client.IsConnectionOpen() {
		p.buffer.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timeout on %s", msg.topic)
	}
	return token.Error()
}

// onConnect replays buffered messages. On a reconnect it also announces
// RECONNECTED so consumers know events may have been delayed. Messages
// published during the replay are queued and sent after it.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	if p.replaying {
		p.mu.Unlock()
		return
	}
	pending, dropped := p.buffer.drainAll()
	reconnect := p.connected
	p.connected = true
	p.replaying = true
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{
		"buffered": len(pending),
		"dropped":  dropped,
	}).Info("mqtt connected")

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			pending = append([]bufferedMsg{{topic: TopicSystem, payload: payload, qos: 1}}, pending...)
		}
	}

	for len(pending) > 0 {
		for _, msg := range pending {
			if err := p.send(msg); err != nil {
				p.log.WithError(err).WithField("topic", msg.topic).Warn("mqtt replay failed")
			}
		}

		p.mu.Lock()
		pending = nil
		if p.client.IsConnectionOpen() {
			pending, _ = p.buffer.drainAll()
		}
		if len(pending) == 0 {
			// Anything still queued waits for the next connect.
			p.replaying = false
		}
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.replaying = false
	p.mu.Unlock()
}
