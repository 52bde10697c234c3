package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/button-sensor/internal/logic"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	open         bool
	sent         []sentMsg
	publishErr   error
	disconnected bool

	// onSend runs once, after the next message is recorded.
	onSend func()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	hook := c.onSend
	c.onSend = nil
	err := c.publishErr
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return doneToken{err: err}
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func testRecord() logic.Record {
	return logic.Record{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     logic.EventAShort,
	}
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, nil)

	require.NoError(t, p.Publish(testRecord()))
	require.Len(t, c.sent, 1)
	assert.Equal(t, Topic, c.sent[0].topic)
	assert.Equal(t, byte(0), c.sent[0].qos)
	assert.False(t, c.sent[0].retained)

	var parsed Payload
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &parsed))
	assert.Equal(t, "A_SHORT", parsed.Button.Event)
	assert.Equal(t, 0, p.Buffered())
}

func TestRealPublisherSystemQoS(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, nil)

	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}))
	require.Len(t, c.sent, 1)
	assert.Equal(t, TopicSystem, c.sent[0].topic)
	assert.Equal(t, byte(1), c.sent[0].qos)
	assert.True(t, c.sent[0].retained)
}

func TestRealPublisherPublishError(t *testing.T) {
	c := &fakeClient{open: true, publishErr: errors.New("broker rejected")}
	p := newPublisher(c, nil)

	err := p.Publish(testRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, c.publishErr)
}

func TestRealPublisherBuffersWhileDisconnected(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, nil)

	require.NoError(t, p.Publish(testRecord()))
	require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "IDLE"}))
	assert.Empty(t, c.sent)
	assert.Equal(t, 2, p.Buffered())
	assert.False(t, p.IsConnected())

	// First connection: replay in order, no RECONNECTED.
	c.open = true
	p.onConnect()
	require.Len(t, c.sent, 2)
	assert.Equal(t, Topic, c.sent[0].topic)
	assert.Equal(t, TopicSystem, c.sent[1].topic)
	assert.Equal(t, 0, p.Buffered())
}

func TestRealPublisherAnnouncesReconnect(t *testing.T) {
	c := &fakeClient{open: true}
	p := newPublisher(c, nil)
	p.onConnect()

	c.open = false
	require.NoError(t, p.Publish(testRecord()))

	c.open = true
	p.onConnect()
	require.Len(t, c.sent, 2)

	var sys SystemPayload
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &sys))
	assert.Equal(t, "RECONNECTED", sys.System.Event)
	assert.Equal(t, Topic, c.sent[1].topic)
}

func TestRealPublisherLivePublishWaitsForReplay(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, nil)

	rec := testRecord()
	require.NoError(t, p.Publish(rec))
	rec.Event = logic.EventBShort
	require.NoError(t, p.Publish(rec))

	// A press classified while the first buffered message is on the wire.
	c.open = true
	c.onSend = func() {
		live := testRecord()
		live.Event = logic.EventBoth
		require.NoError(t, p.Publish(live))
	}
	p.onConnect()

	var got []string
	for _, m := range c.sent {
		var parsed Payload
		require.NoError(t, json.Unmarshal(m.payload, &parsed))
		got = append(got, parsed.Button.Event)
	}
	assert.Equal(t, []string{"A_SHORT", "B_SHORT", "BOTH"}, got)
	assert.Equal(t, 0, p.Buffered())

	// Once the replay is over, publishes go straight out again.
	require.NoError(t, p.Publish(testRecord()))
	assert.Len(t, c.sent, 4)
}

func TestRealPublisherReplayStopsWhenConnectionDrops(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, nil)
	require.NoError(t, p.Publish(testRecord()))

	c.open = true
	c.onSend = func() {
		c.mu.Lock()
		c.open = false
		c.mu.Unlock()
		require.NoError(t, p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "IDLE"}))
	}
	p.onConnect()

	require.Len(t, c.sent, 1)
	assert.Equal(t, 1, p.Buffered(), "queued for the next connect")

	c.open = true
	p.onConnect()
	require.Len(t, c.sent, 3)
	assert.Equal(t, TopicSystem, c.sent[2].topic)
}

func TestRealPublisherClose(t *testing.T) {
	c := &fakeClient{}
	p := newPublisher(c, nil)
	require.NoError(t, p.Close())
	assert.True(t, c.disconnected)
}
