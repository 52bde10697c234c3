package mqtt

import "github.com/sirupsen/logrus"

// bufferedMsg is a formatted message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer queues messages in publish order while the broker is
// unreachable. When full, the oldest message is dropped. The caller must
// synchronize access.
type ringBuffer struct {
	msgs    []bufferedMsg
	next    int // slot for the next push
	count   int
	dropped int // messages lost since the last drain
	log     logrus.FieldLogger
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		msgs: make([]bufferedMsg, capacity),
		log:  logrus.StandardLogger(),
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	r.msgs[r.next] = msg
	r.next = (r.next + 1) % len(r.msgs)
	if r.count < len(r.msgs) {
		r.count++
		return
	}

	if r.dropped == 0 {
		r.log.WithFields(logrus.Fields{
			"capacity": len(r.msgs),
			"topic":    msg.topic,
		}).Warn("mqtt buffer full, dropping oldest")
	}
	r.dropped++
}

// drainAll empties the buffer, returning the queued messages oldest first and
// how many were dropped to make room for them.
func (r *ringBuffer) drainAll() ([]bufferedMsg, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.count == 0 {
		return nil, dropped
	}

	out := make([]bufferedMsg, 0, r.count)
	first := r.next - r.count
	if first < 0 {
		first += len(r.msgs)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.msgs[(first+i)%len(r.msgs)])
	}

	r.count = 0
	r.next = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
