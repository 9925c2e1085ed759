package mqtt

import "log"

// Message is a serialized MQTT message with its routing.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf      []Message
	capacity int
	head     int // next write position
	count    int
	dropped  int // messages overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]Message, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg Message) {
	if r.count == r.capacity {
		if r.dropped == 0 {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", r.capacity)
		}
		r.dropped++
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// drainAll returns buffered messages oldest first, plus how many were
// dropped to make room for them.
func (r *ringBuffer) drainAll() ([]Message, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.count == 0 {
		return nil, dropped
	}

	result := make([]Message, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	return result, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
