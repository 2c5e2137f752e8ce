package mqtt

import "log"

// message is a serialized MQTT publish held for replay after reconnect.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// msgBuffer is a fixed-capacity FIFO for messages that could not be
// delivered while the broker was unreachable. When full, the oldest
// message is dropped. Not safe for concurrent use — caller must synchronize.
type msgBuffer struct {
	msgs     []message
	capacity int
	dropped  bool // true if any message was dropped since last drain
}

func newMsgBuffer(capacity int) *msgBuffer {
	return &msgBuffer{capacity: capacity}
}

func (b *msgBuffer) add(m message) {
	if len(b.msgs) == b.capacity {
		if !b.dropped {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", b.capacity)
			b.dropped = true
		}
		copy(b.msgs, b.msgs[1:])
		b.msgs[len(b.msgs)-1] = m
		return
	}
	b.msgs = append(b.msgs, m)
}

// drain returns all buffered messages in publish order and empties the buffer.
func (b *msgBuffer) drain() []message {
	if len(b.msgs) == 0 {
		return nil
	}
	out := b.msgs
	b.msgs = nil
	b.dropped = false
	return out
}

func (b *msgBuffer) size() int {
	return len(b.msgs)
}
