package mqtt

import (
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// FakePublisher stands in for the broker in tests. Events are routed the
// same way RealPublisher routes them, and retained messages are kept per
// topic the way a broker keeps them.
type FakePublisher struct {
	// Events and SystemEvents are the published events, in order.
	Events       []logic.Event
	SystemEvents []SystemEvent

	// Messages is every routed message across both topics, in order.
	Messages []Message

	// Retained holds the last retained message per topic.
	Retained map[string]Message

	// PublishError and PublishSystemError, if set, fail the matching call
	// before anything is recorded.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Retained: make(map[string]Message)}
}

// Publish records the transition event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	msg, err := EventMessage(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.record(msg)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	msg, err := SystemMessage(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.record(msg)
	return nil
}

func (f *FakePublisher) record(msg Message) {
	f.Messages = append(f.Messages, msg)
	if msg.Retained {
		if f.Retained == nil {
			f.Retained = make(map[string]Message)
		}
		f.Retained[msg.Topic] = msg
	}
}

// Payloads returns the payloads published on topic, in order.
func (f *FakePublisher) Payloads(topic string) [][]byte {
	var out [][]byte
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Drop simulates the daemon vanishing without a clean disconnect: the
// broker publishes the will.
func (f *FakePublisher) Drop(now time.Time) {
	f.Connected = false
	f.record(WillMessage(now))
}

// Close is a clean disconnect; the will is not published.
func (f *FakePublisher) Close() error {
	f.Closed = true
	f.Connected = false
	return nil
}

// IsConnected reports the Connected field.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}
