package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/gap-filler/internal/logic"
)

// DefaultBufferSize is how many messages are held while disconnected.
const DefaultBufferSize = 100

// publishTimeout bounds the wait for a broker acknowledgement.
const publishTimeout = 5 * time.Second

// client is the subset of paho.Client used by RealPublisher.
type client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
//
// mu is held across the connectivity check, the buffer and the publish
// itself, so buffered messages always reach the broker before newer ones.
type RealPublisher struct {
	client client

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is unreachable at startup the client keeps retrying in the background and
// messages are buffered meanwhile.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	p := &RealPublisher{buf: newRingBuffer(DefaultBufferSize)}

	will := WillMessage(time.Now())

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(will.Topic, will.Payload, will.QoS, will.Retained).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	c := paho.NewClient(opts)
	p.client = c
	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering", broker)
	} else if err := token.Error(); err != nil {
		log.Printf("mqtt: connect to %s: %v", broker, err)
	}

	return p
}

// Publish sends a transition event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	msg, err := EventMessage(event)
	if err != nil {
		return err
	}
	return p.send(msg)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	msg, err := SystemMessage(event)
	if err != nil {
		return err
	}
	return p.send(msg)
}

// send publishes msg, or buffers it while disconnected. It also buffers
// while older messages are still waiting for replay, to keep them in order.
func (p *RealPublisher) send(msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() || p.buf.len() > 0 {
		p.buf.push(msg)
		return nil
	}
	return p.publishLocked(msg)
}

func (p *RealPublisher) publishLocked(msg Message) error {
	token := p.client.Publish(msg.Topic, msg.QoS, msg.Retained, msg.Payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s timeout", msg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

// replay flushes buffered messages oldest first. Called from paho's connect
// handler. If the connection drops again part way through, the rest go back
// into the buffer for the next reconnect.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs, dropped := p.buf.drainAll()
	if len(msgs) == 0 {
		return
	}
	log.Printf("mqtt: replaying %d buffered messages (%d dropped)", len(msgs), dropped)
	for i, msg := range msgs {
		if !p.client.IsConnectionOpen() {
			for _, rest := range msgs[i:] {
				p.buf.push(rest)
			}
			log.Printf("mqtt: connection lost during replay, %d messages kept", len(msgs)-i)
			return
		}
		if err := p.publishLocked(msg); err != nil {
			log.Printf("mqtt: replay: %v", err)
		}
	}
}

// Buffered returns how many messages are waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
