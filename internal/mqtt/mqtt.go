// Package mqtt publishes gap-filler telemetry with abstraction for testing.
// Telemetry is observational only: nothing here feeds back into the
// controller.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// Topic is the MQTT topic for deploy/retract events.
const Topic = "transit/gap-filler/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "transit/gap-filler/system"

// DefaultClientID identifies this daemon to the broker.
const DefaultClientID = "gap-filler"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a transition event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	GapFiller EventPayload `json:"gap_filler"`
}

// EventPayload contains the transition details.
type EventPayload struct {
	Timestamp  string   `json:"timestamp"`
	Event      string   `json:"event"`
	State      string   `json:"state"`
	DistanceCM *float64 `json:"distance_cm"` // null when the sensor saw no echo
}

// FormatPayload creates the JSON payload for a transition event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		GapFiller: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			State:     string(event.State),
		},
	}
	if !logic.IsNoEcho(event.Distance) {
		d := event.Distance
		payload.GapFiller.DistanceCM = &d
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// QoS for every message: transitions are rare and worth delivering.
const QoS = 1

// EventMessage routes a transition event to Topic. Transitions are not
// retained; the retained system snapshot carries the current state.
func EventMessage(event logic.Event) (Message, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return Message{}, fmt.Errorf("format payload: %w", err)
	}
	return Message{Topic: Topic, Payload: payload, QoS: QoS}, nil
}

// SystemMessage routes a system event to TopicSystem.
func SystemMessage(event SystemEvent) (Message, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return Message{}, fmt.Errorf("format system payload: %w", err)
	}
	return Message{Topic: TopicSystem, Payload: payload, QoS: QoS, Retained: event.Retained}, nil
}

// WillMessage is the retained OFFLINE message the broker publishes if the
// daemon disappears without a SHUTDOWN.
func WillMessage(now time.Time) Message {
	msg, _ := SystemMessage(SystemEvent{Timestamp: now, Event: "OFFLINE", Reason: "LWT", Retained: true})
	return msg
}

// Discard is a Publisher that drops everything. Used when no broker is
// configured.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(logic.Event) error { return nil }

// PublishSystem implements Publisher.
func (Discard) PublishSystem(SystemEvent) error { return nil }

// Close implements Publisher.
func (Discard) Close() error { return nil }

// IsConnected is always false.
func (Discard) IsConnected() bool { return false }
