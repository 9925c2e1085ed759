// Package logic contains the pure detection logic for the gap filler.
// This package has NO external dependencies (no GPIO, PWM, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// NoEcho is the distance reported when the sensor sees no echo within its
// timeout. It is larger than any configurable distance, so every policy
// reads it as "no train".
const NoEcho = 9999.0

// IsNoEcho reports whether d is the no-echo sentinel (or beyond it).
func IsNoEcho(d float64) bool {
	return d >= NoEcho
}

// State represents the last commanded position of the mechanism.
type State string

const (
	StateMonitoring State = "MONITORING" // retracted, watching for a train
	StateDeployed   State = "DEPLOYED"
)

// EventType represents a state transition event.
type EventType string

const (
	EventDeploy  EventType = "DEPLOY"
	EventRetract EventType = "RETRACT"
)

// Event represents a state transition to be actuated and published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State   // state after the transition
	Distance  float64 // sample that completed the transition
}

// Input represents a single distance sample.
type Input struct {
	Distance float64 // centimetres, or NoEcho
	Time     time.Time
}

// Counters holds the debounce counters of a policy.
type Counters struct {
	Detections int // consecutive in-band samples while monitoring
	Misses     int // consecutive departed samples while deployed
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Deploy  int
	Retract int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// Policy decides, one sample at a time, whether the mechanism should be
// deployed or retracted.
type Policy interface {
	// Process takes a new sample and returns the transition it caused, if any.
	Process(input Input) *Event

	// State returns the current state.
	State() State

	// Counters returns the current debounce counters.
	Counters() Counters
}

// NewPolicy builds the policy named by cfg.Policy. The config must have
// been validated.
func NewPolicy(cfg Config) Policy {
	if cfg.Policy == PolicyThreshold {
		return NewThreshold(cfg.MaxDistance)
	}
	return NewDetector(cfg.MinDistance, cfg.ThresholdDistance, cfg.MaxDistance, cfg.Debounce)
}

func eventFor(state State, in Input) *Event {
	typ := EventDeploy
	if state == StateMonitoring {
		typ = EventRetract
	}
	return &Event{
		Timestamp: in.Time,
		Type:      typ,
		State:     state,
		Distance:  in.Distance,
	}
}
