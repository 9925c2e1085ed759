// Package status provides a thread-safe status tracker for the gap-filler daemon.
// It is written by the control loop and read by HTTP handlers and MQTT heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Policy        string
	Sensor        string
	MinCM         float64
	ThresholdCM   float64
	MaxCM         float64
	Debounce      int
	SampleMs      int64
	StepDelayMs   int64
	EchoTimeoutMs int64
	HeartbeatMs   int64
	Broker        string // empty = telemetry disabled
	HTTPAddr      string
}

// ConfigFrom builds the display config from the controller config.
func ConfigFrom(cfg logic.Config, sensor string, heartbeat time.Duration, broker, httpAddr string) Config {
	return Config{
		Policy:        cfg.Policy,
		Sensor:        sensor,
		MinCM:         cfg.MinDistance,
		ThresholdCM:   cfg.ThresholdDistance,
		MaxCM:         cfg.MaxDistance,
		Debounce:      cfg.Debounce,
		SampleMs:      cfg.SampleInterval.Milliseconds(),
		StepDelayMs:   cfg.StepDelay.Milliseconds(),
		EchoTimeoutMs: cfg.EchoTimeout.Milliseconds(),
		HeartbeatMs:   heartbeat.Milliseconds(),
		Broker:        broker,
		HTTPAddr:      httpAddr,
	}
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Distance      float64 // last sample, logic.NoEcho if none
	Angle         int
	Counters      logic.Counters
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config

	LastSample    time.Time // zero until the first sample
	SensorErrors  int       // consecutive failed samples
	ActuatorFault string    // error from the last sweep, empty if it succeeded
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateMonitoring,
			Distance:  logic.NoEcho,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the controller state after an iteration.
func (t *Tracker) Update(state logic.State, distance float64, angle int, counters logic.Counters, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Distance = distance
	t.snap.Angle = angle
	t.snap.Counters = counters
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetHealth records driver liveness after an iteration.
func (t *Tracker) SetHealth(lastSample time.Time, sensorErrors int, actuatorErr error) {
	t.mu.Lock()
	t.snap.LastSample = lastSample
	t.snap.SensorErrors = sensorErrors
	t.snap.ActuatorFault = ""
	if actuatorErr != nil {
		t.snap.ActuatorFault = actuatorErr.Error()
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
