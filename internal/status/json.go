package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	DistanceCM    *float64     `json:"distance_cm"` // null on no echo
	Angle         int          `json:"angle"`
	Detections    int          `json:"detections"`
	Misses        int          `json:"misses"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Deploy  int `json:"deploy"`
	Retract int `json:"retract"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Policy        string  `json:"policy"`
	Sensor        string  `json:"sensor"`
	MinCM         float64 `json:"min_cm"`
	ThresholdCM   float64 `json:"threshold_cm"`
	MaxCM         float64 `json:"max_cm"`
	Debounce      int     `json:"debounce"`
	SampleMs      int64   `json:"sample_ms"`
	StepDelayMs   int64   `json:"step_delay_ms"`
	EchoTimeoutMs int64   `json:"echo_timeout_ms"`
	HeartbeatMs   int64   `json:"heartbeat_ms"`
	Broker        string  `json:"broker"`
	HTTPAddr      string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		State:         state,
		Angle:         snap.Angle,
		Detections:    snap.Counters.Detections,
		Misses:        snap.Counters.Misses,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Deploy:  snap.Counts.Deploy,
			Retract: snap.Counts.Retract,
		},
		Config: ConfigJSON{
			Policy:        snap.Config.Policy,
			Sensor:        snap.Config.Sensor,
			MinCM:         snap.Config.MinCM,
			ThresholdCM:   snap.Config.ThresholdCM,
			MaxCM:         snap.Config.MaxCM,
			Debounce:      snap.Config.Debounce,
			SampleMs:      snap.Config.SampleMs,
			StepDelayMs:   snap.Config.StepDelayMs,
			EchoTimeoutMs: snap.Config.EchoTimeoutMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}
	if !logic.IsNoEcho(snap.Distance) {
		d := snap.Distance
		inner.DistanceCM = &d
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
