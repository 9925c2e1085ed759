package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Policy: "hysteresis", SampleMs: 100, Debounce: 3, Broker: "tcp://localhost:1883", HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.SampleMs != 100 {
		t.Errorf("Config.SampleMs: got %d, want 100", snap.Config.SampleMs)
	}
	if snap.State != logic.StateMonitoring {
		t.Errorf("State: got %q, want MONITORING", snap.State)
	}
	if !logic.IsNoEcho(snap.Distance) {
		t.Errorf("Distance: got %v, want no-echo before first sample", snap.Distance)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(logic.DefaultConfig(), "gpio", 15*time.Minute, "tcp://b:1883", ":8080")

	if cfg.Policy != "hysteresis" || cfg.Sensor != "gpio" {
		t.Errorf("unexpected policy/sensor: %q/%q", cfg.Policy, cfg.Sensor)
	}
	if cfg.MinCM != 13 || cfg.ThresholdCM != 20 || cfg.MaxCM != 25 {
		t.Errorf("unexpected distances: %v/%v/%v", cfg.MinCM, cfg.ThresholdCM, cfg.MaxCM)
	}
	if cfg.SampleMs != 100 || cfg.StepDelayMs != 15 || cfg.EchoTimeoutMs != 30 {
		t.Errorf("unexpected timings: %d/%d/%d", cfg.SampleMs, cfg.StepDelayMs, cfg.EchoTimeoutMs)
	}
	if cfg.HeartbeatMs != 900000 {
		t.Errorf("HeartbeatMs: got %d, want 900000", cfg.HeartbeatMs)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(logic.StateDeployed, 17.5, 90, logic.Counters{Misses: 1}, logic.EventCounts{Deploy: 3, Retract: 2})

	snap := tr.Snapshot()
	if snap.State != logic.StateDeployed {
		t.Errorf("State: got %q, want DEPLOYED", snap.State)
	}
	if snap.Distance != 17.5 {
		t.Errorf("Distance: got %v, want 17.5", snap.Distance)
	}
	if snap.Angle != 90 {
		t.Errorf("Angle: got %d, want 90", snap.Angle)
	}
	if snap.Counters.Misses != 1 {
		t.Errorf("Counters.Misses: got %d, want 1", snap.Counters.Misses)
	}
	if snap.Counts.Deploy != 3 || snap.Counts.Retract != 2 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(logic.StateDeployed, 18, 90, logic.Counters{}, logic.EventCounts{Deploy: 1})

	snap1 := tr.Snapshot()

	tr.Update(logic.StateMonitoring, 50, 0, logic.Counters{}, logic.EventCounts{Deploy: 1, Retract: 1})

	if snap1.State != logic.StateDeployed {
		t.Error("snapshot should be a copy; State was modified")
	}
	if snap1.Angle != 90 {
		t.Error("snapshot should be a copy; Angle was modified")
	}
}

func testSnapshot() Snapshot {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return Snapshot{
		State:         logic.StateDeployed,
		Distance:      16,
		Angle:         90,
		Counters:      logic.Counters{Misses: 2},
		Counts:        logic.EventCounts{Deploy: 5, Retract: 4},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        ConfigFrom(logic.DefaultConfig(), "gpio", 15*time.Minute, "tcp://localhost:1883", ":80"),
	}
}

func TestFormatJSON(t *testing.T) {
	data := FormatJSON(testSnapshot())

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.State != "DEPLOYED" {
		t.Errorf("State: got %q, want DEPLOYED", s.State)
	}
	if s.DistanceCM == nil || *s.DistanceCM != 16 {
		t.Errorf("DistanceCM: got %v, want 16", s.DistanceCM)
	}
	if s.Angle != 90 {
		t.Errorf("Angle: got %d, want 90", s.Angle)
	}
	if s.Misses != 2 {
		t.Errorf("Misses: got %d, want 2", s.Misses)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Counts.Deploy != 5 || s.Counts.Retract != 4 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.Config.MaxCM != 25 || s.Config.Policy != "hysteresis" {
		t.Errorf("Config: got %+v", s.Config)
	}
	// Event and Reason should be omitted
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty Event/Reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONNoEchoAndUnknownState(t *testing.T) {
	snap := Snapshot{
		Distance:  logic.NoEcho,
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := raw["status"].(map[string]interface{})
	if status["state"] != "UNKNOWN" {
		t.Errorf("state: got %v, want UNKNOWN", status["state"])
	}
	if v, ok := status["distance_cm"]; !ok || v != nil {
		t.Errorf("distance_cm: got %v (present=%v), want null", v, ok)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.State != "DEPLOYED" {
		t.Errorf("State: got %q, want DEPLOYED", parsed.Status.State)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(testSnapshot(), "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := testSnapshot()
	snap.Network = &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(logic.StateDeployed, float64(i), i%91, logic.Counters{}, logic.EventCounts{Deploy: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}

func TestSetHealth(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC)

	tr.SetHealth(at, 2, errors.New("pwm fault"))
	snap := tr.Snapshot()
	if !snap.LastSample.Equal(at) || snap.SensorErrors != 2 || snap.ActuatorFault != "pwm fault" {
		t.Errorf("unexpected health fields: %v %d %q", snap.LastSample, snap.SensorErrors, snap.ActuatorFault)
	}

	tr.SetHealth(at, 0, nil)
	if tr.Snapshot().ActuatorFault != "" {
		t.Error("expected actuator fault cleared")
	}
}

func TestStaleAfter(t *testing.T) {
	if got := (Config{SampleMs: 100}).StaleAfter(); got != 5*time.Second {
		t.Errorf("StaleAfter(100ms): got %v, want 5s floor", got)
	}
	if got := (Config{SampleMs: 1000}).StaleAfter(); got != 20*time.Second {
		t.Errorf("StaleAfter(1s): got %v, want 20s", got)
	}
}

func TestProblems(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	base := Snapshot{Now: now, LastSample: now.Add(-100 * time.Millisecond), Config: Config{SampleMs: 100}}

	tests := []struct {
		name   string
		modify func(*Snapshot)
		want   int
	}{
		{"healthy", func(s *Snapshot) {}, 0},
		{"never sampled", func(s *Snapshot) { s.LastSample = time.Time{} }, 1},
		{"stale loop", func(s *Snapshot) { s.LastSample = now.Add(-10 * time.Second) }, 1},
		{"one sensor error", func(s *Snapshot) { s.SensorErrors = 1 }, 0},
		{"failing sensor", func(s *Snapshot) { s.SensorErrors = MaxSensorErrors }, 1},
		{"actuator fault", func(s *Snapshot) { s.ActuatorFault = "pwm fault" }, 1},
		{"everything", func(s *Snapshot) {
			s.LastSample = now.Add(-time.Minute)
			s.SensorErrors = 10
			s.ActuatorFault = "pwm fault"
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.modify(&s)
			if got := s.Problems(); len(got) != tt.want {
				t.Errorf("got %d problems %v, want %d", len(got), got, tt.want)
			}
		})
	}
}
