package logic

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// feed runs samples through p at 100ms spacing and returns the index of
// every sample that produced an event, along with the events.
func feed(p Policy, samples []float64) ([]int, []Event) {
	var idx []int
	var events []Event
	for i, s := range samples {
		e := p.Process(Input{Distance: s, Time: t0.Add(time.Duration(i) * 100 * time.Millisecond)})
		if e != nil {
			idx = append(idx, i)
			events = append(events, *e)
		}
	}
	return idx, events
}

func newTestDetector() *Detector {
	return NewDetector(13, 20, 25, 3)
}

func deployedDetector() *Detector {
	d := newTestDetector()
	d.state = StateDeployed
	return d
}

func TestNewDetector(t *testing.T) {
	d := newTestDetector()
	if d.State() != StateMonitoring {
		t.Errorf("expected initial state MONITORING, got %s", d.State())
	}
	if c := d.Counters(); c.Detections != 0 || c.Misses != 0 {
		t.Errorf("expected zero counters, got %+v", c)
	}
}

func TestDeployAfterDebounce(t *testing.T) {
	d := newTestDetector()

	idx, events := feed(d, []float64{45, 32, 18, 18, 18})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if idx[0] != 4 {
		t.Errorf("expected deploy on sample 4 (third 18cm), got sample %d", idx[0])
	}

	e := events[0]
	if e.Type != EventDeploy {
		t.Errorf("expected DEPLOY, got %s", e.Type)
	}
	if e.State != StateDeployed {
		t.Errorf("expected state DEPLOYED, got %s", e.State)
	}
	if e.Distance != 18 {
		t.Errorf("expected distance 18, got %v", e.Distance)
	}
	if !e.Timestamp.Equal(t0.Add(400 * time.Millisecond)) {
		t.Errorf("unexpected timestamp: %v", e.Timestamp)
	}
	if d.Counters().Detections != 0 {
		t.Errorf("expected detections reset after deploy, got %d", d.Counters().Detections)
	}
}

func TestRetractAfterDebounce(t *testing.T) {
	d := deployedDetector()

	idx, events := feed(d, []float64{15, 35, 35, 35})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if idx[0] != 3 {
		t.Errorf("expected retract on sample 3 (third 35cm), got sample %d", idx[0])
	}
	if events[0].Type != EventRetract {
		t.Errorf("expected RETRACT, got %s", events[0].Type)
	}
	if d.State() != StateMonitoring {
		t.Errorf("expected MONITORING, got %s", d.State())
	}
	if d.Counters().Misses != 0 {
		t.Errorf("expected misses reset after retract, got %d", d.Counters().Misses)
	}
}

func TestCloseSampleResetsMisses(t *testing.T) {
	d := deployedDetector()

	// Two misses, then the train shows up again
	_, events := feed(d, []float64{35, 35, 15, 35, 35})
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if d.State() != StateDeployed {
		t.Errorf("expected DEPLOYED, got %s", d.State())
	}
	if d.Counters().Misses != 2 {
		t.Errorf("expected 2 misses, got %d", d.Counters().Misses)
	}

	// Third consecutive miss retracts
	e := d.Process(Input{Distance: 35, Time: t0})
	if e == nil || e.Type != EventRetract {
		t.Fatalf("expected RETRACT, got %+v", e)
	}
}

func TestIntermediateBandResetsMisses(t *testing.T) {
	d := deployedDetector()

	// 22cm is between threshold (20) and max (25)
	_, events := feed(d, []float64{35, 35, 22, 35, 35})
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if d.Counters().Misses != 2 {
		t.Errorf("expected 2 misses after intermediate reset, got %d", d.Counters().Misses)
	}
}

func TestMaxDistanceIsNotDeparted(t *testing.T) {
	d := deployedDetector()

	_, events := feed(d, []float64{25, 25, 25, 25})
	if len(events) != 0 {
		t.Errorf("expected no events at exactly max distance, got %d", len(events))
	}
}

func TestNoisySampleResetsDetections(t *testing.T) {
	d := newTestDetector()

	_, events := feed(d, []float64{18, 18, 40, 18, 18})
	if len(events) != 0 {
		t.Fatalf("expected no events (noise broke the run), got %d", len(events))
	}
	if d.Counters().Detections != 2 {
		t.Errorf("expected 2 detections after reset, got %d", d.Counters().Detections)
	}
	if d.State() != StateMonitoring {
		t.Errorf("expected MONITORING, got %s", d.State())
	}
}

func TestSingleOutOfBandSampleZeroesDetections(t *testing.T) {
	d := newTestDetector()

	feed(d, []float64{18, 18})
	if d.Counters().Detections != 2 {
		t.Fatalf("expected 2 detections, got %d", d.Counters().Detections)
	}

	d.Process(Input{Distance: 40, Time: t0})
	if d.Counters().Detections != 0 {
		t.Errorf("expected detections reset to 0, got %d", d.Counters().Detections)
	}
}

func TestBandIsClosed(t *testing.T) {
	d := newTestDetector()

	_, events := feed(d, []float64{13, 20, 13})
	if len(events) != 1 {
		t.Fatalf("expected band edges to count as detections, got %d events", len(events))
	}
}

func TestBelowMinIsNotDetection(t *testing.T) {
	d := newTestDetector()

	_, events := feed(d, []float64{5, 5, 5, 5})
	if len(events) != 0 {
		t.Errorf("expected no deploy below min distance, got %d events", len(events))
	}
	if d.Counters().Detections != 0 {
		t.Errorf("expected 0 detections, got %d", d.Counters().Detections)
	}
}

func TestNoEchoWhileMonitoring(t *testing.T) {
	d := newTestDetector()

	_, events := feed(d, []float64{18, 18, NoEcho, 18, 18})
	if len(events) != 0 {
		t.Errorf("expected NoEcho to break the run, got %d events", len(events))
	}

	_, events = feed(newTestDetector(), []float64{NoEcho, NoEcho, NoEcho, NoEcho})
	if len(events) != 0 {
		t.Errorf("expected NoEcho never to deploy, got %d events", len(events))
	}
}

func TestNoEchoWhileDeployedCountsAsMiss(t *testing.T) {
	d := deployedDetector()

	idx, events := feed(d, []float64{NoEcho, 35, NoEcho})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if idx[0] != 2 || events[0].Type != EventRetract {
		t.Errorf("expected RETRACT on sample 2, got %s on %d", events[0].Type, idx[0])
	}
}

func TestDeployRetractCycle(t *testing.T) {
	d := newTestDetector()

	samples := []float64{
		50, 50, // empty platform
		18, 17, 16, // train arrives
		15, 15, 22, 15, // train dwelling
		40, NoEcho, 60, // train leaves
		50, 50,
	}
	idx, events := feed(d, samples)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventDeploy || idx[0] != 4 {
		t.Errorf("event 0: expected DEPLOY at 4, got %s at %d", events[0].Type, idx[0])
	}
	if events[1].Type != EventRetract || idx[1] != 11 {
		t.Errorf("event 1: expected RETRACT at 11, got %s at %d", events[1].Type, idx[1])
	}
}

// TestHysteresisInvariant checks over many generated sequences that every
// transition is preceded by at least debounce consecutive qualifying samples.
func TestHysteresisInvariant(t *testing.T) {
	values := []float64{5, 13, 16, 20, 22, 25, 26, 40, NoEcho}
	const debounce = 3

	// Deterministic pseudo-random sequences
	seed := uint32(1)
	next := func() int {
		seed = seed*1664525 + 1013904223
		return int(seed>>16) % len(values)
	}

	for run := 0; run < 200; run++ {
		d := NewDetector(13, 20, 25, debounce)
		var history []float64
		for i := 0; i < 60; i++ {
			s := values[next()]
			history = append(history, s)
			before := d.State()
			e := d.Process(Input{Distance: s, Time: t0})
			if e == nil {
				continue
			}
			if len(history) < debounce {
				t.Fatalf("run %d: transition after %d samples", run, len(history))
			}
			tail := history[len(history)-debounce:]
			for _, v := range tail {
				if before == StateMonitoring && !(v >= 13 && v <= 20) {
					t.Fatalf("run %d: deployed without %d in-band samples: %v", run, debounce, tail)
				}
				if before == StateDeployed && !(v > 25) {
					t.Fatalf("run %d: retracted without %d departed samples: %v", run, debounce, tail)
				}
			}
		}
	}
}

func TestDebounceOfOne(t *testing.T) {
	d := NewDetector(13, 20, 25, 1)

	idx, events := feed(d, []float64{18, 30})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if idx[0] != 0 || idx[1] != 1 {
		t.Errorf("expected events at 0 and 1, got %v", idx)
	}
}
