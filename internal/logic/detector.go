package logic

// Detector is the debounced, multi-band hysteresis policy.
//
// While monitoring, a sample inside [min, threshold] counts as a detection;
// debounce consecutive detections deploy. While deployed, a sample beyond
// max counts as a miss; debounce consecutive misses retract. Any sample that
// does not extend the current run resets it.
type Detector struct {
	min, threshold, max float64
	debounce            int

	state    State
	counters Counters
}

// NewDetector creates a detector in the monitoring state.
func NewDetector(min, threshold, max float64, debounce int) *Detector {
	return &Detector{
		min:       min,
		threshold: threshold,
		max:       max,
		debounce:  debounce,
		state:     StateMonitoring,
	}
}

// Process takes a new sample and returns the transition event, if any.
func (d *Detector) Process(input Input) *Event {
	switch d.state {
	case StateMonitoring:
		return d.processMonitoring(input)
	case StateDeployed:
		return d.processDeployed(input)
	}
	return nil
}

func (d *Detector) processMonitoring(input Input) *Event {
	if !d.inBand(input.Distance) {
		// No partial credit across non-consecutive hits
		d.counters.Detections = 0
		return nil
	}

	d.counters.Detections++
	d.counters.Misses = 0
	if d.counters.Detections < d.debounce {
		return nil
	}

	d.counters.Detections = 0
	d.state = StateDeployed
	return eventFor(d.state, input)
}

func (d *Detector) processDeployed(input Input) *Event {
	if !d.departed(input.Distance) {
		// Anything at or inside max means the train may still be there
		d.counters.Misses = 0
		return nil
	}

	d.counters.Misses++
	d.counters.Detections = 0
	if d.counters.Misses < d.debounce {
		return nil
	}

	d.counters.Misses = 0
	d.state = StateMonitoring
	return eventFor(d.state, input)
}

func (d *Detector) inBand(dist float64) bool {
	if IsNoEcho(dist) {
		return false
	}
	return dist >= d.min && dist <= d.threshold
}

func (d *Detector) departed(dist float64) bool {
	return IsNoEcho(dist) || dist > d.max
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// Counters returns the current debounce counters.
func (d *Detector) Counters() Counters {
	return d.counters
}
