package logic

// Threshold is the simple single-threshold policy: anything closer than
// max deploys, anything at or beyond it retracts. There is no debounce.
type Threshold struct {
	max   float64
	state State
}

// NewThreshold creates a threshold policy in the monitoring state.
func NewThreshold(max float64) *Threshold {
	return &Threshold{max: max, state: StateMonitoring}
}

// Process returns an event when the sample puts the policy on the other
// side of the threshold.
func (t *Threshold) Process(input Input) *Event {
	want := StateMonitoring
	if !IsNoEcho(input.Distance) && input.Distance < t.max {
		want = StateDeployed
	}
	if want == t.state {
		return nil
	}
	t.state = want
	return eventFor(want, input)
}

// State returns the current state.
func (t *Threshold) State() State {
	return t.state
}

// Counters is always zero: the threshold policy does not debounce.
func (t *Threshold) Counters() Counters {
	return Counters{}
}
