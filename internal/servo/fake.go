package servo

// FakeActuator records commanded angles for test assertions.
type FakeActuator struct {
	// Angles contains every angle passed to SetAngle, in order.
	Angles []int

	// SetError, if set, will be returned by SetAngle (the angle is still recorded).
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeActuator creates a FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// SetAngle records deg.
func (f *FakeActuator) SetAngle(deg int) error {
	f.Angles = append(f.Angles, deg)
	return f.SetError
}

// Close marks the actuator as closed.
func (f *FakeActuator) Close() error {
	f.Closed = true
	return nil
}

// Last returns the last commanded angle, or -1 if none.
func (f *FakeActuator) Last() int {
	if len(f.Angles) == 0 {
		return -1
	}
	return f.Angles[len(f.Angles)-1]
}

// Reset clears recorded angles.
func (f *FakeActuator) Reset() {
	f.Angles = nil
	f.SetError = nil
	f.Closed = false
}
