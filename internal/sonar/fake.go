package sonar

import (
	"errors"

	"github.com/sweeney/gap-filler/internal/logic"
)

// FakeSensor is a test double that returns scripted distances.
type FakeSensor struct {
	// Distances contains scripted readings. Each call to Measure() consumes
	// the next one; once exhausted the last one repeats.
	Distances []float64

	index int

	// Calls counts Measure() invocations.
	Calls int

	// Closed tracks if Close was called
	Closed bool

	// MeasureError, if set, will be returned by Measure()
	MeasureError error
}

// NewFakeSensor creates a FakeSensor with the given readings.
func NewFakeSensor(distances ...float64) *FakeSensor {
	return &FakeSensor{Distances: distances}
}

// Measure returns the next scripted reading.
func (f *FakeSensor) Measure() (float64, error) {
	f.Calls++
	if f.MeasureError != nil {
		return logic.NoEcho, f.MeasureError
	}

	if len(f.Distances) == 0 {
		return logic.NoEcho, errors.New("no distances configured")
	}

	d := f.Distances[f.index]
	if f.index < len(f.Distances)-1 {
		f.index++
	}
	return d, nil
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the scripted readings.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.Calls = 0
	f.Closed = false
}
