package logic

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidConfig is wrapped by every error returned from Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Policy names.
const (
	PolicyHysteresis = "hysteresis"
	PolicyThreshold  = "threshold"
)

// Config holds the tunable constants of the controller.
type Config struct {
	Policy string

	// Distances in centimetres.
	MinDistance       float64
	ThresholdDistance float64
	MaxDistance       float64

	// Debounce is the number of consecutive consistent samples needed
	// before a transition.
	Debounce int

	// Servo angles in degrees.
	RetractedAngle int
	ExtendedAngle  int
	StepDegrees    int

	SampleInterval time.Duration
	StepDelay      time.Duration
	EchoTimeout    time.Duration
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Policy:            PolicyHysteresis,
		MinDistance:       13,
		ThresholdDistance: 20,
		MaxDistance:       25,
		Debounce:          3,
		RetractedAngle:    0,
		ExtendedAngle:     90,
		StepDegrees:       1,
		SampleInterval:    100 * time.Millisecond,
		StepDelay:         15 * time.Millisecond,
		EchoTimeout:       30 * time.Millisecond,
	}
}

// Validate checks the config for values that would make the state machine
// meaningless. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Policy != PolicyHysteresis && c.Policy != PolicyThreshold:
		return invalid("unknown policy %q", c.Policy)
	case math.IsNaN(c.MinDistance) || math.IsNaN(c.ThresholdDistance) || math.IsNaN(c.MaxDistance):
		// NaN fails every comparison below
		return invalid("distances must be numbers, got %v/%v/%v", c.MinDistance, c.ThresholdDistance, c.MaxDistance)
	case c.MinDistance <= 0:
		return invalid("min distance must be positive, got %v", c.MinDistance)
	case c.MinDistance > c.ThresholdDistance:
		return invalid("min distance %v exceeds threshold distance %v", c.MinDistance, c.ThresholdDistance)
	case c.ThresholdDistance > c.MaxDistance:
		return invalid("threshold distance %v exceeds max distance %v", c.ThresholdDistance, c.MaxDistance)
	case c.MaxDistance >= NoEcho:
		return invalid("max distance %v must be below the no-echo sentinel %v", c.MaxDistance, NoEcho)
	case c.Debounce < 1:
		return invalid("debounce must be at least 1, got %d", c.Debounce)
	case c.RetractedAngle < 0 || c.RetractedAngle > 180:
		return invalid("retracted angle %d out of range [0,180]", c.RetractedAngle)
	case c.ExtendedAngle < 0 || c.ExtendedAngle > 180:
		return invalid("extended angle %d out of range [0,180]", c.ExtendedAngle)
	case c.RetractedAngle == c.ExtendedAngle:
		return invalid("retracted and extended angles are both %d", c.RetractedAngle)
	case c.StepDegrees < 1:
		return invalid("step degrees must be at least 1, got %d", c.StepDegrees)
	case c.SampleInterval <= 0:
		return invalid("sample interval must be positive, got %v", c.SampleInterval)
	case c.StepDelay < 0:
		return invalid("step delay must not be negative, got %v", c.StepDelay)
	case c.EchoTimeout <= 0:
		return invalid("echo timeout must be positive, got %v", c.EchoTimeout)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
