// Package servo drives the gap-filler mechanism. An Actuator moves the
// horn to an absolute angle; the Sequencer turns state changes into smooth
// stepped sweeps between the retracted and extended angles.
package servo

import "time"

// Actuator sets the servo position.
type Actuator interface {
	// SetAngle commands the servo to deg degrees, 0 to 180.
	SetAngle(deg int) error

	// Close releases the output.
	Close() error
}

// Hobby servo timing at 50Hz.
const (
	Period   = 20 * time.Millisecond
	MinPulse = 500 * time.Microsecond  // 0 degrees
	MaxPulse = 2500 * time.Microsecond // 180 degrees
)

// DefaultPin is the BCM pin with hardware PWM0 on a Raspberry Pi.
const DefaultPin = 18

// PulseWidth maps an angle to the servo pulse width. Angles outside
// [0,180] are clamped.
func PulseWidth(deg int) time.Duration {
	deg = clamp(deg)
	return MinPulse + time.Duration(deg)*(MaxPulse-MinPulse)/180
}

func clamp(deg int) int {
	if deg < 0 {
		return 0
	}
	if deg > 180 {
		return 180
	}
	return deg
}
