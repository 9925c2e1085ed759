// Package sonar provides ultrasonic range sensors with hardware abstraction.
// The GPIO implementation drives an HC-SR04 through the Linux GPIO character
// device. The serial implementation reads a UART ultrasonic module.
// The fake implementation allows testing without hardware.
package sonar

import (
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// Sensor measures the distance to the nearest reflecting object.
type Sensor interface {
	// Measure returns the distance in centimetres. When no echo arrives
	// within the timeout it returns logic.NoEcho and a nil error.
	// A non-nil error means the driver itself failed.
	Measure() (float64, error)

	// Close releases hardware resources.
	Close() error
}

// SpeedOfSound in centimetres per microsecond, at roughly 20 celsius.
const SpeedOfSound = 0.0343

// DefaultTimeout bounds the wait for an echo.
const DefaultTimeout = 30 * time.Millisecond

// TriggerPulse is the width of the HC-SR04 trigger pulse.
const TriggerPulse = 10 * time.Microsecond

// Default BCM pins for the HC-SR04.
const (
	DefaultPinTrigger = 23
	DefaultPinEcho    = 24
)

// EchoToCentimeters converts an echo pulse width (round trip) into a
// one-way distance.
func EchoToCentimeters(roundTrip time.Duration) float64 {
	us := float64(roundTrip) / float64(time.Microsecond)
	return us * SpeedOfSound / 2
}

// edge is a single echo line transition.
type edge struct {
	rising bool
	at     time.Duration // kernel timestamp
}

// waitEcho pairs a rising edge with the following falling edge and returns
// the distance they span. It returns logic.NoEcho if timeout fires first.
func waitEcho(edges <-chan edge, timeout <-chan time.Time) float64 {
	var rise time.Duration
	rose := false
	for {
		select {
		case e := <-edges:
			if e.rising {
				rise = e.at
				rose = true
				continue
			}
			if rose && e.at >= rise {
				return EchoToCentimeters(e.at - rise)
			}
		case <-timeout:
			return logic.NoEcho
		}
	}
}
