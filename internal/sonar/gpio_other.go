//go:build !linux

package sonar

import (
	"errors"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// GPIOSensor is not available on non-Linux platforms.
type GPIOSensor struct{}

// NewGPIOSensor returns an error on non-Linux platforms.
func NewGPIOSensor(pinTrigger, pinEcho int, timeout time.Duration) (*GPIOSensor, error) {
	return nil, errors.New("sonar: gpio not supported on this platform (requires Linux)")
}

// Measure is not implemented on non-Linux platforms.
func (s *GPIOSensor) Measure() (float64, error) {
	return logic.NoEcho, errors.New("sonar: gpio not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *GPIOSensor) Close() error {
	return nil
}
