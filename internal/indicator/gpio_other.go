//go:build !linux

package indicator

import (
	"errors"
	"time"
)

// NewGPIO returns an error on non-Linux platforms.
func NewGPIO(pinLED, pinBuzzer int, beep time.Duration) (*Indicator, error) {
	return nil, errors.New("indicator: gpio not supported on this platform (requires Linux)")
}
