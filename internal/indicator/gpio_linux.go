//go:build linux

package indicator

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// NewGPIO requests the LED and buzzer as outputs on gpiochip0.
// A negative pin leaves that output unconnected.
func NewGPIO(pinLED, pinBuzzer int, beep time.Duration) (*Indicator, error) {
	var led, buzzer Line

	if pinLED >= 0 {
		l, err := gpiocdev.RequestLine("gpiochip0", pinLED, gpiocdev.AsOutput(0))
		if err != nil {
			return nil, fmt.Errorf("request led pin %d: %w", pinLED, err)
		}
		led = l
	}

	if pinBuzzer >= 0 {
		b, err := gpiocdev.RequestLine("gpiochip0", pinBuzzer, gpiocdev.AsOutput(0))
		if err != nil {
			if led != nil {
				led.Close()
			}
			return nil, fmt.Errorf("request buzzer pin %d: %w", pinBuzzer, err)
		}
		buzzer = b
	}

	return New(led, buzzer, beep), nil
}
