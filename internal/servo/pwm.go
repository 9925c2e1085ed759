package servo

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Frequency of the servo control signal.
const Frequency = 50 * physic.Hertz

// PWM drives a servo from a PWM-capable GPIO pin using periph.
type PWM struct {
	pin gpio.PinIO
}

// NewPWM initialises the periph host and looks up the pin by BCM number.
func NewPWM(pin int) (*PWM, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, fmt.Errorf("no gpio pin GPIO%d", pin)
	}
	return &PWM{pin: p}, nil
}

// Duty returns the duty cycle that produces the pulse for deg.
func Duty(deg int) gpio.Duty {
	return gpio.Duty(int64(gpio.DutyMax) * int64(PulseWidth(deg)) / int64(Period))
}

// SetAngle implements Actuator.
func (p *PWM) SetAngle(deg int) error {
	if err := p.pin.PWM(Duty(deg), Frequency); err != nil {
		return fmt.Errorf("set %s to %d degrees: %w", p.pin.Name(), deg, err)
	}
	return nil
}

// Close stops the PWM output. The servo holds no torque afterwards.
func (p *PWM) Close() error {
	if err := p.pin.Halt(); err != nil {
		return fmt.Errorf("halt %s: %w", p.pin.Name(), err)
	}
	return nil
}
