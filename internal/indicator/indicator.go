// Package indicator drives the platform LED and buzzer. It observes
// transitions and never influences the controller.
package indicator

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// Line is a single digital output. *gpiocdev.Line satisfies it.
type Line interface {
	SetValue(value int) error
	Close() error
}

// Default BCM pins.
const (
	DefaultPinLED    = 17
	DefaultPinBuzzer = 27
)

// DefaultBeep is how long the buzzer sounds on each transition.
const DefaultBeep = 200 * time.Millisecond

// Indicator lights the LED while deployed and beeps on every transition.
// Either line may be nil.
type Indicator struct {
	led    Line
	buzzer Line
	beep   time.Duration

	// afterFunc schedules the buzzer off and returns a func that cancels
	// it. Replaced in tests.
	afterFunc func(d time.Duration, f func()) (stop func() bool)

	mu     sync.Mutex
	stop   func() bool // pending buzzer-off, nil when quiet
	gen    int         // bumped per beep so a superseded callback does nothing
	closed bool
}

// New creates an Indicator over the given lines.
func New(led, buzzer Line, beep time.Duration) *Indicator {
	return &Indicator{
		led:    led,
		buzzer: buzzer,
		beep:   beep,
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
	}
}

// Notify implements servo.Observer.
func (ind *Indicator) Notify(e logic.Event) {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.closed {
		return
	}

	if ind.led != nil {
		v := 0
		if e.State == logic.StateDeployed {
			v = 1
		}
		if err := ind.led.SetValue(v); err != nil {
			log.Printf("indicator: led: %v", err)
		}
	}

	if ind.buzzer != nil && ind.beep > 0 {
		ind.cancelBeep()
		if err := ind.buzzer.SetValue(1); err != nil {
			log.Printf("indicator: buzzer: %v", err)
			return
		}
		gen := ind.gen
		ind.stop = ind.afterFunc(ind.beep, func() { ind.beepOff(gen) })
	}
}

// cancelBeep stops any pending buzzer-off. The caller holds mu.
func (ind *Indicator) cancelBeep() {
	if ind.stop != nil {
		ind.stop()
		ind.stop = nil
	}
	ind.gen++
}

func (ind *Indicator) beepOff(gen int) {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.closed || gen != ind.gen {
		return
	}
	ind.stop = nil
	if err := ind.buzzer.SetValue(0); err != nil {
		log.Printf("indicator: buzzer: %v", err)
	}
}

// Close turns both outputs off and releases them.
func (ind *Indicator) Close() error {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.closed {
		return nil
	}
	ind.closed = true
	ind.cancelBeep()

	var errs []error
	for _, l := range []Line{ind.led, ind.buzzer} {
		if l == nil {
			continue
		}
		if err := l.SetValue(0); err != nil {
			errs = append(errs, err)
		}
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
