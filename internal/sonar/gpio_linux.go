//go:build linux

package sonar

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/gap-filler/internal/logic"
)

// GPIOSensor drives an HC-SR04 using the Linux GPIO character device.
// The echo pulse width is taken from kernel edge timestamps.
type GPIOSensor struct {
	chip    *gpiocdev.Chip
	trigger *gpiocdev.Line
	echo    *gpiocdev.Line
	edges   chan edge
	timeout time.Duration
}

// NewGPIOSensor requests the trigger and echo lines on gpiochip0.
func NewGPIOSensor(pinTrigger, pinEcho int, timeout time.Duration) (*GPIOSensor, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	s := &GPIOSensor{
		chip:    chip,
		edges:   make(chan edge, 8),
		timeout: timeout,
	}

	s.trigger, err = chip.RequestLine(pinTrigger, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request trigger pin %d: %w", pinTrigger, err)
	}

	s.echo, err = chip.RequestLine(pinEcho,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(s.handleEvent))
	if err != nil {
		s.trigger.Close()
		chip.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", pinEcho, err)
	}

	return s, nil
}

func (s *GPIOSensor) handleEvent(evt gpiocdev.LineEvent) {
	e := edge{
		rising: evt.Type == gpiocdev.LineEventRisingEdge,
		at:     evt.Timestamp,
	}
	select {
	case s.edges <- e:
	default:
		// Nobody is measuring; drop it
	}
}

// Measure fires a trigger pulse and times the echo.
func (s *GPIOSensor) Measure() (float64, error) {
	s.drain()

	if err := s.trigger.SetValue(1); err != nil {
		return logic.NoEcho, fmt.Errorf("trigger high: %w", err)
	}
	time.Sleep(TriggerPulse)
	if err := s.trigger.SetValue(0); err != nil {
		return logic.NoEcho, fmt.Errorf("trigger low: %w", err)
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	return waitEcho(s.edges, timer.C), nil
}

func (s *GPIOSensor) drain() {
	for {
		select {
		case <-s.edges:
		default:
			return
		}
	}
}

// Close drives the trigger low and releases the lines.
func (s *GPIOSensor) Close() error {
	var errs []error

	if s.trigger != nil {
		if err := s.trigger.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger pin: %w", err))
		}
		if err := s.trigger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger pin: %w", err))
		}
	}
	if s.echo != nil {
		if err := s.echo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close echo pin: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
