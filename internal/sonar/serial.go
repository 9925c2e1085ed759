package sonar

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/sweeney/gap-filler/internal/logic"
)

// DefaultSerialTimeout bounds the wait for a frame. UART modules emit a
// frame roughly every 100ms, so this is longer than the GPIO echo timeout.
const DefaultSerialTimeout = 250 * time.Millisecond

// DefaultSerialBaud is the fixed baud rate of A02YYUW-style modules.
const DefaultSerialBaud = 9600

// port is the subset of serial.Port used by SerialSensor.
type port interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// SerialSensor reads a UART ultrasonic module.
type SerialSensor struct {
	port    port
	timeout time.Duration
	dec     frameDecoder
	now     func() time.Time
}

// NewSerialSensor opens the serial device at path.
func NewSerialSensor(path string, timeout time.Duration) (*SerialSensor, error) {
	mode := &serial.Mode{
		BaudRate: DefaultSerialBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return newSerialSensor(p, timeout), nil
}

func newSerialSensor(p port, timeout time.Duration) *SerialSensor {
	return &SerialSensor{
		port:    p,
		timeout: timeout,
		now:     time.Now,
	}
}

// Measure discards buffered frames and waits for the next fresh one.
// A module reading of zero means it saw no target.
func (s *SerialSensor) Measure() (float64, error) {
	if err := s.port.ResetInputBuffer(); err != nil {
		return logic.NoEcho, fmt.Errorf("reset input buffer: %w", err)
	}
	s.dec.reset()

	deadline := s.now().Add(s.timeout)
	buf := make([]byte, 16)
	for {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return logic.NoEcho, nil
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return logic.NoEcho, fmt.Errorf("set read timeout: %w", err)
		}

		n, err := s.port.Read(buf)
		if err != nil {
			return logic.NoEcho, fmt.Errorf("read serial: %w", err)
		}
		if n == 0 {
			// Read timed out
			return logic.NoEcho, nil
		}

		for _, b := range buf[:n] {
			mm, ok := s.dec.feed(b)
			if !ok {
				continue
			}
			if mm == 0 {
				return logic.NoEcho, nil
			}
			return float64(mm) / 10, nil
		}
	}
}

// Close closes the serial port.
func (s *SerialSensor) Close() error {
	return s.port.Close()
}
