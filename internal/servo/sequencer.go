package servo

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// Observer is informed after every completed transition.
type Observer interface {
	Notify(e logic.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e logic.Event)

// Notify calls f(e).
func (f ObserverFunc) Notify(e logic.Event) { f(e) }

// Sequencer owns the commanded position of the mechanism and moves it
// between the retracted and extended angles. Sweeps block until complete.
// Not safe for concurrent use.
type Sequencer struct {
	act       Actuator
	retracted int
	extended  int
	step      int
	stepDelay time.Duration

	angle     int
	state     logic.State
	observers []Observer

	// Sleep pauses between steps. Replaced in tests.
	Sleep func(time.Duration)
}

// NewSequencer creates a sequencer that believes the mechanism is
// retracted. Call Home to make that true.
func NewSequencer(act Actuator, cfg logic.Config) *Sequencer {
	return &Sequencer{
		act:       act,
		retracted: cfg.RetractedAngle,
		extended:  cfg.ExtendedAngle,
		step:      cfg.StepDegrees,
		stepDelay: cfg.StepDelay,
		angle:     cfg.RetractedAngle,
		state:     logic.StateMonitoring,
		Sleep:     time.Sleep,
	}
}

// AddObserver registers o for transition notifications.
func (s *Sequencer) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Home writes the retracted angle directly, without a sweep.
func (s *Sequencer) Home() error {
	if err := s.act.SetAngle(s.retracted); err != nil {
		return fmt.Errorf("home servo: %w", err)
	}
	s.angle = s.retracted
	s.state = logic.StateMonitoring
	return nil
}

// Deploy sweeps to the extended angle. See MoveTo.
func (s *Sequencer) Deploy() (bool, error) {
	return s.MoveTo(logic.StateDeployed)
}

// Retract sweeps to the retracted angle. See MoveTo.
func (s *Sequencer) Retract() (bool, error) {
	return s.MoveTo(logic.StateMonitoring)
}

// MoveTo sweeps the mechanism to the angle for target. It returns false
// without touching the actuator if the mechanism is already there.
// Write errors do not stop the sweep; they are joined and returned once the
// sweep completes, and the target state is committed regardless.
func (s *Sequencer) MoveTo(target logic.State) (bool, error) {
	if target == s.state {
		return false, nil
	}

	to := s.retracted
	if target == logic.StateDeployed {
		to = s.extended
	}

	var errs []error
	sw := NewSweep(s.angle, to, s.step)
	for {
		deg, ok := sw.Next()
		if !ok {
			break
		}
		if err := s.act.SetAngle(deg); err != nil {
			errs = append(errs, err)
		}
		s.angle = deg
		if !sw.Done() && s.stepDelay > 0 {
			s.Sleep(s.stepDelay)
		}
	}

	s.state = target
	if len(errs) > 0 {
		return true, fmt.Errorf("sweep to %d degrees: %d write errors: %w", to, len(errs), errors.Join(errs...))
	}
	return true, nil
}

// Apply moves to e.State and, if the mechanism moved, notifies observers.
// Observers are notified even when some writes failed.
func (s *Sequencer) Apply(e logic.Event) (bool, error) {
	moved, err := s.MoveTo(e.State)
	if !moved {
		return false, err
	}
	for _, o := range s.observers {
		o.Notify(e)
	}
	return true, err
}

// State returns the last commanded state.
func (s *Sequencer) State() logic.State {
	return s.state
}

// Angle returns the last commanded angle.
func (s *Sequencer) Angle() int {
	return s.angle
}
