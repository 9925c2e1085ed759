// Package controller ties one range sensor, one detection policy and one
// servo sequencer into the gap-filler control loop. A Controller is owned
// by a single goroutine.
package controller

import (
	"log"
	"strconv"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
	"github.com/sweeney/gap-filler/internal/servo"
	"github.com/sweeney/gap-filler/internal/sonar"
)

// Controller samples, decides and actuates, one iteration per Step.
type Controller struct {
	sensor sonar.Sensor
	policy logic.Policy
	seq    *servo.Sequencer

	lastDistance float64
	lastSample   time.Time
	sensorErrors int   // consecutive
	actuatorErr  error // result of the last sweep

	// Verbose logs every sample, not just transitions.
	Verbose bool

	// Logf receives diagnostic lines. Defaults to log.Printf.
	Logf func(format string, v ...interface{})
}

// New creates a Controller.
func New(sensor sonar.Sensor, policy logic.Policy, seq *servo.Sequencer) *Controller {
	return &Controller{
		sensor:       sensor,
		policy:       policy,
		seq:          seq,
		lastDistance: logic.NoEcho,
		Logf:         log.Printf,
	}
}

// Sample reads the sensor once. A driver error is logged and read as
// NoEcho, which keeps the mechanism on the retracted side.
func (c *Controller) Sample() float64 {
	d, err := c.sensor.Measure()
	if err != nil {
		c.Logf("sensor error: %v", err)
		c.sensorErrors++
		d = logic.NoEcho
	} else {
		c.sensorErrors = 0
	}
	c.lastDistance = d
	return d
}

// Step runs one iteration: one sample, one policy evaluation and at most
// one (blocking) sweep. It returns the transition, if any.
func (c *Controller) Step(now time.Time) *logic.Event {
	d := c.Sample()
	c.lastSample = now
	e := c.policy.Process(logic.Input{Distance: d, Time: now})

	if c.Verbose {
		cnt := c.policy.Counters()
		c.Logf("distance: %s state=%s detections=%d misses=%d",
			formatDistance(d), c.policy.State(), cnt.Detections, cnt.Misses)
	}

	if e == nil {
		return nil
	}

	c.Logf("event: %s at %s", e.Type, formatDistance(e.Distance))
	moved, err := c.seq.Apply(*e)
	if moved {
		c.actuatorErr = err
	}
	if err != nil {
		c.Logf("actuator error during %s: %v", e.Type, err)
	}
	if !moved {
		c.Logf("actuator already %s", e.State)
	}
	return e
}

// Shutdown retracts the mechanism if it is deployed.
func (c *Controller) Shutdown() error {
	moved, err := c.seq.Retract()
	if moved {
		c.actuatorErr = err
		c.Logf("retracted on shutdown")
	}
	return err
}

// State returns the policy state.
func (c *Controller) State() logic.State {
	return c.policy.State()
}

// Mechanism returns the commanded state of the mechanism. It matches State
// except after Shutdown, which retracts without consulting the policy.
func (c *Controller) Mechanism() logic.State {
	return c.seq.State()
}

// LastSample returns the time passed to the most recent Step.
func (c *Controller) LastSample() time.Time {
	return c.lastSample
}

// SensorErrors returns how many samples in a row have failed.
func (c *Controller) SensorErrors() int {
	return c.sensorErrors
}

// ActuatorError returns the error from the most recent sweep, if any.
func (c *Controller) ActuatorError() error {
	return c.actuatorErr
}

// Counters returns the policy's debounce counters.
func (c *Controller) Counters() logic.Counters {
	return c.policy.Counters()
}

// LastDistance returns the most recent sample.
func (c *Controller) LastDistance() float64 {
	return c.lastDistance
}

// Angle returns the last commanded servo angle.
func (c *Controller) Angle() int {
	return c.seq.Angle()
}

func formatDistance(d float64) string {
	if logic.IsNoEcho(d) {
		return "no-echo"
	}
	return strconv.FormatFloat(d, 'f', 1, 64) + "cm"
}
