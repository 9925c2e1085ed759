package status

import (
	"fmt"
	"time"
)

// MaxSensorErrors is how many failed samples in a row make the sensor
// unhealthy. A single failure reads as no echo and is harmless.
const MaxSensorErrors = 3

// StaleAfter returns how long the loop may go without sampling before it is
// considered stuck. A full sweep blocks sampling, so the bound is generous.
func (c Config) StaleAfter() time.Duration {
	d := 20 * time.Duration(c.SampleMs) * time.Millisecond
	if d < 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// Problems lists why the daemon is unhealthy. An empty result means healthy.
func (s Snapshot) Problems() []string {
	var out []string
	switch {
	case s.LastSample.IsZero():
		out = append(out, "no sample yet")
	case s.Now.Sub(s.LastSample) > s.Config.StaleAfter():
		out = append(out, fmt.Sprintf("last sample %s ago", s.Now.Sub(s.LastSample).Truncate(time.Millisecond)))
	}
	if s.SensorErrors >= MaxSensorErrors {
		out = append(out, fmt.Sprintf("sensor failing: %d consecutive errors", s.SensorErrors))
	}
	if s.ActuatorFault != "" {
		out = append(out, "actuator: "+s.ActuatorFault)
	}
	return out
}
