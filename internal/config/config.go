// Package config loads controller settings from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sweeney/gap-filler/internal/logic"
)

// maxFileSize bounds the config file (64KB is far more than it needs).
const maxFileSize = 64 * 1024

// File is the on-disk schema. Omitted fields keep their defaults, so
// partial files are safe. Durations are strings like "15ms".
type File struct {
	Policy            *string  `json:"policy,omitempty"`
	MinDistance       *float64 `json:"min_distance_cm,omitempty"`
	ThresholdDistance *float64 `json:"threshold_distance_cm,omitempty"`
	MaxDistance       *float64 `json:"max_distance_cm,omitempty"`
	Debounce          *int     `json:"debounce,omitempty"`
	RetractedAngle    *int     `json:"retracted_angle,omitempty"`
	ExtendedAngle     *int     `json:"extended_angle,omitempty"`
	StepDegrees       *int     `json:"step_degrees,omitempty"`
	SampleInterval    *string  `json:"sample_interval,omitempty"`
	StepDelay         *string  `json:"step_delay,omitempty"`
	EchoTimeout       *string  `json:"echo_timeout,omitempty"`
}

// Load reads path and applies it on top of logic.DefaultConfig. The result
// is validated.
func Load(path string) (logic.Config, error) {
	cfg := logic.DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("parse config JSON: %w", err)
	}

	if err := f.Apply(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Apply copies every set field of f into cfg.
func (f File) Apply(cfg *logic.Config) error {
	if f.Policy != nil {
		cfg.Policy = *f.Policy
	}
	if f.MinDistance != nil {
		cfg.MinDistance = *f.MinDistance
	}
	if f.ThresholdDistance != nil {
		cfg.ThresholdDistance = *f.ThresholdDistance
	}
	if f.MaxDistance != nil {
		cfg.MaxDistance = *f.MaxDistance
	}
	if f.Debounce != nil {
		cfg.Debounce = *f.Debounce
	}
	if f.RetractedAngle != nil {
		cfg.RetractedAngle = *f.RetractedAngle
	}
	if f.ExtendedAngle != nil {
		cfg.ExtendedAngle = *f.ExtendedAngle
	}
	if f.StepDegrees != nil {
		cfg.StepDegrees = *f.StepDegrees
	}

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"sample_interval", f.SampleInterval, &cfg.SampleInterval},
		{"step_delay", f.StepDelay, &cfg.StepDelay},
		{"echo_timeout", f.EchoTimeout, &cfg.EchoTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}
