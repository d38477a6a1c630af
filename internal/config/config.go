// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the simulator configuration.
package config

import (
	"errors"
	"fmt"

	"github.com/someonegg/gsmatch/experiment"
	"github.com/someonegg/gsmatch/internal/logging"
)

type Config struct {
	Log        logging.Config `koanf:"log"`
	Experiment Experiment     `koanf:"experiment"`
	Output     Output         `koanf:"output"`
}

type Experiment struct {
	// Scenario names a preset. Ignored when Custom is set.
	Scenario string  `koanf:"scenario"`
	Size     int     `koanf:"size"`
	Delta    float64 `koanf:"delta"`

	Custom *experiment.Scenario `koanf:"custom"`

	Horizon int     `koanf:"horizon"`
	Trials  int     `koanf:"trials"`
	Workers int     `koanf:"workers"`
	Seed    int64   `koanf:"seed"`
	Noise   float64 `koanf:"noise"`

	// Explore lists the ETC exploration lengths, one run each.
	Explore []int     `koanf:"explore"`
	Deltas  []float64 `koanf:"deltas"`
}

type Output struct {
	// Path receives the JSON curves. Empty writes to stdout.
	Path string `koanf:"path"`
	// Metrics receives a Prometheus textfile. Empty disables it.
	Metrics string `koanf:"metrics"`
	Chart   bool   `koanf:"chart"`
}

func Default() *Config {
	return &Config{
		Log: logging.NewDefaultConfig(),
		Experiment: Experiment{
			Scenario: "cyclic",
			Size:     3,
			Delta:    0.5,
			Horizon:  experiment.DefaultHorizon,
			Trials:   experiment.DefaultTrials,
			Workers:  experiment.DefaultWorkers,
			Seed:     1,
			Noise:    experiment.DefaultNoise,
			Explore:  []int{25, 50},
			Deltas:   []float64{0.25, 0.5, 1, 2},
		},
		Output: Output{
			Chart: true,
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Experiment.Validate(); err != nil {
		return fmt.Errorf("experiment: %w", err)
	}
	return nil
}

func (e *Experiment) Validate() error {
	if e.Horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", e.Horizon)
	}
	if e.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", e.Trials)
	}
	if e.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", e.Workers)
	}
	if !(e.Noise > 0) {
		return fmt.Errorf("noise must be positive, got %g", e.Noise)
	}
	for _, h := range e.Explore {
		if h < 0 {
			return fmt.Errorf("invalid exploration length %d", h)
		}
	}
	s, err := e.BuildScenario()
	if err != nil {
		return err
	}
	if !(s.Noise > 0) {
		return fmt.Errorf("scenario %q: noise must be positive, got %g", s.Name, s.Noise)
	}
	return s.Validate()
}

// BuildScenario returns the custom scenario if one is set, the named preset
// otherwise. A custom scenario without noise takes the experiment noise.
func (e *Experiment) BuildScenario() (experiment.Scenario, error) {
	if e.Custom != nil {
		s := *e.Custom
		if s.Name == "" {
			s.Name = "custom"
		}
		if s.Noise == 0 {
			s.Noise = e.Noise
		}
		return s, nil
	}
	if e.Scenario == "" {
		return experiment.Scenario{}, errors.New("no scenario")
	}
	s, err := experiment.Preset(e.Scenario, experiment.PresetParams{Size: e.Size, Delta: e.Delta})
	if err != nil {
		return experiment.Scenario{}, err
	}
	s.Noise = e.Noise
	return s, nil
}

// Runner builds an experiment runner from the run settings.
func (e *Experiment) Runner() *experiment.Runner {
	horizon, trials, workers := e.Horizon, e.Trials, e.Workers
	return &experiment.Runner{
		Horizon: &horizon,
		Trials:  &trials,
		Workers: &workers,
		Seed:    e.Seed,
	}
}
