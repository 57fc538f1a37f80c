// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sim generates deterministic walks for running the calibration
// pipeline without a GPS receiver or an IMU.
package sim

import (
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

// ScenarioScript is the YAML form of a walk.
//
//	version: 1
//	start:
//	  lat_deg: 52.52
//	  lon_deg: 13.405
//	  time: 2026-10-14T09:00:00Z
//	fix_interval: 1s
//	seed: 7
//	legs:
//	  - bearing_deg: 60
//	    distance_m: 200
//	    speed_mps: 1.4
//	    stride_m: 0.78
//	    accuracy_m: 5
//	    jitter_m: 0.5
//
// Legs are walked in order. A leg's accuracy is reported on every fix taken
// while on that leg; jitter_m displaces each reported fix sideways by up to
// that many meters.
type ScenarioScript struct {
	Version     int           `yaml:"version"`
	Start       ScenarioStart `yaml:"start"`
	FixInterval time.Duration `yaml:"fix_interval"`
	Seed        uint64        `yaml:"seed"`
	Legs        []Leg         `yaml:"legs"`
}

// ScenarioStart is where and when the walk begins.
type ScenarioStart struct {
	LatDeg float64   `yaml:"lat_deg"`
	LonDeg float64   `yaml:"lon_deg"`
	Time   time.Time `yaml:"time"`
}

// Leg is one straight stretch of the walk.
type Leg struct {
	BearingDeg float64 `yaml:"bearing_deg"`
	DistanceM  float64 `yaml:"distance_m"`
	SpeedMPS   float64 `yaml:"speed_mps"`
	StrideM    float64 `yaml:"stride_m"`
	AccuracyM  float64 `yaml:"accuracy_m"`
	JitterM    float64 `yaml:"jitter_m"`
}

// Scenario is a validated script.
type Scenario struct {
	script ScenarioScript
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

// ParseScenarioScriptYAML parses a YAML scenario script.
func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, err
	}
	return s, nil
}

// Load reads, parses and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	script, err := LoadScenarioScript(path)
	if err != nil {
		return nil, err
	}
	return NewScenario(script)
}

// NewScenario validates script and fills defaults.
func NewScenario(script ScenarioScript) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if script.Start.LatDeg < -90 || script.Start.LatDeg > 90 {
		return nil, fmt.Errorf("start.lat_deg out of range: %v", script.Start.LatDeg)
	}
	if script.Start.LonDeg < -180 || script.Start.LonDeg > 180 {
		return nil, fmt.Errorf("start.lon_deg out of range: %v", script.Start.LonDeg)
	}
	if script.FixInterval <= 0 {
		script.FixInterval = time.Second
	}
	if len(script.Legs) == 0 {
		return nil, fmt.Errorf("legs is required")
	}
	for i, l := range script.Legs {
		switch {
		case l.DistanceM <= 0:
			return nil, fmt.Errorf("legs[%d].distance_m must be > 0", i)
		case l.SpeedMPS <= 0:
			return nil, fmt.Errorf("legs[%d].speed_mps must be > 0", i)
		case l.StrideM <= 0:
			return nil, fmt.Errorf("legs[%d].stride_m must be > 0", i)
		case l.AccuracyM < 0:
			return nil, fmt.Errorf("legs[%d].accuracy_m must be >= 0", i)
		case l.JitterM < 0:
			return nil, fmt.Errorf("legs[%d].jitter_m must be >= 0", i)
		}
	}
	return &Scenario{script: script}, nil
}

// Origin returns the start point.
func (s *Scenario) Origin() orb.Point {
	return orb.Point{s.script.Start.LonDeg, s.script.Start.LatDeg}
}

// FixInterval returns the simulated time between fixes.
func (s *Scenario) FixInterval() time.Duration { return s.script.FixInterval }

// Legs returns a copy of the legs.
func (s *Scenario) Legs() []Leg {
	return append([]Leg(nil), s.script.Legs...)
}

// Duration returns the total walking time.
func (s *Scenario) Duration() time.Duration {
	var sec float64
	for _, l := range s.script.Legs {
		sec += l.DistanceM / l.SpeedMPS
	}
	return time.Duration(sec * float64(time.Second))
}

// Length returns the total walked distance in meters.
func (s *Scenario) Length() float64 {
	var m float64
	for _, l := range s.script.Legs {
		m += l.DistanceM
	}
	return m
}
