// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"time"

	"github.com/leogreu/stepdist/internal/gps"
)

// DefaultStepLength is the factory step length in meters.
const DefaultStepLength = 0.78

// NotCalibrated is how an unset LastCalibration renders.
const NotCalibrated = "not calibrated"

// LastCalibration is the time of the last successful calibration.
// Valid is false while the factory default step length is in use.
type LastCalibration struct {
	Time  time.Time
	Valid bool
}

func (c LastCalibration) String() string {
	if !c.Valid {
		return NotCalibrated
	}
	return c.Time.UTC().Format(time.RFC3339)
}

// Calibration is one committed step length.
type Calibration struct {
	StepLength float64
	Time       time.Time
	SessionID  string
}

// State is the mutable bookkeeping of one measurement session.
type State struct {
	SessionID string

	StepLength            float64
	LastCalibration       LastCalibration
	CalibrationInProgress bool

	StepsTakenPersistent       int
	DistanceTraveledPersistent int

	StepsTakenProvisional       int
	DistanceTraveledProvisional int

	// LocationEvents holds the fixes of the straight segment being tracked.
	LocationEvents []gps.Fix
}

func newState(sessionID string) *State {
	return &State{
		SessionID:  sessionID,
		StepLength: DefaultStepLength,
	}
}

// seed replaces the factory step length with a stored calibration.
func (s *State) seed(c Calibration) {
	if c.StepLength <= 0 {
		return
	}
	s.StepLength = c.StepLength
	s.LastCalibration = LastCalibration{Time: c.Time, Valid: true}
}

// foldProvisional makes the provisional counters permanent.
func (s *State) foldProvisional() {
	s.StepsTakenPersistent += s.StepsTakenProvisional
	s.DistanceTraveledPersistent += s.DistanceTraveledProvisional
	s.StepsTakenProvisional = 0
	s.DistanceTraveledProvisional = 0
}

// StepsTaken is the cumulative step count since measuring started.
func (s *State) StepsTaken() int {
	return s.StepsTakenPersistent + s.StepsTakenProvisional
}

// DistanceTraveled is the cumulative distance in meters.
func (s *State) DistanceTraveled() int {
	return s.DistanceTraveledPersistent + s.DistanceTraveledProvisional
}

func (s *State) clone() State {
	c := *s
	c.LocationEvents = append([]gps.Fix(nil), s.LocationEvents...)
	return c
}
