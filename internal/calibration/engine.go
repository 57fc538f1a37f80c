// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration estimates walking distance from step counts, using GPS
// fixes on straight segments to calibrate the walker's step length.
//
// An Engine is created per localization session with a fixed set of Filters.
// Between StartMeasuring and StopMeasuring it owns a State that two input
// streams mutate: location fixes (OnLocationFix) drive the calibration state
// machine, cumulative step counts (OnStepSample) drive the distance report.
// Every input is applied to completion under one lock, so the streams may
// arrive from different goroutines.
package calibration

import (
	"context"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leogreu/stepdist/internal/gps"
	"github.com/leogreu/stepdist/internal/pedometer"
)

// ErrNotMeasuring is returned by StopMeasuring when no session is active.
var ErrNotMeasuring = errors.New("calibration: not measuring")

// CalibrationStore persists the single last-calibration fact.
type CalibrationStore interface {
	SaveCalibration(c Calibration) error
	LoadCalibration() (Calibration, error)
}

// Status is the readiness and calibration snapshot reported to callers.
type Status struct {
	IsReadyToStart bool    `json:"isReadyToStart"`
	IsCalibrating  bool    `json:"isCalibrating"`
	LastCalibrated string  `json:"lastCalibrated"`
	StepLength     float64 `json:"stepLength"`
	SessionID      string  `json:"sessionId,omitempty"`
}

// Distance is the step-derived distance report.
type Distance struct {
	DistanceTraveled int    `json:"distanceTraveled"` // meters
	StepsTaken       int    `json:"stepsTaken"`
	SessionID        string `json:"sessionId,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore saves every committed calibration to s.
func WithStore(s CalibrationStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithResume seeds each measurement from the stored calibration instead of
// the factory default. It has no effect without WithStore.
func WithResume(resume bool) Option {
	return func(e *Engine) { e.resume = resume }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithBuffer sets the capacity of the Statuses and Distances channels.
func WithBuffer(n int) Option {
	return func(e *Engine) { e.buffer = n }
}

// Engine is the calibration engine of one localization session.
type Engine struct {
	filters Filters
	store   CalibrationStore
	resume  bool
	now     func() time.Time
	buffer  int

	mu           sync.Mutex
	state        *State
	lastAccuracy float64

	statuses  chan Status
	distances chan Distance
}

// New validates filters and returns an idle engine. A validation error
// leaves nothing behind.
func New(filters Filters, opts ...Option) (*Engine, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		filters:      filters,
		now:          time.Now,
		buffer:       16,
		lastAccuracy: gps.UnknownAccuracy,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.buffer < 1 {
		e.buffer = 1
	}
	e.statuses = make(chan Status, e.buffer)
	e.distances = make(chan Distance, e.buffer)
	return e, nil
}

// Filters returns the engine's configuration.
func (e *Engine) Filters() Filters { return e.filters }

// Statuses delivers a Status after readiness changes and calibration
// commits. When the reader falls behind the oldest pending update is dropped.
func (e *Engine) Statuses() <-chan Status { return e.statuses }

// Distances delivers a Distance after every step sample.
func (e *Engine) Distances() <-chan Distance { return e.distances }

// StartMeasuring discards any running session and starts a fresh one with
// zeroed counters. It returns the new session ID.
func (e *Engine) StartMeasuring() string {
	var seed Calibration
	haveSeed := false
	if e.resume && e.store != nil {
		c, err := e.store.LoadCalibration()
		if err == nil {
			seed, haveSeed = c, true
		} else {
			log.Printf("stepdist: no stored calibration to resume: %v", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := newState(uuid.NewString())
	if haveSeed {
		st.seed(seed)
	}
	e.state = st

	log.Printf("stepdist: measuring started session=%s stepLength=%.3f", st.SessionID, st.StepLength)
	e.emitStatus()
	return st.SessionID
}

// StopMeasuring ends the session and discards its state.
func (e *Engine) StopMeasuring() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return ErrNotMeasuring
	}
	log.Printf("stepdist: measuring stopped session=%s steps=%d distance=%dm",
		e.state.SessionID, e.state.StepsTaken(), e.state.DistanceTraveled())
	e.state = nil
	e.emitStatus()
	return nil
}

// Measuring reports whether a measurement session is active.
func (e *Engine) Measuring() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != nil
}

// OnLocationFix applies one fix. Every fix updates readiness; while
// measuring, fixes within the accuracy filter also drive calibration.
func (e *Engine) OnLocationFix(fix gps.Fix) {
	e.mu.Lock()
	e.lastAccuracy = fix.HorizontalAccuracy
	e.emitStatus()

	var committed *Calibration
	if e.state != nil && fix.RoundedAccuracy() <= e.filters.AccuracyFilter {
		committed = e.processFixLocked(fix)
	}
	e.mu.Unlock()

	if committed != nil && e.store != nil {
		if err := e.store.SaveCalibration(*committed); err != nil {
			log.Printf("stepdist: saving calibration failed: %v", err)
		}
	}
}

// processFixLocked runs the segment state machine for an accepted fix and
// returns the calibration it committed, if any.
func (e *Engine) processFixLocked(fix gps.Fix) *Calibration {
	st := e.state
	f := e.filters

	if !OnPath(fix, st.LocationEvents, f.LocationsSequenceFilter, f.PerpendicularDistanceFilter, f.Regression) {
		if st.CalibrationInProgress {
			log.Printf("stepdist: segment closed, folding %d steps / %dm into persistent counters",
				st.StepsTakenProvisional, st.DistanceTraveledProvisional)
			st.foldProvisional()
		}
		st.CalibrationInProgress = false
		st.LocationEvents = []gps.Fix{fix}
		return nil
	}

	var committed *Calibration

	// The new fix is not part of the distance this decision is based on.
	distance := gps.CumulativeDistance(st.LocationEvents)
	if distance >= f.LocationsSequenceDistanceFilter {
		st.CalibrationInProgress = true
		if st.StepsTakenProvisional > 0 {
			now := e.now()
			st.StepLength = distance / float64(st.StepsTakenProvisional)
			st.LastCalibration = LastCalibration{Time: now, Valid: true}
			committed = &Calibration{StepLength: st.StepLength, Time: now, SessionID: st.SessionID}

			log.Printf("stepdist: calibrated stepLength=%.3f over %.1fm / %d steps",
				st.StepLength, distance, st.StepsTakenProvisional)
		}
		e.emitStatus()
	}

	st.LocationEvents = append(st.LocationEvents, fix)
	return committed
}

// OnStepSample applies a cumulative step count. Samples outside a
// measurement, and counts below the persistent baseline, are dropped.
func (e *Engine) OnStepSample(rawCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state
	if st == nil || rawCount < 0 {
		return
	}
	provisional := rawCount - st.StepsTakenPersistent
	if provisional < 0 {
		return
	}

	st.StepsTakenProvisional = provisional
	st.DistanceTraveledProvisional = int(math.Round(float64(provisional) * st.StepLength))

	e.emitDistance()
}

// StatusSnapshot returns the current status without side effects.
func (e *Engine) StatusSnapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// DistanceSnapshot returns the current distance report.
func (e *Engine) DistanceSnapshot() Distance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distanceLocked()
}

// State returns a copy of the session state. ok is false when not measuring.
func (e *Engine) State() (st State, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return State{}, false
	}
	return e.state.clone(), true
}

// Run feeds the engine from channels until ctx is cancelled or both
// channels are closed. It is the single-consumer alternative to calling
// OnLocationFix and OnStepSample directly.
func (e *Engine) Run(ctx context.Context, fixes <-chan gps.Fix, samples <-chan pedometer.Sample) error {
	for fixes != nil || samples != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-fixes:
			if !ok {
				fixes = nil
				continue
			}
			e.OnLocationFix(f)
		case s, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			e.OnStepSample(s.Steps)
		}
	}
	return nil
}

func (e *Engine) statusLocked() Status {
	s := Status{
		IsReadyToStart: gps.RoundAccuracy(e.lastAccuracy) <= e.filters.AccuracyFilter,
		LastCalibrated: NotCalibrated,
		StepLength:     DefaultStepLength,
	}
	if st := e.state; st != nil {
		s.IsCalibrating = st.CalibrationInProgress
		s.LastCalibrated = st.LastCalibration.String()
		s.StepLength = st.StepLength
		s.SessionID = st.SessionID
	}
	return s
}

func (e *Engine) distanceLocked() Distance {
	if e.state == nil {
		return Distance{}
	}
	return Distance{
		DistanceTraveled: e.state.DistanceTraveled(),
		StepsTaken:       e.state.StepsTaken(),
		SessionID:        e.state.SessionID,
	}
}

func (e *Engine) emitStatus() { offer(e.statuses, e.statusLocked()) }

func (e *Engine) emitDistance() { offer(e.distances, e.distanceLocked()) }

// offer sends without blocking, evicting the oldest queued value when full.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
			log.Printf("stepdist: output channel full, dropped oldest %T", v)
		default:
		}
	}
}
