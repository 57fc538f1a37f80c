// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sim

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/leogreu/stepdist/internal/gps"
	"github.com/leogreu/stepdist/internal/pedometer"
)

// Tick is one simulated instant: the reported fix and the cumulative step
// count at that moment.
type Tick struct {
	Fix    gps.Fix
	Sample pedometer.Sample
}

// Walker steps through a Scenario one fix interval at a time.
type Walker struct {
	scn   *Scenario
	rng   *rand.Rand
	start time.Time

	pos     orb.Point
	leg     int
	legLeft float64 // meters remaining on the current leg
	elapsed time.Duration
	steps   float64
	started bool
}

// NewWalker returns a walker positioned at the scenario start. If the script
// has no start time, now is used.
func NewWalker(scn *Scenario, now time.Time) *Walker {
	start := scn.script.Start.Time
	if start.IsZero() {
		start = now
	}
	seed := scn.script.Seed
	return &Walker{
		scn:     scn,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		start:   start.UTC(),
		pos:     scn.Origin(),
		legLeft: scn.script.Legs[0].DistanceM,
	}
}

// Done reports whether every leg has been walked.
func (w *Walker) Done() bool { return w.leg >= len(w.scn.script.Legs) }

// Position returns the true (unjittered) position.
func (w *Walker) Position() orb.Point { return w.pos }

// Next advances one fix interval and returns the tick. The first call
// reports the start point with zero steps. ok is false once the walk is
// over.
func (w *Walker) Next() (Tick, bool) {
	if !w.started {
		w.started = true
		return w.tick(), true
	}
	if w.Done() {
		return Tick{}, false
	}

	budget := w.scn.script.FixInterval.Seconds()
	for budget > 0 && !w.Done() {
		l := w.scn.script.Legs[w.leg]
		move := budget * l.SpeedMPS
		if move < w.legLeft-1e-9 {
			budget = 0
		} else {
			move = w.legLeft
			budget -= move / l.SpeedMPS
		}

		w.pos = geo.PointAtBearingAndDistance(w.pos, l.BearingDeg, move)
		w.steps += move / l.StrideM
		w.legLeft -= move

		if budget > 0 || w.legLeft <= 0 {
			w.leg++
			if !w.Done() {
				w.legLeft = w.scn.script.Legs[w.leg].DistanceM
			}
		}
	}
	w.elapsed += w.scn.script.FixInterval
	return w.tick(), true
}

func (w *Walker) tick() Tick {
	legs := w.scn.script.Legs
	l := legs[min(w.leg, len(legs)-1)]
	at := w.start.Add(w.elapsed)

	reported := w.pos
	if l.JitterM > 0 {
		offset := (w.rng.Float64()*2 - 1) * l.JitterM
		reported = geo.PointAtBearingAndDistance(reported, l.BearingDeg+90, offset)
	}

	return Tick{
		Fix: gps.Fix{
			Latitude:           reported.Lat(),
			Longitude:          reported.Lon(),
			HorizontalAccuracy: l.AccuracyM,
			Time:               at,
			Source:             "sim",
		},
		Sample: pedometer.Sample{
			Steps:  int(math.Floor(w.steps + 1e-9)),
			Time:   at,
			Source: "sim",
		},
	}
}
