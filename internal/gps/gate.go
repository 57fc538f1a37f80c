// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// DistanceGate passes a fix only when it lies at least MinDistance meters
// from the previously passed one. It plays the role of a location manager's
// reporting distance filter for sources that emit at a fixed rate.
//
// A zero MinDistance passes everything. Not safe for concurrent use.
type DistanceGate struct {
	MinDistance float64

	last Fix
	have bool
}

// NewDistanceGate returns a gate with the given threshold in meters.
func NewDistanceGate(minDistance float64) *DistanceGate {
	return &DistanceGate{MinDistance: minDistance}
}

// Pass reports whether f should be forwarded, and remembers it if so.
func (g *DistanceGate) Pass(f Fix) bool {
	if g.have && g.MinDistance > 0 && Distance(g.last, f) < g.MinDistance {
		return false
	}
	g.last = f
	g.have = true
	return true
}

// Reset forgets the last passed fix.
func (g *DistanceGate) Reset() {
	g.last = Fix{}
	g.have = false
}
