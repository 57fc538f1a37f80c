// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geometry fits straight lines through small windows of planar
// points and measures how far a point lies from them.
//
// Points are orb.Point values, so X is longitude and Y is latitude when the
// caller feeds GPS fixes. Distances come back in the same units as the input
// (degrees for raw fixes), never meters.
package geometry

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerate is returned when the points do not determine a line.
var ErrDegenerate = errors.New("geometry: degenerate point set")

// FitLine returns the ordinary least squares fit y = slope*x + intercept.
// It needs at least two points with distinct X values.
func FitLine(points []orb.Point) (slope, intercept float64, err error) {
	if len(points) < 2 {
		return 0, 0, ErrDegenerate
	}
	xs, ys := split(points)
	if allEqual(xs) {
		return 0, 0, ErrDegenerate
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0, 0, ErrDegenerate
	}
	return beta, alpha, nil
}

// PerpendicularDistance projects p onto y = slope*x + intercept and returns
// the Euclidean distance between p and that foot point.
func PerpendicularDistance(p orb.Point, slope, intercept float64) float64 {
	x0, y0 := p.X(), p.Y()

	xf := (x0 + slope*(y0-intercept)) / (slope*slope + 1)
	yf := slope*xf + intercept

	return math.Hypot(x0-xf, y0-yf)
}

// Line is an infinite line through Origin along the unit vector (DX, DY).
type Line struct {
	Origin orb.Point
	DX, DY float64
}

// Distance returns the perpendicular distance from p to the line.
func (l Line) Distance(p orb.Point) float64 {
	ox := p.X() - l.Origin.X()
	oy := p.Y() - l.Origin.Y()
	return math.Abs(ox*l.DY - oy*l.DX)
}

// FitOrthogonal returns the total least squares line through points: the
// principal axis of their covariance, which minimises perpendicular rather
// than vertical residuals and treats both axes alike.
//
// Only fewer than two points, or points that all coincide, are degenerate.
// In that case the returned Line still carries the centroid as Origin.
func FitOrthogonal(points []orb.Point) (Line, error) {
	if len(points) == 0 {
		return Line{}, ErrDegenerate
	}
	xs, ys := split(points)
	centroid := orb.Point{stat.Mean(xs, nil), stat.Mean(ys, nil)}

	if len(points) < 2 || (allEqual(xs) && allEqual(ys)) {
		return Line{Origin: centroid}, ErrDegenerate
	}

	sxx := stat.Variance(xs, nil)
	syy := stat.Variance(ys, nil)
	sxy := stat.Covariance(xs, ys, nil)

	// Angle of the major eigenvector of [[sxx sxy] [sxy syy]].
	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)

	return Line{
		Origin: centroid,
		DX:     math.Cos(theta),
		DY:     math.Sin(theta),
	}, nil
}

func split(points []orb.Point) (xs, ys []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X()
		ys[i] = p.Y()
	}
	return xs, ys
}

func allEqual(vs []float64) bool {
	for _, v := range vs[1:] {
		if v != vs[0] {
			return false
		}
	}
	return true
}
