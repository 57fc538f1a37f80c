// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"github.com/paulmach/orb"

	"github.com/leogreu/stepdist/internal/geometry"
	"github.com/leogreu/stepdist/internal/gps"
)

// OnPath reports whether candidate lies on the straight line through the
// most recent maxWindowSize fixes of window, within threshold degrees.
//
// With fewer than two fixes there is nothing to reject against and the
// candidate is on path. A degenerate sample only accepts a candidate that
// matches it exactly: the same longitude for a vertical ordinary fit, the
// same point for coincident fixes. The exact-longitude rule applies only to
// RegressionOrdinary; an orthogonal fit treats a north-south sample as a
// regular line and judges the candidate by perpendicular distance.
func OnPath(candidate gps.Fix, window []gps.Fix, maxWindowSize int, threshold float64, method Regression) bool {
	if len(window) < 2 {
		return true
	}

	n := len(window)
	if maxWindowSize > 0 && maxWindowSize < n {
		n = maxWindowSize
	}
	sample := window[len(window)-n:]

	points := make([]orb.Point, len(sample))
	for i, f := range sample {
		points[i] = f.Point()
	}
	p := candidate.Point()

	if method == RegressionOrdinary {
		slope, intercept, err := geometry.FitLine(points)
		if err != nil {
			return p.X() == points[0].X()
		}
		return geometry.PerpendicularDistance(p, slope, intercept) <= threshold
	}

	line, err := geometry.FitOrthogonal(points)
	if err != nil {
		return p == line.Origin
	}
	return line.Distance(p) <= threshold
}
