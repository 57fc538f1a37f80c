// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"

	"github.com/paulmach/orb/geo"
)

// Distance returns the great-circle distance between two fixes in meters.
func Distance(a, b Fix) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// CumulativeDistance sums the distances between consecutive fixes in order.
// Zero or one fix gives 0.
func CumulativeDistance(fixes []Fix) float64 {
	var total float64
	for i := 1; i < len(fixes); i++ {
		total += Distance(fixes[i-1], fixes[i])
	}
	return total
}

// RoundAccuracy rounds an accuracy value to one decimal place.
func RoundAccuracy(accuracy float64) float64 {
	return math.Round(10*accuracy) / 10
}
