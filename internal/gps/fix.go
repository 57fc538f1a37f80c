// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"time"

	"github.com/paulmach/orb"
)

// UnknownAccuracy is reported when the receiver gave no accuracy estimate.
const UnknownAccuracy = 9999.0

// Fix represents a single GPS position suitable for JSON and MQTT.
type Fix struct {
	Latitude           float64   `json:"lat"`              // decimal degrees
	Longitude          float64   `json:"lon"`              // decimal degrees
	HorizontalAccuracy float64   `json:"accuracy_m"`       // meters
	Time               time.Time `json:"time"`             // UTC
	Source             string    `json:"source,omitempty"` // "nmea", "sim", ...
}

// Point returns the fix as an orb point (longitude, latitude).
func (f Fix) Point() orb.Point {
	return orb.Point{f.Longitude, f.Latitude}
}

// RoundedAccuracy is the horizontal accuracy rounded to one decimal place,
// the resolution accuracy filters are compared at.
func (f Fix) RoundedAccuracy() float64 {
	return RoundAccuracy(f.HorizontalAccuracy)
}
