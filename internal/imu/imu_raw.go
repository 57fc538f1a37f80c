// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"math"
	"time"
)

// DefaultAccelCountsPerG is the MPU-9250 accelerometer sensitivity at ±2g.
const DefaultAccelCountsPerG = 16384.0

// IMURaw represents a single raw IMU+mag sample as published on TOPIC_IMU.
// Only the accelerometer feeds step detection; gyro and magnetometer fields
// keep the record wire compatible with full IMU publishers.
type IMURaw struct {
	Source string    `json:"source"` // "left" or "right"
	Time   time.Time `json:"time,omitempty"`

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Mx int16 `json:"mx"` // magnetometer
	My int16 `json:"my"`
	Mz int16 `json:"mz"`
}

// AccelMagnitude returns the accelerometer vector length in g.
func (s IMURaw) AccelMagnitude(countsPerG float64) float64 {
	if countsPerG <= 0 {
		countsPerG = DefaultAccelCountsPerG
	}
	x := float64(s.Ax)
	y := float64(s.Ay)
	z := float64(s.Az)
	return math.Sqrt(x*x+y*y+z*z) / countsPerG
}
