// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pedometer turns raw accelerometer samples into a cumulative step
// count.
//
// Each step shows up as a bump in acceleration magnitude above 1 g. The
// counter low-pass filters the magnitude, counts a step on each rising
// crossing of 1+Threshold, and re-arms only after the signal falls back
// below 1+Threshold/2 and MinInterval has passed.
package pedometer

import (
	"time"

	"github.com/leogreu/stepdist/internal/imu"
)

// Config tunes the step detector.
type Config struct {
	Threshold   float64       // g above gravity that counts as a step
	MinInterval time.Duration // shortest accepted time between steps
	Smoothing   float64       // low-pass weight of the newest sample, (0, 1]
	CountsPerG  float64       // accelerometer sensitivity
}

// DefaultConfig suits a hip or pocket mounted MPU-9250 at ±2g.
func DefaultConfig() Config {
	return Config{
		Threshold:   0.15,
		MinInterval: 250 * time.Millisecond,
		Smoothing:   0.5,
		CountsPerG:  imu.DefaultAccelCountsPerG,
	}
}

// Counter counts steps. Not safe for concurrent use.
type Counter struct {
	cfg Config

	filtered float64
	primed   bool
	armed    bool
	lastStep time.Time
	steps    int
}

// NewCounter returns a counter. Zero fields of cfg take DefaultConfig values.
func NewCounter(cfg Config) *Counter {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.Smoothing <= 0 || cfg.Smoothing > 1 {
		cfg.Smoothing = def.Smoothing
	}
	if cfg.CountsPerG <= 0 {
		cfg.CountsPerG = def.CountsPerG
	}
	return &Counter{cfg: cfg, armed: true}
}

// Add feeds one IMU sample taken at t. It returns the new cumulative count
// and true when the sample completed a step.
func (c *Counter) Add(t time.Time, s imu.IMURaw) (Sample, bool) {
	m := s.AccelMagnitude(c.cfg.CountsPerG)
	if !c.primed {
		c.filtered = m
		c.primed = true
	} else {
		c.filtered += c.cfg.Smoothing * (m - c.filtered)
	}

	high := 1 + c.cfg.Threshold
	low := 1 + c.cfg.Threshold/2

	if !c.armed {
		if c.filtered < low {
			c.armed = true
		}
		return Sample{}, false
	}

	if c.filtered < high {
		return Sample{}, false
	}
	if !c.lastStep.IsZero() && t.Sub(c.lastStep) < c.cfg.MinInterval {
		return Sample{}, false
	}

	c.armed = false
	c.lastStep = t
	c.steps++
	return Sample{Steps: c.steps, Time: t, Source: "imu"}, true
}

// Steps returns the cumulative count.
func (c *Counter) Steps() int { return c.steps }

// Reset zeroes the count and filter state.
func (c *Counter) Reset() {
	*c = Counter{cfg: c.cfg, armed: true}
}
