// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/require"

	"github.com/leogreu/stepdist/internal/gps"
)

var (
	walkStart   = orb.Point{13.405, 52.52}
	walkBearing = 60.0
	fixedNow    = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
)

func testFilters() Filters {
	return Filters{
		DistanceFilter:                  5,
		AccuracyFilter:                  10,
		PerpendicularDistanceFilter:     0.0001,
		LocationsSequenceFilter:         5,
		LocationsSequenceDistanceFilter: 100,
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	e, err := New(testFilters(), opts...)
	require.NoError(t, err)
	return e
}

// straightFix returns the fix i*spacing meters along the test walk.
func straightFix(i int, spacing float64) gps.Fix {
	p := geo.PointAtBearingAndDistance(walkStart, walkBearing, float64(i)*spacing)
	return gps.Fix{Latitude: p.Lat(), Longitude: p.Lon(), HorizontalAccuracy: 5, Time: fixedNow}
}

// offsetFix returns a fix beside the walk, offset meters to its right.
func offsetFix(along, offset float64) gps.Fix {
	p := geo.PointAtBearingAndDistance(walkStart, walkBearing, along)
	p = geo.PointAtBearingAndDistance(p, walkBearing+90, offset)
	return gps.Fix{Latitude: p.Lat(), Longitude: p.Lon(), HorizontalAccuracy: 5, Time: fixedNow}
}

func mustState(t *testing.T, e *Engine) State {
	t.Helper()
	st, ok := e.State()
	require.True(t, ok, "engine is not measuring")
	return st
}

type memStore struct {
	mu    sync.Mutex
	saved []Calibration
	load  Calibration
	err   error
}

func (m *memStore) SaveCalibration(c Calibration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, c)
	return nil
}

func (m *memStore) LoadCalibration() (Calibration, error) {
	if m.err != nil {
		return Calibration{}, m.err
	}
	if m.load.StepLength == 0 {
		return Calibration{}, errors.New("empty")
	}
	return m.load, nil
}
