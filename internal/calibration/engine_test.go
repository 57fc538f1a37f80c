// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leogreu/stepdist/internal/gps"
	"github.com/leogreu/stepdist/internal/pedometer"
)

func TestNew_RejectsInvalidFilters(t *testing.T) {
	t.Parallel()
	f := testFilters()
	f.LocationsSequenceFilter = 1

	e, err := New(f)
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.Nil(t, e)
}

func TestEngine_FreshSession(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	before := e.StatusSnapshot()
	assert.False(t, before.IsReadyToStart, "no fix seen yet")
	assert.Equal(t, DefaultStepLength, before.StepLength)
	assert.Equal(t, NotCalibrated, before.LastCalibrated)
	assert.False(t, e.Measuring())

	id := e.StartMeasuring()
	require.NotEmpty(t, id)

	st := mustState(t, e)
	assert.Equal(t, 0.78, st.StepLength)
	assert.False(t, st.LastCalibration.Valid)
	assert.Empty(t, st.LocationEvents)
	assert.Zero(t, st.StepsTaken())

	s := e.StatusSnapshot()
	assert.Equal(t, "not calibrated", s.LastCalibrated)
	assert.Equal(t, id, s.SessionID)
}

func TestEngine_CalibrationScenario(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	e.StartMeasuring()

	// Three collinear fixes 40m apart, 80m in total, with 100 steps.
	e.OnLocationFix(straightFix(0, 40))
	e.OnStepSample(50)
	e.OnLocationFix(straightFix(1, 40))
	e.OnStepSample(100)
	e.OnLocationFix(straightFix(2, 40))

	st := mustState(t, e)
	assert.Len(t, st.LocationEvents, 3)
	assert.InDelta(t, 80, gps.CumulativeDistance(st.LocationEvents), 1e-3)
	assert.False(t, st.CalibrationInProgress)
	assert.Equal(t, DefaultStepLength, st.StepLength)

	// A fourth fix brings the window to 120m; the commit decision for a fix
	// uses the window as it was before that fix joined it.
	e.OnLocationFix(straightFix(3, 40))
	e.OnStepSample(150)
	st = mustState(t, e)
	assert.Len(t, st.LocationEvents, 4)
	assert.False(t, st.CalibrationInProgress)
	assert.Equal(t, DefaultStepLength, st.StepLength)

	e.OnLocationFix(straightFix(4, 40))
	st = mustState(t, e)
	assert.True(t, st.CalibrationInProgress)
	assert.InDelta(t, 0.8, st.StepLength, 1e-6)
	require.True(t, st.LastCalibration.Valid)
	assert.Equal(t, fixedNow, st.LastCalibration.Time)

	status := e.StatusSnapshot()
	assert.True(t, status.IsCalibrating)
	assert.True(t, status.IsReadyToStart)
	assert.Equal(t, "2026-10-14T09:30:00Z", status.LastCalibrated)

	// Re-reporting the same count now uses the calibrated length.
	e.OnStepSample(150)
	assert.Equal(t, Distance{DistanceTraveled: 120, StepsTaken: 150, SessionID: st.SessionID}, e.DistanceSnapshot())

	// Leaving the line closes the segment.
	before := mustState(t, e)
	deviating := offsetFix(200, 60)
	e.OnLocationFix(deviating)

	after := mustState(t, e)
	assert.False(t, after.CalibrationInProgress)
	assert.Equal(t, []gps.Fix{deviating}, after.LocationEvents)
	assert.Equal(t, before.StepsTakenPersistent+before.StepsTakenProvisional, after.StepsTakenPersistent)
	assert.Equal(t, before.DistanceTraveledPersistent+before.DistanceTraveledProvisional, after.DistanceTraveledPersistent)
	assert.Zero(t, after.StepsTakenProvisional)
	assert.Zero(t, after.DistanceTraveledProvisional)
	assert.InDelta(t, 0.8, after.StepLength, 1e-6, "a closed segment keeps its calibration")

	// The next segment counts from the folded baseline.
	e.OnStepSample(160)
	st = mustState(t, e)
	assert.Equal(t, 10, st.StepsTakenProvisional)
	assert.Equal(t, 8, st.DistanceTraveledProvisional)
	assert.Equal(t, Distance{DistanceTraveled: 128, StepsTaken: 160, SessionID: st.SessionID}, e.DistanceSnapshot())
}

func TestEngine_OffPathWithoutCalibrationKeepsProvisional(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	e.StartMeasuring()

	e.OnLocationFix(straightFix(0, 20))
	e.OnLocationFix(straightFix(1, 20))
	e.OnStepSample(40)
	e.OnLocationFix(offsetFix(40, 80))

	st := mustState(t, e)
	assert.Len(t, st.LocationEvents, 1)
	assert.Zero(t, st.StepsTakenPersistent)
	assert.Equal(t, 40, st.StepsTakenProvisional)
}

func TestEngine_ZeroStepsSkipsCommit(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	e := newTestEngine(t, WithStore(store))
	e.StartMeasuring()

	for i := 0; i < 5; i++ {
		e.OnLocationFix(straightFix(i, 40))
	}

	st := mustState(t, e)
	assert.True(t, st.CalibrationInProgress)
	assert.Equal(t, DefaultStepLength, st.StepLength)
	assert.False(t, st.LastCalibration.Valid)
	assert.Empty(t, store.saved)
}

func TestEngine_LowAccuracyFixesDropped(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	e.StartMeasuring()

	ok := straightFix(0, 40)
	ok.HorizontalAccuracy = 10.04
	e.OnLocationFix(ok)
	assert.True(t, e.StatusSnapshot().IsReadyToStart)

	bad := straightFix(1, 40)
	bad.HorizontalAccuracy = 10.06
	e.OnLocationFix(bad)

	assert.Len(t, mustState(t, e).LocationEvents, 1)
	assert.False(t, e.StatusSnapshot().IsReadyToStart)
}

func TestEngine_FixesBeforeMeasuringOnlyUpdateReadiness(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	e.OnLocationFix(straightFix(0, 40))
	e.OnStepSample(10)

	assert.True(t, e.StatusSnapshot().IsReadyToStart)
	_, ok := e.State()
	assert.False(t, ok)
	assert.Equal(t, Distance{}, e.DistanceSnapshot())
}

func TestEngine_StepCountsMonotonic(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	e.StartMeasuring()

	raws := []int{0, 12, 12, 30, 55, 80, 81, 120, 150, 190, 230}
	prev := 0
	for i, raw := range raws {
		// Alternate straight and off-line fixes to force folds in between.
		if i%4 == 3 {
			e.OnLocationFix(offsetFix(float64(i)*40, 90))
		} else {
			e.OnLocationFix(straightFix(i, 40))
		}
		e.OnStepSample(raw)

		d := e.DistanceSnapshot()
		assert.Equal(t, raw, d.StepsTaken, "steps follow the raw count")
		assert.GreaterOrEqual(t, d.StepsTaken, prev)
		prev = d.StepsTaken
	}
}

func TestEngine_MalformedStepSamplesDropped(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	e.StartMeasuring()

	e.OnStepSample(20)
	e.OnStepSample(-5)
	assert.Equal(t, 20, e.DistanceSnapshot().StepsTaken)
}

func TestEngine_SnapshotIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	e.StartMeasuring()
	for i := 0; i < 6; i++ {
		e.OnLocationFix(straightFix(i, 40))
		e.OnStepSample(i * 55)
	}

	a, b := e.StatusSnapshot(), e.StatusSnapshot()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("status snapshot changed without mutation (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(e.DistanceSnapshot(), e.DistanceSnapshot()); diff != "" {
		t.Fatalf("distance snapshot changed without mutation:\n%s", diff)
	}
}

func TestEngine_StartMeasuringResets(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	first := e.StartMeasuring()
	for i := 0; i < 6; i++ {
		e.OnStepSample(i * 30)
		e.OnLocationFix(straightFix(i, 40))
	}
	require.True(t, mustState(t, e).LastCalibration.Valid)

	second := e.StartMeasuring()
	assert.NotEqual(t, first, second)

	st := mustState(t, e)
	assert.Equal(t, DefaultStepLength, st.StepLength)
	assert.False(t, st.LastCalibration.Valid)
	assert.Zero(t, st.StepsTaken())
	assert.Empty(t, st.LocationEvents)
}

func TestEngine_StopMeasuring(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	assert.ErrorIs(t, e.StopMeasuring(), ErrNotMeasuring)

	e.StartMeasuring()
	require.NoError(t, e.StopMeasuring())
	assert.False(t, e.Measuring())

	s := e.StatusSnapshot()
	assert.Empty(t, s.SessionID)
	assert.Equal(t, DefaultStepLength, s.StepLength)
}

func TestEngine_StoreSavesAndResumes(t *testing.T) {
	t.Parallel()

	t.Run("commit is saved", func(t *testing.T) {
		t.Parallel()
		store := &memStore{}
		e := newTestEngine(t, WithStore(store))
		id := e.StartMeasuring()
		for i := 0; i < 5; i++ {
			e.OnStepSample(i * 50)
			e.OnLocationFix(straightFix(i, 40))
		}

		require.Len(t, store.saved, 1)
		assert.InDelta(t, 0.6, store.saved[0].StepLength, 1e-6)
		assert.Equal(t, id, store.saved[0].SessionID)
		assert.Equal(t, fixedNow, store.saved[0].Time)
	})

	t.Run("resume seeds step length", func(t *testing.T) {
		t.Parallel()
		stored := Calibration{StepLength: 0.71, Time: fixedNow.Add(-24 * time.Hour)}
		e := newTestEngine(t, WithStore(&memStore{load: stored}), WithResume(true))
		e.StartMeasuring()

		st := mustState(t, e)
		assert.Equal(t, 0.71, st.StepLength)
		assert.True(t, st.LastCalibration.Valid)
		assert.Equal(t, stored.Time, st.LastCalibration.Time)
	})

	t.Run("resume without stored value uses default", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, WithStore(&memStore{}), WithResume(true))
		e.StartMeasuring()
		assert.Equal(t, DefaultStepLength, mustState(t, e).StepLength)
	})

	t.Run("store without resume keeps default", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(t, WithStore(&memStore{load: Calibration{StepLength: 0.9}}))
		e.StartMeasuring()
		assert.Equal(t, DefaultStepLength, mustState(t, e).StepLength)
	})
}

func TestEngine_ChannelsDeliverUpdates(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithBuffer(2))
	e.StartMeasuring()

	for i := 1; i <= 5; i++ {
		e.OnStepSample(i * 10)
	}

	// Only the two newest updates survive a reader that fell behind.
	first := <-e.Distances()
	second := <-e.Distances()
	assert.Equal(t, 40, first.StepsTaken)
	assert.Equal(t, 50, second.StepsTaken)

	select {
	case s := <-e.Statuses():
		assert.Equal(t, DefaultStepLength, s.StepLength)
	default:
		t.Fatal("expected a status update from StartMeasuring")
	}
}

func TestEngine_Run(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	e.StartMeasuring()

	fixes := make(chan gps.Fix)
	samples := make(chan pedometer.Sample)
	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background(), fixes, samples) }()

	for i := 0; i < 5; i++ {
		samples <- pedometer.Sample{Steps: i * 40}
		fixes <- straightFix(i, 40)
	}
	close(fixes)
	close(samples)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after inputs closed")
	}

	st := mustState(t, e)
	assert.InDelta(t, 120.0/160.0, st.StepLength, 1e-6)
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx, make(chan gps.Fix), make(chan pedometer.Sample))
	assert.ErrorIs(t, err, context.Canceled)
}
