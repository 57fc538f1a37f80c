// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leogreu/stepdist/internal/calibration"
	"github.com/leogreu/stepdist/internal/gps"
	"github.com/leogreu/stepdist/internal/pedometer"
	"github.com/leogreu/stepdist/internal/sim"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func testScenario(t *testing.T) *sim.Scenario {
	t.Helper()
	script, err := sim.ParseScenarioScriptYAML([]byte(`
start: {lat_deg: 40.4168, lon_deg: -3.7038}
legs:
  - {bearing_deg: 10, distance_m: 80, speed_mps: 2, stride_m: 1, accuracy_m: 3}
`))
	require.NoError(t, err)
	scn, err := sim.NewScenario(script)
	require.NoError(t, err)
	return scn
}

func TestReplay(t *testing.T) {
	t.Parallel()
	engine, err := calibration.New(calibration.Filters{
		DistanceFilter:                  1,
		AccuracyFilter:                  10,
		PerpendicularDistanceFilter:     0.0001,
		LocationsSequenceFilter:         5,
		LocationsSequenceDistanceFilter: 40,
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, replay(context.Background(), engine, testScenario(t), 0, &out))

	// Each distance is reported with the step length of the previous fix.
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[len(lines)-2], "[STAT]"))
	assert.Equal(t, "[DIST]  distance=78m steps=80", lines[len(lines)-1])

	st := engine.StatusSnapshot()
	assert.True(t, st.IsCalibrating)
	assert.InDelta(t, 1.0, st.StepLength, 0.03)
}

func TestPublishWalk(t *testing.T) {
	t.Parallel()
	pub := &fakePublisher{}
	w := sim.NewWalker(testScenario(t), testNow)

	require.NoError(t, publishWalk(context.Background(), w, pub, "t/gps", "t/steps", 0))

	// 41 ticks, each a sample then a fix.
	require.Len(t, pub.msgs, 82)
	assert.Equal(t, "t/steps", pub.msgs[0].topic)
	assert.IsType(t, pedometer.Sample{}, pub.msgs[0].value)
	assert.Equal(t, "t/gps", pub.msgs[1].topic)
	assert.IsType(t, gps.Fix{}, pub.msgs[1].value)

	last, ok := pub.msgs[80].value.(pedometer.Sample)
	require.True(t, ok)
	assert.Equal(t, 80, last.Steps)
}
