// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullBundle = `{
	"distanceFilter": 5,
	"accuracyFilter": 10,
	"perpendicularDistanceFilter": 0.0001,
	"locationsSequenceFilter": 5,
	"locationsSequenceDistanceFilter": 100
}`

func TestParseFilters(t *testing.T) {
	t.Parallel()

	f, err := ParseFilters([]byte(fullBundle))
	require.NoError(t, err)
	assert.Equal(t, Filters{
		DistanceFilter:                  5,
		AccuracyFilter:                  10,
		PerpendicularDistanceFilter:     0.0001,
		LocationsSequenceFilter:         5,
		LocationsSequenceDistanceFilter: 100,
		Regression:                      RegressionOrthogonal,
	}, f)
}

func TestParseFilters_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing accuracy",
			body:    `{"distanceFilter":5,"perpendicularDistanceFilter":0.0001,"locationsSequenceFilter":5,"locationsSequenceDistanceFilter":100}`,
			wantErr: ErrMissingFilter,
			wantMsg: "missing filter: accuracyFilter",
		},
		{
			name:    "missing sequence distance",
			body:    `{"distanceFilter":5,"accuracyFilter":10,"perpendicularDistanceFilter":0.0001,"locationsSequenceFilter":5}`,
			wantErr: ErrMissingFilter,
			wantMsg: "missing filter: locationsSequenceDistanceFilter",
		},
		{
			name:    "wrong type",
			body:    `{"distanceFilter":"five","accuracyFilter":10,"perpendicularDistanceFilter":0.0001,"locationsSequenceFilter":5,"locationsSequenceDistanceFilter":100}`,
			wantErr: ErrInvalidFilter,
		},
		{
			name:    "fractional window",
			body:    `{"distanceFilter":5,"accuracyFilter":10,"perpendicularDistanceFilter":0.0001,"locationsSequenceFilter":5.5,"locationsSequenceDistanceFilter":100}`,
			wantErr: ErrInvalidFilter,
		},
		{
			name:    "unknown regression",
			body:    `{"distanceFilter":5,"accuracyFilter":10,"perpendicularDistanceFilter":0.0001,"locationsSequenceFilter":5,"locationsSequenceDistanceFilter":100,"regression":"lasso"}`,
			wantErr: ErrInvalidFilter,
		},
		{
			name:    "not json",
			body:    `distanceFilter=5`,
			wantErr: ErrInvalidFilter,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseFilters([]byte(tc.body))
			require.ErrorIs(t, err, tc.wantErr)
			if tc.wantMsg != "" {
				assert.EqualError(t, err, tc.wantMsg)
			}
		})
	}
}

func TestFilters_Validate(t *testing.T) {
	t.Parallel()

	f := testFilters()
	f.Regression = RegressionOrdinary
	require.NoError(t, f.Validate())
	assert.Equal(t, RegressionOrdinary, f.Regression)

	for name, mutate := range map[string]func(*Filters){
		"negative distance": func(f *Filters) { f.DistanceFilter = -1 },
		"zero accuracy":     func(f *Filters) { f.AccuracyFilter = 0 },
		"zero threshold":    func(f *Filters) { f.PerpendicularDistanceFilter = 0 },
		"window of one":     func(f *Filters) { f.LocationsSequenceFilter = 1 },
		"zero sequence":     func(f *Filters) { f.LocationsSequenceDistanceFilter = 0 },
	} {
		f := testFilters()
		mutate(&f)
		assert.ErrorIs(t, f.Validate(), ErrInvalidFilter, name)
	}
}
