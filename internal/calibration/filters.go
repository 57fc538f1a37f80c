// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingFilter is returned when a required filter is absent.
	ErrMissingFilter = errors.New("missing filter")
	// ErrInvalidFilter is returned when a filter has the wrong type or range.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Regression selects the line fit used by the path detector.
type Regression string

const (
	// RegressionOrthogonal fits the principal axis (total least squares).
	RegressionOrthogonal Regression = "orthogonal"
	// RegressionOrdinary fits latitude on longitude by ordinary least squares.
	RegressionOrdinary Regression = "ordinary"
)

// Filters is the per-localization configuration bundle. It is fixed for the
// lifetime of an Engine.
type Filters struct {
	// DistanceFilter is the minimum movement in meters between reported
	// fixes. The engine does not apply it; the fix source does.
	DistanceFilter float64 `json:"distanceFilter"`
	// AccuracyFilter is the worst accepted horizontal accuracy in meters.
	AccuracyFilter float64 `json:"accuracyFilter"`
	// PerpendicularDistanceFilter is the on-path threshold in degrees.
	PerpendicularDistanceFilter float64 `json:"perpendicularDistanceFilter"`
	// LocationsSequenceFilter caps how many recent fixes feed the fit.
	LocationsSequenceFilter int `json:"locationsSequenceFilter"`
	// LocationsSequenceDistanceFilter is the straight-line distance in
	// meters a segment must cover before it calibrates.
	LocationsSequenceDistanceFilter float64 `json:"locationsSequenceDistanceFilter"`

	Regression Regression `json:"regression,omitempty"`
}

// Validate checks ranges and fills in the default regression.
func (f *Filters) Validate() error {
	if f.DistanceFilter < 0 {
		return fmt.Errorf("%w: distanceFilter must be >= 0, got %v", ErrInvalidFilter, f.DistanceFilter)
	}
	if f.AccuracyFilter <= 0 {
		return fmt.Errorf("%w: accuracyFilter must be > 0, got %v", ErrInvalidFilter, f.AccuracyFilter)
	}
	if f.PerpendicularDistanceFilter <= 0 {
		return fmt.Errorf("%w: perpendicularDistanceFilter must be > 0, got %v", ErrInvalidFilter, f.PerpendicularDistanceFilter)
	}
	if f.LocationsSequenceFilter < 2 {
		return fmt.Errorf("%w: locationsSequenceFilter must be >= 2, got %d", ErrInvalidFilter, f.LocationsSequenceFilter)
	}
	if f.LocationsSequenceDistanceFilter <= 0 {
		return fmt.Errorf("%w: locationsSequenceDistanceFilter must be > 0, got %v", ErrInvalidFilter, f.LocationsSequenceDistanceFilter)
	}

	switch f.Regression {
	case "":
		f.Regression = RegressionOrthogonal
	case RegressionOrthogonal, RegressionOrdinary:
	default:
		return fmt.Errorf("%w: unknown regression %q", ErrInvalidFilter, f.Regression)
	}
	return nil
}

// filtersBundle mirrors Filters with pointers so absent keys can be told
// apart from zero values.
type filtersBundle struct {
	DistanceFilter                  *float64   `json:"distanceFilter"`
	AccuracyFilter                  *float64   `json:"accuracyFilter"`
	PerpendicularDistanceFilter     *float64   `json:"perpendicularDistanceFilter"`
	LocationsSequenceFilter         *int       `json:"locationsSequenceFilter"`
	LocationsSequenceDistanceFilter *float64   `json:"locationsSequenceDistanceFilter"`
	Regression                      Regression `json:"regression"`
}

// ParseFilters decodes a JSON filter bundle. All five filters are required;
// regression is optional.
func ParseFilters(b []byte) (Filters, error) {
	var raw filtersBundle
	if err := json.Unmarshal(b, &raw); err != nil {
		return Filters{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	switch {
	case raw.DistanceFilter == nil:
		return Filters{}, fmt.Errorf("%w: distanceFilter", ErrMissingFilter)
	case raw.AccuracyFilter == nil:
		return Filters{}, fmt.Errorf("%w: accuracyFilter", ErrMissingFilter)
	case raw.PerpendicularDistanceFilter == nil:
		return Filters{}, fmt.Errorf("%w: perpendicularDistanceFilter", ErrMissingFilter)
	case raw.LocationsSequenceFilter == nil:
		return Filters{}, fmt.Errorf("%w: locationsSequenceFilter", ErrMissingFilter)
	case raw.LocationsSequenceDistanceFilter == nil:
		return Filters{}, fmt.Errorf("%w: locationsSequenceDistanceFilter", ErrMissingFilter)
	}

	f := Filters{
		DistanceFilter:                  *raw.DistanceFilter,
		AccuracyFilter:                  *raw.AccuracyFilter,
		PerpendicularDistanceFilter:     *raw.PerpendicularDistanceFilter,
		LocationsSequenceFilter:         *raw.LocationsSequenceFilter,
		LocationsSequenceDistanceFilter: *raw.LocationsSequenceDistanceFilter,
		Regression:                      raw.Regression,
	}
	if err := f.Validate(); err != nil {
		return Filters{}, err
	}
	return f, nil
}
