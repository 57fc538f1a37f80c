// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// DefaultUERE is the user equivalent range error in meters used to turn
// HDOP into a horizontal accuracy estimate.
const DefaultUERE = 5.0

// Assembler combines NMEA sentences into Fix values.
//
// GGA sentences update the HDOP; each valid RMC sentence produces one fix
// carrying the most recent HDOP scaled by UERE. Void RMC sentences and all
// other sentence types produce nothing.
type Assembler struct {
	UERE float64

	hdop   float64
	hdopOK bool
}

// NewAssembler returns an Assembler using uere meters per unit of HDOP.
// A non-positive uere falls back to DefaultUERE.
func NewAssembler(uere float64) *Assembler {
	if uere <= 0 {
		uere = DefaultUERE
	}
	return &Assembler{UERE: uere}
}

// Apply feeds one raw line. It returns a fix when the line completed one.
// Lines that are not NMEA sentences are ignored without error.
func (a *Assembler) Apply(now time.Time, line string) (Fix, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, fmt.Errorf("nmea parse: %w", err)
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.FixQuality == nmea.Invalid {
			a.hdopOK = false
			return Fix{}, false, nil
		}
		a.hdop = m.HDOP
		a.hdopOK = m.HDOP > 0
		return Fix{}, false, nil

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			return Fix{}, false, nil
		}

		accuracy := UnknownAccuracy
		if a.hdopOK {
			accuracy = a.hdop * a.UERE
		}

		return Fix{
			Latitude:           m.Latitude,
			Longitude:          m.Longitude,
			HorizontalAccuracy: accuracy,
			Time:               fixTime(now, m.Date, m.Time),
			Source:             "nmea",
		}, true, nil

	default:
		// GSA, GSV, VTG, ... carry nothing we report
		return Fix{}, false, nil
	}
}

func fixTime(now time.Time, d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return now.UTC()
	}
	// Two-digit years: anything that would land past next year is last century.
	year := 2000 + d.YY
	if year > now.Year()+1 {
		year -= 100
	}
	return time.Date(year, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
