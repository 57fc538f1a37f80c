// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pedometer

import "time"

// Sample is a cumulative step count since the counter was started.
type Sample struct {
	Steps  int       `json:"steps"`
	Time   time.Time `json:"time"`
	Source string    `json:"source,omitempty"` // "imu", "sim", ...
}
