// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Last calibration (singleton row)
		`CREATE TABLE IF NOT EXISTS last_calibration (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			step_length REAL NOT NULL CHECK (step_length > 0),
			calibrated_at TEXT NOT NULL,
			session_id TEXT,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
