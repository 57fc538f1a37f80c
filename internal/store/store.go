// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store keeps the last committed step-length calibration in SQLite.
// Only one calibration is ever stored; each save replaces the previous one.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/leogreu/stepdist/internal/calibration"
)

// ErrNoCalibration is returned when nothing has been calibrated yet.
var ErrNoCalibration = errors.New("no calibration stored")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating the file and its directory if
// necessary. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is fixed width so stored times compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveCalibration replaces the stored calibration unless the stored one is
// newer.
func (s *Store) SaveCalibration(c calibration.Calibration) error {
	if c.StepLength <= 0 {
		return fmt.Errorf("step length must be > 0, got %v", c.StepLength)
	}
	_, err := s.db.Exec(`
		INSERT INTO last_calibration (id, step_length, calibrated_at, session_id, updated_at)
		VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			step_length = excluded.step_length,
			calibrated_at = excluded.calibrated_at,
			session_id = excluded.session_id,
			updated_at = CURRENT_TIMESTAMP
		WHERE excluded.calibrated_at >= last_calibration.calibrated_at
	`, c.StepLength, c.Time.UTC().Format(timeLayout), c.SessionID)
	if err != nil {
		return fmt.Errorf("saving calibration: %w", err)
	}
	return nil
}

// LoadCalibration returns the stored calibration or ErrNoCalibration.
func (s *Store) LoadCalibration() (calibration.Calibration, error) {
	var (
		c       calibration.Calibration
		at      string
		session sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT step_length, calibrated_at, session_id
		FROM last_calibration
		WHERE id = 1
	`).Scan(&c.StepLength, &at, &session)
	if errors.Is(err, sql.ErrNoRows) {
		return calibration.Calibration{}, ErrNoCalibration
	}
	if err != nil {
		return calibration.Calibration{}, fmt.Errorf("loading calibration: %w", err)
	}

	c.Time, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return calibration.Calibration{}, fmt.Errorf("parsing calibrated_at %q: %w", at, err)
	}
	c.SessionID = session.String
	return c, nil
}

// Clear removes the stored calibration.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM last_calibration`)
	return err
}
