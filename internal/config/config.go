// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leogreu/stepdist/internal/calibration"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDStepDist string
	MQTTClientIDGPS      string
	MQTTClientIDSteps    string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string

	// Topics
	TopicGPS      string
	TopicSteps    string
	TopicIMU      string
	TopicCommand  string
	TopicStatus   string
	TopicDistance string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int
	GPSUEREMeters float64 // HDOP multiplier giving horizontal accuracy in meters

	// Step detection
	StepThreshold   float64       // g above gravity
	StepMinInterval time.Duration // STEP_MIN_INTERVAL is given in milliseconds

	// Web Server
	WebServerPort int

	// Storage
	DBPath           string
	ResumeStepLength bool

	// Default filters for start_localization commands that carry none
	DistanceFilter                  float64
	AccuracyFilter                  float64
	PerpendicularDistanceFilter     float64
	LocationsSequenceFilter         int
	LocationsSequenceDistanceFilter float64
	Regression                      calibration.Regression

	// Simulator
	ScenarioPath string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config with every optional key filled.
func defaults() *Config {
	return &Config{
		MQTTClientIDStepDist: "stepdist-engine",
		MQTTClientIDGPS:      "stepdist-gps",
		MQTTClientIDSteps:    "stepdist-steps",
		MQTTClientIDProducer: "stepdist-producer",
		MQTTClientIDConsole:  "stepdist-console",
		MQTTClientIDWeb:      "stepdist-web",

		TopicGPS:      "stepdist/gps",
		TopicSteps:    "stepdist/steps",
		TopicIMU:      "stepdist/imu",
		TopicCommand:  "stepdist/command",
		TopicStatus:   "stepdist/status",
		TopicDistance: "stepdist/distance",

		GPSBaudRate:   9600,
		GPSUEREMeters: 5.0,

		StepThreshold:   0.15,
		StepMinInterval: 250 * time.Millisecond,

		WebServerPort: 8080,
		DBPath:        "stepdist.db",

		DistanceFilter:                  5,
		AccuracyFilter:                  10,
		PerpendicularDistanceFilter:     0.0001,
		LocationsSequenceFilter:         10,
		LocationsSequenceDistanceFilter: 100,
		Regression:                      calibration.RegressionOrthogonal,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_STEPDIST":
		c.MQTTClientIDStepDist = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_STEPS":
		c.MQTTClientIDSteps = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_STEPS":
		c.TopicSteps = value
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_COMMAND":
		c.TopicCommand = value
	case "TOPIC_STATUS":
		c.TopicStatus = value
	case "TOPIC_DISTANCE":
		c.TopicDistance = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate
	case "GPS_UERE_METERS":
		uere, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GPS_UERE_METERS %q: %w", value, err)
		}
		if uere <= 0 {
			return fmt.Errorf("GPS_UERE_METERS must be > 0, got %v", uere)
		}
		c.GPSUEREMeters = uere

	// Step detection
	case "STEP_THRESHOLD":
		th, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid STEP_THRESHOLD %q: %w", value, err)
		}
		if th <= 0 {
			return fmt.Errorf("STEP_THRESHOLD must be > 0, got %v", th)
		}
		c.StepThreshold = th
	case "STEP_MIN_INTERVAL":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid STEP_MIN_INTERVAL %q: %w", value, err)
		}
		if ms <= 0 {
			return fmt.Errorf("STEP_MIN_INTERVAL must be > 0, got %d", ms)
		}
		c.StepMinInterval = time.Duration(ms) * time.Millisecond

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Storage
	case "DB_PATH":
		c.DBPath = value
	case "RESUME_STEP_LENGTH":
		resume, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid RESUME_STEP_LENGTH %q: %w", value, err)
		}
		c.ResumeStepLength = resume

	// Default filters
	case "DISTANCE_FILTER":
		return parseFloat(key, value, &c.DistanceFilter)
	case "ACCURACY_FILTER":
		return parseFloat(key, value, &c.AccuracyFilter)
	case "PERPENDICULAR_DISTANCE_FILTER":
		return parseFloat(key, value, &c.PerpendicularDistanceFilter)
	case "LOCATIONS_SEQUENCE_FILTER":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOCATIONS_SEQUENCE_FILTER %q: %w", value, err)
		}
		c.LocationsSequenceFilter = n
	case "LOCATIONS_SEQUENCE_DISTANCE_FILTER":
		return parseFloat(key, value, &c.LocationsSequenceDistanceFilter)
	case "REGRESSION":
		switch r := calibration.Regression(value); r {
		case calibration.RegressionOrthogonal, calibration.RegressionOrdinary:
			c.Regression = r
		default:
			return fmt.Errorf("REGRESSION must be %q or %q, got %q",
				calibration.RegressionOrthogonal, calibration.RegressionOrdinary, value)
		}

	// Simulator
	case "SCENARIO_PATH":
		c.ScenarioPath = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parseFloat(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = v
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	topics := []struct{ key, val string }{
		{"TOPIC_GPS", c.TopicGPS},
		{"TOPIC_STEPS", c.TopicSteps},
		{"TOPIC_IMU", c.TopicIMU},
		{"TOPIC_COMMAND", c.TopicCommand},
		{"TOPIC_STATUS", c.TopicStatus},
		{"TOPIC_DISTANCE", c.TopicDistance},
	}
	for _, tp := range topics {
		if tp.val == "" {
			return fmt.Errorf("%s must not be empty", tp.key)
		}
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT out of range: %d", c.WebServerPort)
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be > 0")
	}
	f := c.DefaultFilters()
	if err := f.Validate(); err != nil {
		return fmt.Errorf("default filters: %w", err)
	}
	return nil
}

// DefaultFilters returns the filter bundle used when a start_localization
// command carries none.
func (c *Config) DefaultFilters() calibration.Filters {
	return calibration.Filters{
		DistanceFilter:                  c.DistanceFilter,
		AccuracyFilter:                  c.AccuracyFilter,
		PerpendicularDistanceFilter:     c.PerpendicularDistanceFilter,
		LocationsSequenceFilter:         c.LocationsSequenceFilter,
		LocationsSequenceDistanceFilter: c.LocationsSequenceDistanceFilter,
		Regression:                      c.Regression,
	}
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
