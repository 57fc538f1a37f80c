// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leogreu/stepdist/internal/calibration"
	"github.com/leogreu/stepdist/internal/config"
	"github.com/leogreu/stepdist/internal/gps"
	"github.com/leogreu/stepdist/internal/pedometer"
)

func formatFix(f gps.Fix) string {
	return fmt.Sprintf("[GPS ]  time=%s lat=%.6f lon=%.6f acc=%.1fm src=%s",
		f.Time.UTC().Format(time.TimeOnly), f.Latitude, f.Longitude, f.HorizontalAccuracy, f.Source)
}

func formatSample(s pedometer.Sample) string {
	return fmt.Sprintf("[STEP]  steps=%d src=%s", s.Steps, s.Source)
}

func formatStatus(s calibration.Status) string {
	return fmt.Sprintf("[STAT]  ready=%t calibrating=%t stepLength=%.3fm last=%s",
		s.IsReadyToStart, s.IsCalibrating, s.StepLength, s.LastCalibrated)
}

func formatDistance(d calibration.Distance) string {
	return fmt.Sprintf("[DIST]  distance=%dm steps=%d", d.DistanceTraveled, d.StepsTaken)
}

// printJSON decodes payload into a T and prints it with format.
func printJSON[T any](name string, format func(T) string) func([]byte) {
	return func(payload []byte) {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			log.Printf("console: %s unmarshal error: %v", name, err)
			return
		}
		fmt.Println(format(v))
	}
}

// RunConsoleMQTT prints every message on the GPS, steps, status and
// distance topics.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	subs := []struct {
		topic   string
		handler func([]byte)
	}{
		{cfg.TopicGPS, printJSON("gps", formatFix)},
		{cfg.TopicSteps, printJSON("steps", formatSample)},
		{cfg.TopicStatus, printJSON("status", formatStatus)},
		{cfg.TopicDistance, printJSON("distance", formatDistance)},
	}
	for _, s := range subs {
		if err := subscribe(client, s.topic, s.handler); err != nil {
			return err
		}
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
