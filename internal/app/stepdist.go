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
	"sync"
	"syscall"

	"github.com/leogreu/stepdist/internal/calibration"
	"github.com/leogreu/stepdist/internal/config"
	"github.com/leogreu/stepdist/internal/gps"
	"github.com/leogreu/stepdist/internal/pedometer"
	"github.com/leogreu/stepdist/internal/store"
)

// ServiceConfig wires a Service to its topics and persistence.
type ServiceConfig struct {
	DefaultFilters calibration.Filters
	Store          calibration.CalibrationStore // may be nil
	Resume         bool
	StatusTopic    string
	DistanceTopic  string
}

// Service owns the calibration engine of the current localization session
// and turns commands, fixes and step samples into published reports.
type Service struct {
	cfg ServiceConfig
	pub Publisher

	mu     sync.Mutex
	engine *calibration.Engine
	gate   *gps.DistanceGate
}

// NewService returns a service with no localization running.
func NewService(cfg ServiceConfig, pub Publisher) *Service {
	return &Service{cfg: cfg, pub: pub}
}

// HandleCommand applies one control command.
func (s *Service) HandleCommand(c Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.Action {
	case ActionStartLocalization:
		filters := s.cfg.DefaultFilters
		if len(c.Filters) > 0 && string(c.Filters) != "null" {
			f, err := calibration.ParseFilters(c.Filters)
			if err != nil {
				return err
			}
			filters = f
		}
		engine, err := calibration.New(filters,
			calibration.WithStore(s.cfg.Store),
			calibration.WithResume(s.cfg.Resume))
		if err != nil {
			return err
		}
		s.engine = engine
		s.gate = gps.NewDistanceGate(filters.DistanceFilter)
		log.Printf("stepdist: localization started filters=%+v", engine.Filters())
		s.publishLocked(s.cfg.StatusTopic, engine.StatusSnapshot())

	case ActionStopLocalization:
		if s.engine == nil {
			return ErrNotLocalizing
		}
		if s.engine.Measuring() {
			_ = s.engine.StopMeasuring()
		}
		s.flushLocked()
		s.engine = nil
		s.gate = nil
		log.Println("stepdist: localization stopped")

	case ActionStartMeasuring:
		if s.engine == nil {
			return ErrNotLocalizing
		}
		s.gate.Reset()
		s.engine.StartMeasuring()
		s.flushLocked()

	case ActionStopMeasuring:
		if s.engine == nil {
			return ErrNotLocalizing
		}
		if err := s.engine.StopMeasuring(); err != nil {
			return err
		}
		s.flushLocked()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
	return nil
}

// HandleFix forwards a fix that passes the distance gate.
func (s *Service) HandleFix(f gps.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil || !s.gate.Pass(f) {
		return
	}
	s.engine.OnLocationFix(f)
	s.flushLocked()
}

// HandleSample forwards a cumulative step count.
func (s *Service) HandleSample(sample pedometer.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		return
	}
	s.engine.OnStepSample(sample.Steps)
	s.flushLocked()
}

// Snapshot returns the current status and distance. ok is false when no
// localization is running.
func (s *Service) Snapshot() (calibration.Status, calibration.Distance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return calibration.Status{}, calibration.Distance{}, false
	}
	return s.engine.StatusSnapshot(), s.engine.DistanceSnapshot(), true
}

// flushLocked publishes every report the engine has queued.
func (s *Service) flushLocked() {
	for {
		select {
		case st := <-s.engine.Statuses():
			s.publishLocked(s.cfg.StatusTopic, st)
		case d := <-s.engine.Distances():
			s.publishLocked(s.cfg.DistanceTopic, d)
		default:
			return
		}
	}
}

func (s *Service) publishLocked(topic string, v any) {
	if err := s.pub.Publish(topic, v); err != nil {
		log.Printf("stepdist: publish to %s failed: %v", topic, err)
	}
}

// RunStepDist runs the calibration service: commands, GPS fixes and step
// samples in over MQTT, status and distance reports out.
func RunStepDist() error {
	cfg := config.Get()

	// 1) Open the last-calibration store
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Printf("stepdist: calibration store at %s (resume=%v)", cfg.DBPath, cfg.ResumeStepLength)

	// 2) Connect to MQTT broker
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDStepDist)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	svc := NewService(ServiceConfig{
		DefaultFilters: cfg.DefaultFilters(),
		Store:          db,
		Resume:         cfg.ResumeStepLength,
		StatusTopic:    cfg.TopicStatus,
		DistanceTopic:  cfg.TopicDistance,
	}, mqttPublisher{client: client, retained: true})

	// 3) Subscribe to inputs
	if err := subscribe(client, cfg.TopicCommand, func(payload []byte) {
		c, err := DecodeCommand(payload)
		if err != nil {
			log.Printf("stepdist: bad command: %v", err)
			return
		}
		if err := svc.HandleCommand(c); err != nil {
			log.Printf("stepdist: %s failed: %v", c.Action, err)
		}
	}); err != nil {
		return err
	}

	if err := subscribe(client, cfg.TopicGPS, func(payload []byte) {
		var f gps.Fix
		if err := json.Unmarshal(payload, &f); err != nil {
			log.Printf("stepdist: gps unmarshal error: %v", err)
			return
		}
		svc.HandleFix(f)
	}); err != nil {
		return err
	}

	if err := subscribe(client, cfg.TopicSteps, func(payload []byte) {
		var sample pedometer.Sample
		if err := json.Unmarshal(payload, &sample); err != nil {
			log.Printf("stepdist: steps unmarshal error: %v", err)
			return
		}
		svc.HandleSample(sample)
	}); err != nil {
		return err
	}

	log.Printf("stepdist: waiting for %q on %s", ActionStartLocalization, cfg.TopicCommand)

	// 4) Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("stepdist: shutting down")
	return nil
}
