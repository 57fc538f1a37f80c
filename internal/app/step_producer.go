// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/leogreu/stepdist/internal/config"
	"github.com/leogreu/stepdist/internal/imu"
	"github.com/leogreu/stepdist/internal/pedometer"
)

// stepPump turns raw IMU payloads into cumulative step samples.
type stepPump struct {
	mu      sync.Mutex
	counter *pedometer.Counter
	pub     Publisher
	topic   string
	now     func() time.Time
}

func (p *stepPump) handle(payload []byte) {
	var s imu.IMURaw
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Printf("steps: imu unmarshal error: %v", err)
		return
	}
	at := s.Time
	if at.IsZero() {
		at = p.now()
	}

	p.mu.Lock()
	sample, stepped := p.counter.Add(at, s)
	p.mu.Unlock()
	if !stepped {
		return
	}

	if err := p.pub.Publish(p.topic, sample); err != nil {
		log.Printf("steps: publish error: %v", err)
	}
}

// RunStepProducer subscribes to raw IMU samples on TOPIC_IMU and publishes
// the cumulative step count to TOPIC_STEPS after every detected step.
func RunStepProducer() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDSteps)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	pump := &stepPump{
		counter: pedometer.NewCounter(pedometer.Config{
			Threshold:   cfg.StepThreshold,
			MinInterval: cfg.StepMinInterval,
		}),
		pub:   mqttPublisher{client: client},
		topic: cfg.TopicSteps,
		now:   time.Now,
	}
	if err := subscribe(client, cfg.TopicIMU, pump.handle); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	pump.mu.Lock()
	log.Printf("steps: shutting down after %d steps", pump.counter.Steps())
	pump.mu.Unlock()
	return nil
}
