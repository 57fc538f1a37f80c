// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leogreu/stepdist/internal/config"
	"github.com/leogreu/stepdist/internal/sim"
)

// RunMockProducer publishes a simulated walk to TOPIC_GPS and TOPIC_STEPS in
// real time. With autoStart it first sends start_localization and
// start_measuring so a running stepdist service begins measuring straight
// away.
func RunMockProducer(autoStart bool) error {
	cfg := config.Get()

	scn, err := sim.Load(cfg.ScenarioPath)
	if err != nil {
		return err
	}
	log.Printf("producer: scenario %s, %d legs, %.0fm in %s",
		cfg.ScenarioPath, len(scn.Legs()), scn.Length(), scn.Duration())

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	pub := mqttPublisher{client: client}

	if autoStart {
		for _, action := range []string{ActionStartLocalization, ActionStartMeasuring} {
			if err := pub.Publish(cfg.TopicCommand, Command{Action: action}); err != nil {
				return err
			}
			log.Printf("producer: sent %s", action)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return publishWalk(ctx, sim.NewWalker(scn, time.Now()), pub, cfg.TopicGPS, cfg.TopicSteps, scn.FixInterval())
}

// publishWalk sends each tick's step sample then its fix, one tick per
// interval, until the walk ends or ctx is done.
func publishWalk(ctx context.Context, w *sim.Walker, pub Publisher, gpsTopic, stepsTopic string, interval time.Duration) error {
	var pace <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	n := 0
	for {
		tk, ok := w.Next()
		if !ok {
			log.Printf("producer: walk finished after %d fixes", n)
			return nil
		}
		if n > 0 && pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}
		if err := pub.Publish(stepsTopic, tk.Sample); err != nil {
			log.Printf("producer: steps publish error: %v", err)
		}
		if err := pub.Publish(gpsTopic, tk.Fix); err != nil {
			log.Printf("producer: gps publish error: %v", err)
		}
		n++
	}
}
