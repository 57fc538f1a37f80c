// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/leogreu/stepdist/internal/calibration"
	"github.com/leogreu/stepdist/internal/config"
	"github.com/leogreu/stepdist/internal/gps"
	"github.com/leogreu/stepdist/internal/pedometer"
	"github.com/leogreu/stepdist/internal/sim"
)

// RunMockConsole walks the configured scenario through an in-process engine
// and prints its reports. No broker or hardware is needed.
func RunMockConsole(tick time.Duration) error {
	cfg := config.Get()

	scn, err := sim.Load(cfg.ScenarioPath)
	if err != nil {
		return err
	}
	engine, err := calibration.New(cfg.DefaultFilters())
	if err != nil {
		return err
	}
	return replay(context.Background(), engine, scn, tick, os.Stdout)
}

// replay measures one walk of scn with engine, pacing ticks by tick (zero
// runs flat out), and writes report lines to w.
func replay(ctx context.Context, engine *calibration.Engine, scn *sim.Scenario, tick time.Duration, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fixes := make(chan gps.Fix)
	samples := make(chan pedometer.Sample)
	walker := sim.NewWalker(scn, time.Now())
	gate := gps.NewDistanceGate(engine.Filters().DistanceFilter)

	engine.StartMeasuring()

	go func() {
		defer close(fixes)
		defer close(samples)

		var pace <-chan time.Time
		if tick > 0 {
			t := time.NewTicker(tick)
			defer t.Stop()
			pace = t.C
		}
		for {
			tk, ok := walker.Next()
			if !ok {
				return
			}
			if pace != nil {
				select {
				case <-ctx.Done():
					return
				case <-pace:
				}
			}
			select {
			case samples <- tk.Sample:
			case <-ctx.Done():
				return
			}
			if !gate.Pass(tk.Fix) {
				continue
			}
			select {
			case fixes <- tk.Fix:
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx, fixes, samples) }()

	for {
		select {
		case st := <-engine.Statuses():
			fmt.Fprintln(w, formatStatus(st))
		case d := <-engine.Distances():
			fmt.Fprintln(w, formatDistance(d))
		case err := <-done:
			fmt.Fprintln(w, formatStatus(engine.StatusSnapshot()))
			fmt.Fprintln(w, formatDistance(engine.DistanceSnapshot()))
			return err
		}
	}
}
