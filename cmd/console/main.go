// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/leogreu/stepdist/internal/app"
	"github.com/leogreu/stepdist/internal/config"
)

func main() {
	configPath := flag.String("config", "./stepdist_config.txt", "path to configuration file")
	tick := flag.Duration("tick", 100*time.Millisecond, "wall time per simulated fix, 0 for no pacing")
	flag.Parse()

	log.Println("starting stepdist (mock console)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMockConsole(*tick); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
