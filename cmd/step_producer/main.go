// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/leogreu/stepdist/internal/app"
	"github.com/leogreu/stepdist/internal/config"
)

func main() {
	configPath := flag.String("config", "./stepdist_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting stepdist step producer (IMU → steps → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunStepProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
