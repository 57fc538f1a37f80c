// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"errors"
	"io"
	"log"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/leogreu/stepdist/internal/config"
	"github.com/leogreu/stepdist/internal/gps"
)

// RunGPSProducer opens the GPS serial port, assembles NMEA sentences into
// fixes and publishes each one as JSON to TOPIC_GPS.
func RunGPSProducer() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// ---- 2) Open GPS serial port ----
	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return err
	}
	defer port.Close()
	log.Printf("GPS serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	// ---- 3) NMEA → Fix → MQTT ----
	asm := gps.NewAssembler(cfg.GPSUEREMeters)
	return pumpNMEA(port, asm, mqttPublisher{client: client}, cfg.TopicGPS, time.Now)
}

// pumpNMEA reads NMEA lines from r until EOF or a read error and publishes
// every fix the assembler completes.
func pumpNMEA(r io.Reader, asm *gps.Assembler, pub Publisher, topic string, now func() time.Time) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			fix, ok, perr := asm.Apply(now(), line)
			switch {
			case perr != nil:
				// noisy GPS or partial sentences
			case ok:
				if err := pub.Publish(topic, fix); err != nil {
					log.Printf("GPS publish error: %v", err)
				} else {
					log.Printf("published GPS fix: lat=%.6f lon=%.6f acc=%.1fm", fix.Latitude, fix.Longitude, fix.HorizontalAccuracy)
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			log.Printf("GPS read error: %v", err)
			return err
		}
	}
}
