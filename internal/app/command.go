// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Command actions accepted on the command topic.
const (
	ActionStartLocalization = "start_localization"
	ActionStopLocalization  = "stop_localization"
	ActionStartMeasuring    = "start_measuring"
	ActionStopMeasuring     = "stop_measuring"
)

var (
	ErrUnknownAction  = errors.New("unknown command action")
	ErrNotLocalizing  = errors.New("localization not started")
	ErrMalformedInput = errors.New("malformed payload")
)

// Command is a control message for the stepdist service. Filters is only
// read by start_localization; when absent the configured defaults apply.
type Command struct {
	Action  string          `json:"action"`
	Filters json.RawMessage `json:"filters,omitempty"`
}

// DecodeCommand parses and checks a command payload.
func DecodeCommand(payload []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(payload, &c); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	switch c.Action {
	case ActionStartLocalization, ActionStopLocalization, ActionStartMeasuring, ActionStopMeasuring:
		return c, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
}
