// Package pumpbot drives a positionable agent through waypoint patterns while
// keeping a pump in lockstep with every waypoint.
//
// Each waypoint is visited in order. After every move, successful or not, the
// pattern's power level is sent to the pump as a single byte. A failed arrival
// skips the rest of that pattern, and the run carries on with the next one.
// Whatever ends a run, the pump receives 0 before its link is closed.
//
// # Installation
//
//	go install github.com/gwillem/pumpbot/cmd/pumpbot@latest
//
// # Usage
//
// First, run setup to pick the pump port and the agent:
//
//	pumpbot setup
//
// Then start a run, or try the sequence on the simulator:
//
//	pumpbot run
//	pumpbot run --dry-run --pattern circle --cycles 1
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/pumpbot: CLI with setup, run and patterns commands
//   - pkg/motion: Waypoint generation for square, circle, cross and line patterns
//   - pkg/actuator: Byte-per-command pump channel over a serial link
//   - pkg/agent: Feetech gantry and simulated agents
//   - pkg/sequence: Pattern executor and cycle orchestrator
//   - pkg/config: JSON configuration file
//   - pkg/api: HTTP status and stop endpoints
package pumpbot
