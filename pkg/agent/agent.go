// Package agent provides positionable agents that can be driven to waypoints.
package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gwillem/pumpbot/pkg/motion"
)

// Agent is a velocity-controlled object that reports whether it reached a target.
type Agent interface {
	// MoveTo blocks until the agent arrives at target or gives up.
	MoveTo(ctx context.Context, speed int, target motion.Waypoint) bool
	// Dwell holds position for d, returning early with ctx.Err() on cancellation.
	Dwell(ctx context.Context, d time.Duration) error
	// Close releases the agent connection.
	Close() error
}

// Agent kinds.
const (
	KindSim    = "sim"
	KindGantry = "gantry"
)

// Config holds configuration for the agent.
type Config struct {
	Kind     string `json:"kind"`
	Port     string `json:"port,omitempty"`
	BaudRate int    `json:"baud_rate,omitempty"`

	X AxisCalibration `json:"x"`
	Y AxisCalibration `json:"y"`

	Hz            int     `json:"hz,omitempty"`             // setpoint rate while moving
	Tolerance     int     `json:"tolerance,omitempty"`      // raw steps counted as arrived
	SettleTimeout float64 `json:"settle_timeout,omitempty"` // seconds to wait for arrival after the last setpoint
	MoveTimeout   float64 `json:"move_timeout,omitempty"`   // seconds bounding a whole move, 0 for none

	Bounds    Rect    `json:"bounds"`               // reachable area of the sim agent
	TimeScale float64 `json:"time_scale,omitempty"` // sim travel time multiplier, 0 for instant
}

// IsCalibrated returns true if both gantry axes have calibration data.
func (c *Config) IsCalibrated() bool {
	return c.X.IsCalibrated() && c.Y.IsCalibrated()
}

// DefaultConfig returns the sim agent over a 300x300 area.
func DefaultConfig() Config {
	return Config{
		Kind:          KindSim,
		BaudRate:      1_000_000,
		X:             DefaultAxis(1),
		Y:             DefaultAxis(2),
		Hz:            30,
		Tolerance:     20,
		SettleTimeout: 2,
		Bounds:        Rect{MinX: -150, MinY: -150, MaxX: 150, MaxY: 150},
	}
}

// Open connects to the configured agent.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (Agent, error) {
	switch cfg.Kind {
	case "", KindSim:
		return NewSim(cfg.Bounds, cfg.TimeScale), nil
	case KindGantry:
		if !cfg.IsCalibrated() {
			return nil, fmt.Errorf("gantry on %s is not calibrated", cfg.Port)
		}
		g, err := NewGantry(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown agent kind %q", cfg.Kind)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
