// Package config loads the motion configuration for a run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/pumpbot/pkg/actuator"
	"github.com/gwillem/pumpbot/pkg/agent"
	"github.com/gwillem/pumpbot/pkg/motion"
	"github.com/gwillem/pumpbot/pkg/sequence"
)

const DefaultConfigFile = "pumpbot.json"

// Config holds the motion configuration. It is read once at startup and
// passed by value afterwards.
type Config struct {
	Speed           int      `json:"speed"`
	Square          Square   `json:"square"`
	Circle          Circle   `json:"circle"`
	Cross           Cross    `json:"cross"`
	Line            Line     `json:"line"`
	Sequence        []string `json:"sequence"`
	CycleCount      int      `json:"cycle_count"`
	InterCyclePause float64  `json:"inter_cycle_pause"` // seconds
	ReturnHome      bool     `json:"return_home,omitempty"`

	Actuator actuator.LinkConfig `json:"actuator"`
	Agent    agent.Config        `json:"agent"`
}

// Square holds square pattern settings.
type Square struct {
	Width float64 `json:"width"`
	Power int     `json:"power"`
	Dwell float64 `json:"dwell"` // seconds at each waypoint
}

// Circle holds circle pattern settings.
type Circle struct {
	Diameter  float64         `json:"diameter"`
	Divisions int             `json:"divisions"`
	Origin    motion.Waypoint `json:"origin"`
	Power     int             `json:"power"`
	Dwell     float64         `json:"dwell"`
}

// Cross holds cross pattern settings.
type Cross struct {
	Width float64 `json:"width"`
	Power int     `json:"power"`
	Dwell float64 `json:"dwell"`
}

// Line holds line pattern settings.
type Line struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Power int     `json:"power"`
	Dwell float64 `json:"dwell"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Speed:           30,
		Square:          Square{Width: 50, Power: 150, Dwell: 0.5},
		Circle:          Circle{Diameter: 65, Divisions: 15, Power: 255, Dwell: 5},
		Cross:           Cross{Width: 50, Power: 100, Dwell: 0.5},
		Line:            Line{X: 100, Y: 70, Power: 100, Dwell: 0.5},
		Sequence:        motion.Names(),
		CycleCount:      100,
		InterCyclePause: 20,
		Actuator: actuator.LinkConfig{
			Port:     "COM7",
			BaudRate: actuator.DefaultBaudRate,
			Driver:   actuator.DriverBugst,
		},
		Agent: agent.DefaultConfig(),
	}
}

// Load loads configuration from the default config file
func Load() (Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom loads configuration from a specific file. Fields absent from the
// file keep their default values.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Exists returns true if the default config file exists
func Exists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Speed <= 0 {
		errs = append(errs, fmt.Errorf("speed must be positive, got %d", c.Speed))
	}
	if c.CycleCount < 0 {
		errs = append(errs, fmt.Errorf("cycle_count must not be negative, got %d", c.CycleCount))
	}
	if c.InterCyclePause < 0 {
		errs = append(errs, fmt.Errorf("inter_cycle_pause must not be negative, got %g", c.InterCyclePause))
	}
	if c.Circle.Divisions <= 0 {
		errs = append(errs, fmt.Errorf("%w: circle divisions must be positive, got %d", motion.ErrInvalidParameter, c.Circle.Divisions))
	}
	if len(c.Sequence) == 0 {
		errs = append(errs, errors.New("sequence is empty"))
	}
	for _, name := range c.Sequence {
		p, err := motion.Parse(name, c.shapes())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		power, dwell := c.settingsFor(p.Name())
		if power < 0 || power > 255 {
			errs = append(errs, fmt.Errorf("%s power must be within 0..255, got %d", p.Name(), power))
		}
		if dwell < 0 {
			errs = append(errs, fmt.Errorf("%s dwell must not be negative, got %g", p.Name(), dwell))
		}
	}
	return errors.Join(errs...)
}

// Settings returns the run-wide orchestrator settings.
func (c Config) Settings() sequence.Settings {
	return sequence.Settings{
		Speed:           c.Speed,
		CycleCount:      c.CycleCount,
		InterCyclePause: seconds(c.InterCyclePause),
		ReturnHome:      c.ReturnHome,
		Home:            c.Circle.Origin,
	}
}

// Plan builds the steps of one cycle in sequence order.
func (c Config) Plan() (sequence.Plan, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	plan := make(sequence.Plan, 0, len(c.Sequence))
	for _, name := range c.Sequence {
		p, err := motion.Parse(name, c.shapes())
		if err != nil {
			return nil, err
		}
		power, dwell := c.settingsFor(p.Name())
		step, err := sequence.NewStep(p, byte(power), seconds(dwell))
		if err != nil {
			return nil, err
		}
		plan = append(plan, step)
	}
	return plan, nil
}

func (c Config) shapes() motion.Shapes {
	return motion.Shapes{
		SquareWidth:     c.Square.Width,
		CircleDiameter:  c.Circle.Diameter,
		CircleDivisions: c.Circle.Divisions,
		CircleOrigin:    c.Circle.Origin,
		CrossWidth:      c.Cross.Width,
		LineX:           c.Line.X,
		LineY:           c.Line.Y,
	}
}

func (c Config) settingsFor(name string) (power int, dwell float64) {
	switch name {
	case motion.NameSquare:
		return c.Square.Power, c.Square.Dwell
	case motion.NameCircle:
		return c.Circle.Power, c.Circle.Dwell
	case motion.NameCross:
		return c.Cross.Power, c.Cross.Dwell
	case motion.NameLine:
		return c.Line.Power, c.Line.Dwell
	}
	return 0, 0
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
