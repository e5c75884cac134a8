package actuator

import (
	"fmt"
	"io"
	"time"

	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Link drivers.
const (
	DriverBugst   = "bugst"
	DriverTarm    = "tarm"
	DriverDiscard = "discard"
)

// DefaultBaudRate matches the pump controller firmware.
const DefaultBaudRate = 115200

// LinkConfig holds serial link configuration for the actuator.
type LinkConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
	// Driver selects the serial implementation: "bugst" (default), "tarm", or "discard".
	Driver string `json:"driver,omitempty"`
}

// OpenLink opens the byte link described by cfg.
func OpenLink(cfg LinkConfig) (io.WriteCloser, error) {
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	switch cfg.Driver {
	case "", DriverBugst:
		if cfg.Port == "" {
			return nil, fmt.Errorf("open link: no port configured")
		}
		port, err := bugst.Open(cfg.Port, &bugst.Mode{BaudRate: baud})
		if err != nil {
			return nil, fmt.Errorf("open link %s: %w", cfg.Port, err)
		}
		return port, nil

	case DriverTarm:
		if cfg.Port == "" {
			return nil, fmt.Errorf("open link: no port configured")
		}
		port, err := tarm.OpenPort(&tarm.Config{
			Name:        cfg.Port,
			Baud:        baud,
			ReadTimeout: 100 * time.Millisecond,
		})
		if err != nil {
			return nil, fmt.Errorf("open link %s: %w", cfg.Port, err)
		}
		return port, nil

	case DriverDiscard:
		return nopLink{}, nil

	default:
		return nil, fmt.Errorf("open link: unknown driver %q", cfg.Driver)
	}
}

type nopLink struct{}

func (nopLink) Write(b []byte) (int, error) { return len(b), nil }
func (nopLink) Close() error                { return nil }
