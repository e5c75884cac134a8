package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
)

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out, nil
}

// FindGantry reports whether the servos for both axes answer on port.
func FindGantry(ctx context.Context, port string, x, y int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return false, fmt.Errorf("open bus: %w", err)
	}
	defer bus.Close()

	lo, hi := x, y
	if lo > hi {
		lo, hi = hi, lo
	}
	servos, err := bus.Scan(ctx, lo, hi)
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", port, err)
	}
	return hasAxes(servos, x, y), nil
}

func hasAxes(servos []feetech.FoundServo, x, y int) bool {
	var foundX, foundY bool
	for _, s := range servos {
		switch s.ID {
		case x:
			foundX = true
		case y:
			foundY = true
		}
	}
	return foundX && foundY
}
