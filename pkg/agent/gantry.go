package agent

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/pumpbot/pkg/motion"
)

// Gantry is an XY stage driven by two Feetech servos, one per axis.
type Gantry struct {
	bus    *feetech.Bus
	group  *feetech.ServoGroup
	x, y   AxisCalibration
	logger *log.Logger

	hz            int
	tolerance     int
	settleTimeout time.Duration
	moveTimeout   time.Duration
}

// NewGantry opens the servo bus and enables torque on both axes.
func NewGantry(ctx context.Context, cfg Config, logger *log.Logger) (*Gantry, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = 1_000_000
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	g := &Gantry{
		bus:           bus,
		group:         feetech.NewServoGroupByIDs(bus, cfg.X.ID, cfg.Y.ID),
		x:             cfg.X,
		y:             cfg.Y,
		logger:        logger,
		hz:            cfg.Hz,
		tolerance:     cfg.Tolerance,
		settleTimeout: seconds(cfg.SettleTimeout),
		moveTimeout:   seconds(cfg.MoveTimeout),
	}
	if g.hz <= 0 {
		g.hz = 30
	}
	if g.tolerance <= 0 {
		g.tolerance = 20
	}
	if g.settleTimeout <= 0 {
		g.settleTimeout = 2 * time.Second
	}

	if err := g.group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable torque: %w", err)
	}
	return g, nil
}

// Position reads the current stage position in world coordinates.
func (g *Gantry) Position(ctx context.Context) (motion.Waypoint, error) {
	raw, err := g.group.Positions(ctx)
	if err != nil {
		return motion.Waypoint{}, fmt.Errorf("read positions: %w", err)
	}
	rx, okX := raw[g.x.ID]
	ry, okY := raw[g.y.ID]
	if !okX || !okY {
		return motion.Waypoint{}, fmt.Errorf("read positions: missing axis servo")
	}
	return motion.Waypoint{X: g.x.FromRaw(rx), Y: g.y.FromRaw(ry)}, nil
}

// MoveTo drives the stage along a straight segment to target at speed
// world units per second, then waits for both axes to settle.
func (g *Gantry) MoveTo(ctx context.Context, speed int, target motion.Waypoint) bool {
	if g.moveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.moveTimeout)
		defer cancel()
	}

	if speed <= 0 {
		g.logger.Printf("Warning: gantry: invalid speed %d", speed)
		return false
	}
	if !g.x.Contains(target.X) || !g.y.Contains(target.Y) {
		g.logger.Printf("Warning: gantry: target %v out of range", target)
		return false
	}

	start, err := g.Position(ctx)
	if err != nil {
		g.logger.Printf("Warning: gantry: %v", err)
		return false
	}
	if err := g.follow(ctx, float64(speed), start, target); err != nil {
		g.logger.Printf("Warning: gantry: move to %v: %v", target, err)
		return false
	}
	if err := g.settle(ctx, target); err != nil {
		g.logger.Printf("Warning: gantry: settle at %v: %v", target, err)
		return false
	}
	return true
}

// follow streams interpolated setpoints at g.hz until the segment is done.
func (g *Gantry) follow(ctx context.Context, speed float64, from, to motion.Waypoint) error {
	distance := math.Hypot(to.X-from.X, to.Y-from.Y)
	steps := int(math.Ceil(distance / speed * float64(g.hz)))
	if steps < 1 {
		steps = 1
	}

	ticker := time.NewTicker(time.Second / time.Duration(g.hz))
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p := motion.Waypoint{
			X: from.X + (to.X-from.X)*t,
			Y: from.Y + (to.Y-from.Y)*t,
		}
		if err := g.group.SetPositions(ctx, g.raw(p)); err != nil {
			return fmt.Errorf("write positions: %w", err)
		}
		if i == steps {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// settle polls positions until both axes are within tolerance of target.
func (g *Gantry) settle(ctx context.Context, target motion.Waypoint) error {
	want := g.raw(target)
	deadline := time.NewTimer(g.settleTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(time.Second / time.Duration(g.hz))
	defer ticker.Stop()

	for {
		raw, err := g.group.Positions(ctx)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}
		if g.within(raw[g.x.ID], want[g.x.ID]) && g.within(raw[g.y.ID], want[g.y.ID]) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("not settled after %s", g.settleTimeout)
		case <-ticker.C:
		}
	}
}

func (g *Gantry) within(got, want int) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d <= g.tolerance
}

func (g *Gantry) raw(p motion.Waypoint) feetech.PositionMap {
	return feetech.PositionMap{
		g.x.ID: g.x.ToRaw(p.X),
		g.y.ID: g.y.ToRaw(p.Y),
	}
}

// Dwell holds the current position for d.
func (g *Gantry) Dwell(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// Close disables torque and closes the bus.
func (g *Gantry) Close() error {
	var errs []error
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.group.DisableAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := g.bus.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
