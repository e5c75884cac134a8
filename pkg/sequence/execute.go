// Package sequence runs waypoint patterns on an agent while driving an actuator in lockstep.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/pumpbot/pkg/motion"
)

// Agent is the positionable object driven through waypoints.
type Agent interface {
	MoveTo(ctx context.Context, speed int, target motion.Waypoint) bool
	Dwell(ctx context.Context, d time.Duration) error
	Close() error
}

// Actuator accepts one power level per command.
type Actuator interface {
	Push(power byte) error
	Close() error
}

// Step binds a pattern to the actuator power and dwell used at each of its waypoints.
type Step struct {
	Pattern   motion.Pattern
	Power     byte
	Dwell     time.Duration
	Waypoints []motion.Waypoint
}

// NewStep generates the pattern's waypoints up front so that parameter
// errors surface before anything moves.
func NewStep(p motion.Pattern, power byte, dwell time.Duration) (Step, error) {
	points, err := motion.Generate(p)
	if err != nil {
		return Step{}, err
	}
	if dwell < 0 {
		return Step{}, fmt.Errorf("%s: %w: negative dwell", p.Name(), motion.ErrInvalidParameter)
	}
	return Step{Pattern: p, Power: power, Dwell: dwell, Waypoints: points}, nil
}

// Name returns the pattern name.
func (s Step) Name() string {
	if s.Pattern == nil {
		return ""
	}
	return s.Pattern.Name()
}

// Plan is the ordered list of steps making up one cycle.
type Plan []Step

// Status is the result kind of one pattern execution.
type Status string

const (
	Completed Status = "completed"
	Aborted   Status = "aborted"
	Cancelled Status = "cancelled"
)

// Outcome is the result of executing one step. Index is the waypoint that
// failed or was interrupted and is zero when the step completed.
type Outcome struct {
	Pattern   string `json:"pattern"`
	Status    Status `json:"status"`
	Index     int    `json:"index"`
	Attempted int    `json:"attempted"`
}

func (o Outcome) String() string {
	if o.Status == Completed {
		return fmt.Sprintf("%s %s", o.Pattern, o.Status)
	}
	return fmt.Sprintf("%s %s at waypoint %d", o.Pattern, o.Status, o.Index)
}

// WaypointResult describes one attempted waypoint.
type WaypointResult struct {
	Pattern string
	Index   int
	Target  motion.Waypoint
	Reached bool
	Power   byte
}

// Execute drives agent through every waypoint of step. After each move the
// step's power is pushed to channel whether or not the agent arrived; a
// failed arrival then aborts the rest of the step. Push errors never stop
// motion. observe, if non-nil, is called after each push.
func Execute(ctx context.Context, step Step, speed int, agent Agent, channel Actuator, observe func(WaypointResult)) Outcome {
	out := Outcome{Pattern: step.Name(), Status: Completed}

	for i, wp := range step.Waypoints {
		if ctx.Err() != nil {
			out.Status, out.Index = Cancelled, i
			return out
		}

		out.Attempted++
		reached := agent.MoveTo(ctx, speed, wp)
		_ = channel.Push(step.Power) // logged by the channel

		if observe != nil {
			observe(WaypointResult{
				Pattern: out.Pattern,
				Index:   i,
				Target:  wp,
				Reached: reached,
				Power:   step.Power,
			})
		}

		if !reached {
			out.Status, out.Index = Aborted, i
			if ctx.Err() != nil {
				out.Status = Cancelled
			}
			return out
		}

		if err := agent.Dwell(ctx, step.Dwell); err != nil {
			out.Status, out.Index = Cancelled, i
			return out
		}
	}
	return out
}
