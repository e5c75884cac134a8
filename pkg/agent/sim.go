package agent

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/gwillem/pumpbot/pkg/motion"
)

// Rect is an axis-aligned area in world coordinates.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// IsZero reports whether the rect is unset.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// Contains reports whether p lies inside r. A zero Rect contains everything.
func (r Rect) Contains(p motion.Waypoint) bool {
	if r.IsZero() {
		return true
	}
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// Sim is an in-memory agent. Moves outside Bounds fail the way a real agent
// fails when it loses track of its position.
type Sim struct {
	bounds    Rect
	timeScale float64

	mu     sync.Mutex
	pos    motion.Waypoint
	moves  int
	closed bool
}

// NewSim creates a sim agent at the origin. Travel takes distance/speed
// seconds multiplied by timeScale.
func NewSim(bounds Rect, timeScale float64) *Sim {
	return &Sim{bounds: bounds, timeScale: timeScale}
}

// MoveTo simulates travel to target.
func (s *Sim) MoveTo(ctx context.Context, speed int, target motion.Waypoint) bool {
	s.mu.Lock()
	s.moves++
	from := s.pos
	closed := s.closed
	s.mu.Unlock()

	if closed || speed <= 0 || !s.bounds.Contains(target) {
		return false
	}

	if s.timeScale > 0 {
		travel := math.Hypot(target.X-from.X, target.Y-from.Y) / float64(speed) * s.timeScale
		if err := Sleep(ctx, time.Duration(travel*float64(time.Second))); err != nil {
			return false
		}
	} else if ctx.Err() != nil {
		return false
	}

	s.mu.Lock()
	s.pos = target
	s.mu.Unlock()
	return true
}

// Dwell waits for d scaled by the sim time scale.
func (s *Sim) Dwell(ctx context.Context, d time.Duration) error {
	if s.timeScale <= 0 {
		return ctx.Err()
	}
	return Sleep(ctx, time.Duration(float64(d)*s.timeScale))
}

// Position returns the last reached waypoint.
func (s *Sim) Position() motion.Waypoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Moves returns the number of MoveTo calls.
func (s *Sim) Moves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moves
}

// Close marks the agent released.
func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
