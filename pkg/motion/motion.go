// Package motion generates waypoint sequences for geometric patterns.
package motion

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidParameter is returned when pattern parameters cannot produce waypoints.
	ErrInvalidParameter = errors.New("invalid pattern parameter")
	// ErrUnknownPattern is returned by Parse for names it does not recognize.
	ErrUnknownPattern = errors.New("unknown pattern")
)

// Waypoint is a target position in the agent's local frame.
type Waypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (w Waypoint) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", w.X, w.Y)
}

// Pattern is a named shape that expands into an ordered list of waypoints.
type Pattern interface {
	Name() string
	Waypoints() ([]Waypoint, error)
}

// Pattern names.
const (
	NameSquare = "square"
	NameCircle = "circle"
	NameCross  = "cross"
	NameLine   = "line"
)

// Names returns all pattern names in their default run order.
func Names() []string {
	return []string{NameSquare, NameCircle, NameCross, NameLine}
}

// Square traces a closed quadrilateral with corners at (±Width, ±Width).
// The last waypoint repeats the first.
type Square struct {
	Width float64
}

func (s Square) Name() string { return NameSquare }

func (s Square) Waypoints() ([]Waypoint, error) {
	if err := finite("width", s.Width); err != nil {
		return nil, err
	}
	w := s.Width
	return []Waypoint{{w, w}, {w, -w}, {-w, -w}, {-w, w}, {w, w}}, nil
}

// Circle places Divisions points clockwise on a circle of radius Diameter
// around Origin, starting at angle zero. The start is not revisited.
type Circle struct {
	Diameter  float64
	Divisions int
	Origin    Waypoint
}

func (c Circle) Name() string { return NameCircle }

func (c Circle) Waypoints() ([]Waypoint, error) {
	if c.Divisions <= 0 {
		return nil, fmt.Errorf("%w: circle divisions must be positive, got %d", ErrInvalidParameter, c.Divisions)
	}
	if err := finite("diameter", c.Diameter, c.Origin.X, c.Origin.Y); err != nil {
		return nil, err
	}

	step := -360 / float64(c.Divisions)
	points := make([]Waypoint, c.Divisions)
	for i := range points {
		theta := float64(i) * step * math.Pi / 180
		points[i] = Waypoint{
			X: c.Diameter*math.Cos(theta) + c.Origin.X,
			Y: c.Diameter*math.Sin(theta) + c.Origin.Y,
		}
	}
	return points, nil
}

// Cross visits the center, then the tips of a horizontal arm of half-length
// 2*Width and a vertical arm of half-length Width.
type Cross struct {
	Width float64
}

func (c Cross) Name() string { return NameCross }

func (c Cross) Waypoints() ([]Waypoint, error) {
	if err := finite("width", c.Width); err != nil {
		return nil, err
	}
	w := c.Width
	return []Waypoint{{0, 0}, {2 * w, 0}, {-2 * w, 0}, {0, w}, {0, -w}}, nil
}

// Line visits every sign combination of (X, Y), which traces a rectangle
// through the diagonal corners.
type Line struct {
	X, Y float64
}

func (l Line) Name() string { return NameLine }

func (l Line) Waypoints() ([]Waypoint, error) {
	if err := finite("line", l.X, l.Y); err != nil {
		return nil, err
	}
	return []Waypoint{{l.X, l.Y}, {l.X, -l.Y}, {-l.X, -l.Y}, {-l.X, l.Y}}, nil
}

// Generate expands a pattern and guarantees at least one waypoint.
func Generate(p Pattern) ([]Waypoint, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil pattern", ErrInvalidParameter)
	}
	points, err := p.Waypoints()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w: no waypoints", p.Name(), ErrInvalidParameter)
	}
	return points, nil
}

// Shapes holds the geometric parameters Parse draws from.
type Shapes struct {
	SquareWidth     float64
	CircleDiameter  float64
	CircleDivisions int
	CircleOrigin    Waypoint
	CrossWidth      float64
	LineX, LineY    float64
}

// Parse builds the named pattern from shape parameters. Names are case-insensitive.
func Parse(name string, s Shapes) (Pattern, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameSquare:
		return Square{Width: s.SquareWidth}, nil
	case NameCircle:
		return Circle{Diameter: s.CircleDiameter, Divisions: s.CircleDivisions, Origin: s.CircleOrigin}, nil
	case NameCross:
		return Cross{Width: s.CrossWidth}, nil
	case NameLine:
		return Line{X: s.LineX, Y: s.LineY}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
}

func finite(field string, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParameter, field)
		}
	}
	return nil
}
