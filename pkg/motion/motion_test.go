package motion

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestSquare_Closed(t *testing.T) {
	points, err := Square{Width: 50}.Waypoints()
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Fatalf("Square returned %d waypoints, want 5", len(points))
	}
	if points[0] != points[len(points)-1] {
		t.Errorf("first %v and last %v waypoints differ", points[0], points[len(points)-1])
	}

	want := []Waypoint{{50, 50}, {50, -50}, {-50, -50}, {-50, 50}, {50, 50}}
	for i, p := range points {
		if p != want[i] {
			t.Errorf("Square[%d] = %v, want %v", i, p, want[i])
		}
	}
}

func TestCircle_Example(t *testing.T) {
	points, err := Circle{Diameter: 65, Divisions: 4}.Waypoints()
	if err != nil {
		t.Fatal(err)
	}

	want := []Waypoint{{65, 0}, {0, -65}, {-65, 0}, {0, 65}}
	if len(points) != len(want) {
		t.Fatalf("Circle returned %d waypoints, want %d", len(points), len(want))
	}
	for i, p := range points {
		if math.Abs(p.X-want[i].X) > 1e-6 || math.Abs(p.Y-want[i].Y) > 1e-6 {
			t.Errorf("Circle[%d] = %v, want %v", i, p, want[i])
		}
	}
}

func TestCircle_AnglesClockwise(t *testing.T) {
	for _, n := range []int{1, 3, 7, 15, 36} {
		c := Circle{Diameter: 10, Divisions: n, Origin: Waypoint{X: 3, Y: -2}}
		points, err := c.Waypoints()
		if err != nil {
			t.Fatalf("divisions %d: %v", n, err)
		}
		if len(points) != n {
			t.Fatalf("divisions %d: got %d waypoints", n, len(points))
		}
		for i, p := range points {
			theta := -float64(i) * 360 / float64(n) * math.Pi / 180
			wantX := 10*math.Cos(theta) + 3
			wantY := 10*math.Sin(theta) - 2
			if math.Abs(p.X-wantX) > 1e-6 || math.Abs(p.Y-wantY) > 1e-6 {
				t.Errorf("divisions %d: point %d = %v, want (%f, %f)", n, i, p, wantX, wantY)
			}
		}
		if n > 2 {
			// Clockwise: the second point has a negative y offset from the origin.
			if points[1].Y >= -2 {
				t.Errorf("divisions %d: second point %v is not clockwise", n, points[1])
			}
		}
	}
}

func TestCircle_InvalidDivisions(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := Circle{Diameter: 65, Divisions: n}.Waypoints()
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("divisions %d: err = %v, want ErrInvalidParameter", n, err)
		}
	}
}

func TestCross_Exact(t *testing.T) {
	for _, w := range []float64{0, 1, 50, -7.5} {
		points, err := Cross{Width: w}.Waypoints()
		if err != nil {
			t.Fatal(err)
		}
		want := []Waypoint{{0, 0}, {2 * w, 0}, {-2 * w, 0}, {0, w}, {0, -w}}
		if len(points) != len(want) {
			t.Fatalf("Cross(%v) returned %d waypoints", w, len(points))
		}
		for i := range want {
			if !near(points[i].X, want[i].X) || !near(points[i].Y, want[i].Y) {
				t.Errorf("Cross(%v)[%d] = %v, want %v", w, i, points[i], want[i])
			}
		}
	}
}

func TestLine_SignPermutations(t *testing.T) {
	points, err := Line{X: 100, Y: 70}.Waypoints()
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 4 {
		t.Fatalf("Line returned %d waypoints, want 4", len(points))
	}

	seen := make(map[Waypoint]int)
	for _, p := range points {
		seen[p]++
	}
	for _, want := range []Waypoint{{100, 70}, {100, -70}, {-100, -70}, {-100, 70}} {
		if seen[want] != 1 {
			t.Errorf("Line visited %v %d times, want 1", want, seen[want])
		}
	}
}

func TestGenerate(t *testing.T) {
	if _, err := Generate(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Generate(nil) err = %v", err)
	}
	if _, err := Generate(Square{Width: math.NaN()}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Generate(NaN square) err = %v", err)
	}
	if _, err := Generate(Line{X: math.Inf(1), Y: 1}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Generate(Inf line) err = %v", err)
	}

	points, err := Generate(Cross{Width: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Errorf("Generate(cross) returned %d waypoints", len(points))
	}
}

func TestParse(t *testing.T) {
	s := Shapes{
		SquareWidth:     50,
		CircleDiameter:  65,
		CircleDivisions: 15,
		CrossWidth:      40,
		LineX:           100,
		LineY:           70,
	}

	tests := []struct {
		name string
		want Pattern
	}{
		{"square", Square{Width: 50}},
		{"Circle", Circle{Diameter: 65, Divisions: 15}},
		{" cross ", Cross{Width: 40}},
		{"LINE", Line{X: 100, Y: 70}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.name, s)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %#v, want %#v", tt.name, got, tt.want)
		}
	}

	if _, err := Parse("triangle", s); !errors.Is(err, ErrUnknownPattern) {
		t.Errorf("Parse(triangle) err = %v, want ErrUnknownPattern", err)
	}
}
