package geom

import (
	"math"
	"testing"
)

func TestSegmentIntersection(t *testing.T) {
	a := Segment{A: Point{X: 0, Y: 0}, B: Point{X: 10, Y: 10}}
	b := Segment{A: Point{X: 0, Y: 10}, B: Point{X: 10, Y: 0}}

	p, ok := a.Intersection(b)
	if !ok {
		t.Fatalf("expected crossing segments to intersect")
	}
	if math.Abs(p.X-5) > 1e-12 || math.Abs(p.Y-5) > 1e-12 {
		t.Fatalf("unexpected intersection point: %+v", p)
	}
}

func TestSegmentIntersectionOffCenter(t *testing.T) {
	// Crossing at unequal parameters along each segment: t=0.2, u=0.25.
	a := Segment{A: Point{X: 0, Y: 0}, B: Point{X: 10, Y: 0}}
	b := Segment{A: Point{X: 2, Y: -1}, B: Point{X: 2, Y: 3}}

	p, ok := a.Intersection(b)
	if !ok {
		t.Fatalf("expected crossing segments to intersect")
	}
	if math.Abs(p.X-2) > 1e-12 || math.Abs(p.Y) > 1e-12 {
		t.Fatalf("unexpected intersection point: %+v", p)
	}
	if !b.Intersects(a) {
		t.Fatalf("intersection must be symmetric in the operands")
	}
}

func TestSegmentIntersectionParallel(t *testing.T) {
	a := Segment{A: Point{X: 0, Y: 0}, B: Point{X: 10, Y: 0}}
	b := Segment{A: Point{X: 0, Y: 1}, B: Point{X: 10, Y: 1}}

	if a.Intersects(b) {
		t.Fatalf("parallel segments must not intersect")
	}
}

func TestSegmentIntersectionDisjoint(t *testing.T) {
	a := Segment{A: Point{X: 0, Y: 0}, B: Point{X: 1, Y: 1}}
	b := Segment{A: Point{X: 5, Y: 0}, B: Point{X: 5, Y: 10}}

	if a.Intersects(b) {
		t.Fatalf("disjoint segments must not intersect")
	}
}

func TestSegmentEndpointTouch(t *testing.T) {
	a := Segment{A: Point{X: 0, Y: 0}, B: Point{X: 10, Y: 0}}
	b := Segment{A: Point{X: 10, Y: 0}, B: Point{X: 10, Y: 10}}

	p, ok := a.Intersection(b)
	if !ok {
		t.Fatalf("segments sharing an endpoint must intersect")
	}
	if p.X != 10 || p.Y != 0 {
		t.Fatalf("unexpected touch point: %+v", p)
	}
}

func TestDistanceToPoint(t *testing.T) {
	s := Segment{A: Point{X: 0, Y: 0}, B: Point{X: 10, Y: 0}}

	cases := []struct {
		p    Point
		want float64
	}{
		{Point{X: 5, Y: 3}, 3},
		{Point{X: -4, Y: 0}, 4},
		{Point{X: 13, Y: 4}, 5},
		{Point{X: 7, Y: 0}, 0},
	}
	for _, tc := range cases {
		got := s.DistanceToPoint(tc.p)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("distance to %+v: got %f want %f", tc.p, got, tc.want)
		}
	}
}

func TestNormalizeAngle(t *testing.T) {
	if got := NormalizeAngle(-math.Pi / 2); math.Abs(got-3*math.Pi/2) > 1e-12 {
		t.Fatalf("normalize -π/2: got %f", got)
	}
	if got := NormalizeAngle(5 * math.Pi); math.Abs(got-math.Pi) > 1e-12 {
		t.Fatalf("normalize 5π: got %f", got)
	}
}

func TestRay(t *testing.T) {
	r := Ray(Point{X: 1, Y: 1}, 0, 10)
	if math.Abs(r.B.X-11) > 1e-12 || math.Abs(r.B.Y-1) > 1e-12 {
		t.Fatalf("unexpected ray end: %+v", r.B)
	}
	if math.Abs(r.Length()-10) > 1e-12 {
		t.Fatalf("unexpected ray length: %f", r.Length())
	}
}

func TestAngleTo(t *testing.T) {
	origin := Point{}
	if got := origin.AngleTo(Point{X: 0, Y: 1}); math.Abs(got-math.Pi/2) > 1e-12 {
		t.Fatalf("angle to north: got %f", got)
	}
	if got := origin.AngleTo(Point{X: -1, Y: 0}); math.Abs(got-math.Pi) > 1e-12 {
		t.Fatalf("angle to west: got %f", got)
	}
}
