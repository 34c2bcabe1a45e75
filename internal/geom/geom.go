// Package geom provides the 2-D primitives used by the maze simulation:
// points, line segments, intersection tests and distance queries. All
// coordinates are double precision and all angles are radians.
package geom

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) DistanceTo(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Hypot(dx, dy)
}

// AngleTo returns the angle of the vector from p to q, normalized to [0, 2π).
func (p Point) AngleTo(q Point) float64 {
	angle := math.Atan2(q.Y-p.Y, q.X-p.X)
	return NormalizeAngle(angle)
}

func (p Point) Translate(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

func (s Segment) Length() float64 {
	return s.A.DistanceTo(s.B)
}

func (s Segment) Midpoint() Point {
	return Point{X: (s.A.X + s.B.X) / 2, Y: (s.A.Y + s.B.Y) / 2}
}

// Intersection computes the exact intersection point of two segments. The
// second return value is false when the segments do not cross, including the
// collinear-overlap case which has no single crossing point.
func (s Segment) Intersection(o Segment) (Point, bool) {
	rX := s.B.X - s.A.X
	rY := s.B.Y - s.A.Y
	qX := o.B.X - o.A.X
	qY := o.B.Y - o.A.Y

	denom := rX*qY - rY*qX
	if denom == 0 {
		return Point{}, false
	}

	dX := o.A.X - s.A.X
	dY := o.A.Y - s.A.Y
	t := (dX*qY - dY*qX) / denom
	u := (dX*rY - dY*rX) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return Point{X: s.A.X + t*rX, Y: s.A.Y + t*rY}, true
}

// Intersects reports whether two segments cross without computing the point.
func (s Segment) Intersects(o Segment) bool {
	_, ok := s.Intersection(o)
	return ok
}

// DistanceToPoint returns the shortest distance from p to the segment.
func (s Segment) DistanceToPoint(p Point) float64 {
	rX := s.B.X - s.A.X
	rY := s.B.Y - s.A.Y
	lenSq := rX*rX + rY*rY
	if lenSq == 0 {
		return s.A.DistanceTo(p)
	}
	t := ((p.X-s.A.X)*rX + (p.Y-s.A.Y)*rY) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := Point{X: s.A.X + t*rX, Y: s.A.Y + t*rY}
	return closest.DistanceTo(p)
}

// NormalizeAngle maps any angle onto [0, 2π).
func NormalizeAngle(angle float64) float64 {
	twoPi := 2 * math.Pi
	angle = math.Mod(angle, twoPi)
	if angle < 0 {
		angle += twoPi
	}
	return angle
}

// Ray builds a segment of the given length starting at origin in the given
// direction.
func Ray(origin Point, angle, length float64) Segment {
	return Segment{
		A: origin,
		B: Point{
			X: origin.X + math.Cos(angle)*length,
			Y: origin.Y + math.Sin(angle)*length,
		},
	}
}
