// Package geo holds the boundary polygon and the point-in-polygon test used to
// decide whether a position lies inside the facility's airspace.
//
// All coordinates are (longitude, latitude): X is longitude, Y is latitude.
// Feeds that deliver latitude first must go through FromLatLon.
package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var (
	ErrTooFewPoints = errors.New("boundary needs at least 4 points")
	ErrNotClosed    = errors.New("boundary ring is not closed")
	ErrSelfCrossing = errors.New("boundary ring intersects itself")
)

type Point struct {
	X float64 // longitude
	Y float64 // latitude
}

// FromLatLon builds a Point from a latitude-first coordinate pair.
func FromLatLon(lat, lon float64) Point {
	return Point{X: lon, Y: lat}
}

type Polygon struct {
	Points []Point
	ring   orb.Ring
}

// NewPolygon validates the ring and prepares it for containment tests.
func NewPolygon(points []Point) (Polygon, error) {
	if len(points) < 4 {
		return Polygon{}, ErrTooFewPoints
	}
	if points[0] != points[len(points)-1] {
		return Polygon{}, ErrNotClosed
	}
	if i, j, ok := firstCrossing(points); ok {
		return Polygon{}, fmt.Errorf("%w: edges %d and %d", ErrSelfCrossing, i, j)
	}

	return Polygon{Points: points, ring: toRing(points)}, nil
}

// PointInPolygon reports whether p lies inside poly using the even-odd rule.
// Points exactly on an edge are treated as inside.
func PointInPolygon(p Point, poly Polygon) bool {
	ring := poly.ring
	if ring == nil {
		ring = toRing(poly.Points)
	}
	if len(ring) < 4 {
		return false
	}
	return planar.RingContains(ring, orb.Point{p.X, p.Y})
}

func toRing(points []Point) orb.Ring {
	ring := make(orb.Ring, len(points))
	for i, p := range points {
		ring[i] = orb.Point{p.X, p.Y}
	}
	return ring
}

// firstCrossing returns the first pair of non-adjacent edges that intersect.
func firstCrossing(points []Point) (int, int, bool) {
	edges := len(points) - 1
	for i := 0; i < edges; i++ {
		for j := i + 1; j < edges; j++ {
			if j == i+1 || (i == 0 && j == edges-1) {
				continue
			}
			if segmentsIntersect(points[i], points[i+1], points[j], points[j+1]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func segmentsIntersect(a, b, c, d Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(c, d, a)) ||
		(d2 == 0 && onSegment(c, d, b)) ||
		(d3 == 0 && onSegment(a, b, c)) ||
		(d4 == 0 && onSegment(a, b, d))
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func onSegment(a, b, p Point) bool {
	return p.X >= min(a.X, b.X) && p.X <= max(a.X, b.X) &&
		p.Y >= min(a.Y, b.Y) && p.Y <= max(a.Y, b.Y)
}
