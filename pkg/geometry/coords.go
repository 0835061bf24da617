// Package geometry provides coordinate helpers shared by the topology
// matcher and the reshape editor.
package geometry

import (
	"math"

	"github.com/twpayne/go-geom"
	"gonum.org/v1/gonum/floats/scalar"
)

// CoordEqual reports whether two coordinates coincide in X/Y within tol.
// Z and M ordinates are ignored: coincidence is a planar property.
func CoordEqual(a, b geom.Coord, tol float64) bool {
	return scalar.EqualWithinAbs(a.X(), b.X(), tol) &&
		scalar.EqualWithinAbs(a.Y(), b.Y(), tol)
}

// Distance returns the planar Euclidean distance between two coordinates.
func Distance(a, b geom.Coord) float64 {
	dx := a.X() - b.X()
	dy := a.Y() - b.Y()
	return math.Sqrt(dx*dx + dy*dy)
}

// PointToSegmentDistance returns the minimum planar distance from p to the
// line segment a-b.
func PointToSegmentDistance(p, a, b geom.Coord) float64 {
	dx := b.X() - a.X()
	dy := b.Y() - a.Y()

	if dx == 0 && dy == 0 {
		// Segment is a point
		return Distance(p, a)
	}

	// Parameter t of closest point on infinite line
	t := ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / (dx*dx + dy*dy)

	// Clamp to segment
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	closest := geom.Coord{a.X() + t*dx, a.Y() + t*dy}
	return Distance(p, closest)
}

// ChainLength returns the total planar length of a vertex chain.
func ChainLength(coords []geom.Coord) float64 {
	if len(coords) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(coords); i++ {
		total += Distance(coords[i-1], coords[i])
	}
	return total
}

// CloneCoords returns a deep copy of a coordinate slice.
func CloneCoords(coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		cc := make(geom.Coord, len(c))
		copy(cc, c)
		out[i] = cc
	}
	return out
}

// ReverseCoords returns a reversed deep copy of a coordinate slice.
func ReverseCoords(coords []geom.Coord) []geom.Coord {
	out := CloneCoords(coords)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// HasDuplicateConsecutive reports whether any two consecutive coordinates
// in the chain coincide within tol.
func HasDuplicateConsecutive(coords []geom.Coord, tol float64) bool {
	for i := 1; i < len(coords); i++ {
		if CoordEqual(coords[i-1], coords[i], tol) {
			return true
		}
	}
	return false
}

// Rect represents an axis-aligned rectangle with floating-point coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Union returns the smallest rectangle containing both rectangles.
func (r Rect) Union(other Rect) Rect {
	x := math.Min(r.X, other.X)
	y := math.Min(r.Y, other.Y)
	x2 := math.Max(r.X+r.Width, other.X+other.Width)
	y2 := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// BoundingBox computes the axis-aligned bounding box of a coordinate slice.
func BoundingBox(coords []geom.Coord) Rect {
	if len(coords) == 0 {
		return Rect{}
	}
	minX, minY := coords[0].X(), coords[0].Y()
	maxX, maxY := minX, minY
	for _, c := range coords[1:] {
		if c.X() < minX {
			minX = c.X()
		}
		if c.X() > maxX {
			maxX = c.X()
		}
		if c.Y() < minY {
			minY = c.Y()
		}
		if c.Y() > maxY {
			maxY = c.Y()
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
