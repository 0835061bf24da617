package topology

import (
	"github.com/twpayne/go-geom"

	"segment-reshape/internal/feature"
	"segment-reshape/pkg/geometry"
)

// PartIndex is the queryable vertex sequence of one feature part. Closed
// parts are held as a cyclic sequence of logical length (count − 1): the
// duplicated closing vertex is dropped for comparison and only materialized
// again on output.
type PartIndex struct {
	FeatureID string
	Part      int
	Kind      ComponentKind
	Layout    geom.Layout

	coords []geom.Coord // logical vertices; closing duplicate excluded
}

// BuildIndex builds the per-part vertex indexes for a feature.
func BuildIndex(f feature.Feature) ([]*PartIndex, error) {
	comps, err := Components(f.Geometry)
	if err != nil {
		return nil, &InvalidGeometryError{FeatureID: f.ID, Reason: err.Error()}
	}

	out := make([]*PartIndex, 0, len(comps))
	for i, comp := range comps {
		p := &PartIndex{
			FeatureID: f.ID,
			Part:      i,
			Kind:      comp.Kind,
			Layout:    comp.Layout,
			coords:    comp.Coords,
		}
		switch comp.Kind {
		case KindChain:
			if len(comp.Coords) < 2 {
				return nil, &InvalidGeometryError{
					FeatureID: f.ID, Part: i,
					Reason: "open part has fewer than 2 vertices",
				}
			}
		case KindRing:
			if len(comp.Coords) < 4 {
				return nil, &InvalidGeometryError{
					FeatureID: f.ID, Part: i,
					Reason: "closed part has fewer than 4 vertices",
				}
			}
			p.coords = comp.Coords[:len(comp.Coords)-1]
		}
		out = append(out, p)
	}
	return out, nil
}

// Len returns the logical vertex count of the part.
func (p *PartIndex) Len() int {
	return len(p.coords)
}

// Closed reports whether the part is a ring.
func (p *PartIndex) Closed() bool {
	return p.Kind == KindRing
}

// IsPoint reports whether the part is a single point.
func (p *PartIndex) IsPoint() bool {
	return p.Kind == KindPoint
}

// Wrap maps an index into the logical range. For closed parts index
// arithmetic is modulo the logical length; for open parts the index is
// returned unchanged.
func (p *PartIndex) Wrap(i int) int {
	if !p.Closed() {
		return i
	}
	n := len(p.coords)
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// InRange reports whether index i addresses a vertex. Closed parts are
// cyclic, so every index is addressable.
func (p *PartIndex) InRange(i int) bool {
	if p.Closed() {
		return true
	}
	return i >= 0 && i < len(p.coords)
}

// At returns the vertex at index i, cyclic for closed parts. The caller
// must check InRange for open parts.
func (p *PartIndex) At(i int) geom.Coord {
	return p.coords[p.Wrap(i)]
}

// Coords returns the logical vertex sequence of the part.
func (p *PartIndex) Coords() []geom.Coord {
	return p.coords
}

// NearestVertex returns the index of the vertex closest to pt, its
// distance, and whether any vertex lies within maxDist.
func (p *PartIndex) NearestVertex(pt geom.Coord, maxDist float64) (int, float64, bool) {
	best := -1
	bestDist := 0.0
	for i, c := range p.coords {
		d := geometry.Distance(pt, c)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 || bestDist > maxDist {
		return 0, 0, false
	}
	return best, bestDist, true
}

// FindCoincident returns the lowest index of a vertex coinciding with c
// within tol.
func (p *PartIndex) FindCoincident(c geom.Coord, tol float64) (int, bool) {
	for i, v := range p.coords {
		if geometry.CoordEqual(v, c, tol) {
			return i, true
		}
	}
	return 0, false
}
