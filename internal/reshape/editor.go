// Package reshape applies a replacement chain to every feature anchored to
// a common segment. Edits are computed on deep copies; callers decide what
// to do with the returned features.
package reshape

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"segment-reshape/internal/feature"
	"segment-reshape/internal/topology"
	"segment-reshape/pkg/geometry"
)

// Options configures the editor.
type Options struct {
	// Epsilon is the coordinate-coincidence tolerance used when validating
	// edited parts.
	Epsilon float64
	// DefaultZ is assigned to inserted vertices on parts with a Z ordinate
	// when the replacement chain carries none.
	DefaultZ float64
	Logger   *zap.Logger
}

// DefaultOptions returns the default editor configuration.
func DefaultOptions() Options {
	return Options{Epsilon: topology.DefaultEpsilon}
}

func (o Options) normalized() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = topology.DefaultEpsilon
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Chain is the replacement vertex sequence for a reshape. Its first vertex
// corresponds to the common segment's start and its last to the segment's
// end; a single-vertex chain collapses the whole run onto that point. The
// layout tells which ordinates the chain itself carries; inserted vertices
// are re-expressed in each edited part's layout.
type Chain struct {
	Layout geom.Layout
	Coords []geom.Coord
}

// ChainFromLineString builds a replacement chain from a linestring.
func ChainFromLineString(ls *geom.LineString) Chain {
	return Chain{Layout: ls.Layout(), Coords: ls.Coords()}
}

// Len returns the number of chain vertices.
func (c Chain) Len() int {
	return len(c.Coords)
}

// DisjointEditError reports a reshape that would leave one feature part
// degenerate. The edit is rejected for that feature only; edits on other
// features still apply.
type DisjointEditError struct {
	FeatureID string
	Part      int
	Reason    string
}

func (e *DisjointEditError) Error() string {
	return fmt.Sprintf("reshape on feature %q part %d rejected: %s",
		e.FeatureID, e.Part, e.Reason)
}

// ApplyReshape replaces the common segment with the chain on every anchored
// feature. Full-span anchors have their whole vertex run spliced out in the
// part's own direction; endpoint anchors have their single shared vertex
// moved onto the corresponding chain boundary so connectivity survives.
//
// Each feature is edited independently on one geometry copy, so a feature
// anchored through several parts receives all its edits cumulatively. A
// feature whose edit fails is reported in the result's failures and leaves
// the remaining features unaffected.
func ApplyReshape(segment *topology.CommonSegment, spans []topology.FullSpanAnchor, endpoints []topology.EndpointAnchor, chain Chain, features []feature.Feature, opts Options) (*EditResult, error) {
	opts = opts.normalized()
	log := opts.Logger.Sugar()

	if segment == nil || segment.Len() == 0 {
		return nil, errors.New("no common segment to reshape")
	}
	if chain.Len() < 1 {
		return nil, errors.New("replacement chain is empty")
	}

	known := make(map[string]bool, len(features))
	for _, f := range features {
		known[f.ID] = true
	}
	spansByID := map[string][]topology.FullSpanAnchor{}
	for _, a := range spans {
		if !known[a.FeatureID] {
			return nil, errors.Errorf("anchor references unknown feature %q", a.FeatureID)
		}
		spansByID[a.FeatureID] = append(spansByID[a.FeatureID], a)
	}
	endsByID := map[string][]topology.EndpointAnchor{}
	for _, a := range endpoints {
		if !known[a.FeatureID] {
			return nil, errors.Errorf("anchor references unknown feature %q", a.FeatureID)
		}
		endsByID[a.FeatureID] = append(endsByID[a.FeatureID], a)
	}

	result := &EditResult{}
	for _, f := range features {
		ss := spansByID[f.ID]
		es := endsByID[f.ID]
		if len(ss) == 0 && len(es) == 0 {
			continue
		}
		edit, err := applyFeature(f, segment, ss, es, chain, opts)
		if err != nil {
			log.Warnw("reshape rejected for feature", "feature", f.ID, "error", err)
			result.Failures = append(result.Failures, FailedEdit{FeatureID: f.ID, Err: err})
			continue
		}
		log.Debugw("feature reshaped", "feature", f.ID,
			"kind", edit.Kind, "mismatch", edit.CoordinateMismatch)
		result.Edits = append(result.Edits, edit)
	}
	return result, nil
}

// applyFeature applies all of one feature's anchors to a single copy of its
// geometry and rebuilds it in the original structure.
func applyFeature(f feature.Feature, seg *topology.CommonSegment, spans []topology.FullSpanAnchor, ends []topology.EndpointAnchor, chain Chain, opts Options) (FeatureEdit, error) {
	comps, err := topology.Components(f.Geometry)
	if err != nil {
		return FeatureEdit{}, err
	}

	// Work on logical vertex runs: ring closing duplicates come back at the
	// end, so a moved ring origin updates its duplicate for free.
	logical := make([][]geom.Coord, len(comps))
	for i, comp := range comps {
		coords := geometry.CloneCoords(comp.Coords)
		if comp.Kind == topology.KindRing {
			coords = coords[:len(coords)-1]
		}
		logical[i] = coords
	}

	mismatch := false
	touched := make(map[int]bool)
	for _, a := range spans {
		if a.Part < 0 || a.Part >= len(comps) {
			return FeatureEdit{}, errors.Errorf("anchor part %d out of range on feature %q", a.Part, f.ID)
		}
		out, warn, err := applySpan(f.ID, comps[a.Part], logical[a.Part], a, seg, chain, opts)
		if err != nil {
			return FeatureEdit{}, err
		}
		logical[a.Part] = out
		mismatch = mismatch || warn
		touched[a.Part] = true
	}
	for _, a := range ends {
		if a.Part < 0 || a.Part >= len(comps) {
			return FeatureEdit{}, errors.Errorf("anchor part %d out of range on feature %q", a.Part, f.ID)
		}
		warn, err := applyEndpoint(f.ID, logical[a.Part], a, seg, chain)
		if err != nil {
			return FeatureEdit{}, err
		}
		mismatch = mismatch || warn
		touched[a.Part] = true
	}

	parts := make([][]geom.Coord, len(comps))
	for i, comp := range comps {
		coords := logical[i]
		if touched[i] {
			if err := validatePart(f.ID, i, comp.Kind, coords, opts.Epsilon); err != nil {
				return FeatureEdit{}, err
			}
		}
		if comp.Kind == topology.KindRing {
			closing := make(geom.Coord, len(coords[0]))
			copy(closing, coords[0])
			coords = append(coords, closing)
		}
		parts[i] = coords
	}

	g, err := topology.Rebuild(f.Geometry, parts)
	if err != nil {
		return FeatureEdit{}, err
	}

	kind := AnchorMixed
	switch {
	case len(ends) == 0:
		kind = AnchorFullSpan
	case len(spans) == 0:
		kind = AnchorEndpoint
	}
	return FeatureEdit{
		Feature:            feature.Feature{ID: f.ID, Geometry: g, Attributes: f.Attributes},
		Kind:               kind,
		CoordinateMismatch: mismatch,
	}, nil
}

// applySpan splices the replacement chain over the anchored vertex run of
// one part, honoring the part's traversal direction and ring topology.
func applySpan(featureID string, comp topology.Component, coords []geom.Coord, a topology.FullSpanAnchor, seg *topology.CommonSegment, chain Chain, opts Options) ([]geom.Coord, bool, error) {
	runLen := seg.Len()
	n := len(coords)
	ring := comp.Kind == topology.KindRing

	// Index interval in the part's own order, and the chain oriented to
	// match it.
	aStart, aEnd := a.Start, a.End
	oriented := chain.Coords
	if a.Dir < 0 {
		aStart, aEnd = a.End, a.Start
		oriented = geometry.ReverseCoords(chain.Coords)
	}
	converted := make([]geom.Coord, len(oriented))
	for i, c := range oriented {
		converted[i] = convertCoord(c, chain.Layout, comp.Layout, opts.DefaultZ)
	}

	warn := spanMismatch(coords, ring, aStart, a.Dir, runLen, seg)

	switch {
	case ring && runLen == n:
		// Whole ring replaced. A chain closed onto itself sheds its
		// duplicated closing vertex; the ring re-bases at the chain start.
		out := converted
		if len(out) >= 4 && geometry.CoordEqual(out[0], out[len(out)-1], opts.Epsilon) {
			out = out[:len(out)-1]
		}
		if len(out) < 3 {
			return nil, false, &DisjointEditError{
				FeatureID: featureID, Part: a.Part,
				Reason: "replacement leaves ring with fewer than 3 vertices",
			}
		}
		return out, warn, nil

	case ring && aStart > aEnd:
		// The run wraps the ring seam. The untouched arc trails the
		// replacement, re-basing the ring at the chain start.
		out := make([]geom.Coord, 0, len(converted)+(aStart-aEnd-1))
		out = append(out, converted...)
		out = append(out, coords[aEnd+1:aStart]...)
		return out, warn, nil

	default:
		if aStart < 0 || aEnd >= n || aStart > aEnd {
			return nil, false, errors.Errorf("anchor [%d..%d] out of range on feature %q part %d", a.Start, a.End, featureID, a.Part)
		}
		out := make([]geom.Coord, 0, n-runLen+len(converted))
		out = append(out, coords[:aStart]...)
		out = append(out, converted...)
		out = append(out, coords[aEnd+1:]...)
		return out, warn, nil
	}
}

// spanMismatch reports whether any vertex being replaced deviates from the
// segment coordinate it anchors, comparing exact planar values. A deviation
// within matching tolerance is legal; it is surfaced as a warning.
func spanMismatch(coords []geom.Coord, ring bool, aStart, dir, runLen int, seg *topology.CommonSegment) bool {
	n := len(coords)
	for k := 0; k < runLen; k++ {
		idx := aStart + k
		if ring {
			idx %= n
		} else if idx >= n {
			return true
		}
		want := seg.Coords[k]
		if dir < 0 {
			want = seg.Coords[runLen-1-k]
		}
		c := coords[idx]
		if c.X() != want.X() || c.Y() != want.Y() {
			return true
		}
	}
	return false
}

// applyEndpoint moves an endpoint-anchored vertex onto the chain boundary
// replacing the segment boundary it held. Only X/Y move; the vertex keeps
// its own Z and M.
func applyEndpoint(featureID string, coords []geom.Coord, a topology.EndpointAnchor, seg *topology.CommonSegment, chain Chain) (bool, error) {
	if a.Vertex < 0 || a.Vertex >= len(coords) {
		return false, errors.Errorf("endpoint anchor vertex %d out of range on feature %q part %d", a.Vertex, featureID, a.Part)
	}

	oldBoundary := seg.End()
	target := chain.Coords[chain.Len()-1]
	if a.AtStart {
		oldBoundary = seg.Start()
		target = chain.Coords[0]
	}

	c := coords[a.Vertex]
	warn := c.X() != oldBoundary.X() || c.Y() != oldBoundary.Y()
	c[0] = target.X()
	c[1] = target.Y()
	return warn, nil
}

// validatePart rejects edits that leave a part degenerate.
func validatePart(featureID string, part int, kind topology.ComponentKind, coords []geom.Coord, eps float64) error {
	switch kind {
	case topology.KindChain:
		if len(coords) < 2 {
			return &DisjointEditError{
				FeatureID: featureID, Part: part,
				Reason: "edit leaves open part with fewer than 2 vertices",
			}
		}
		if geometry.HasDuplicateConsecutive(coords, eps) {
			return &DisjointEditError{
				FeatureID: featureID, Part: part,
				Reason: "edit produces coincident consecutive vertices",
			}
		}
	case topology.KindRing:
		if len(coords) < 3 {
			return &DisjointEditError{
				FeatureID: featureID, Part: part,
				Reason: "edit leaves ring with fewer than 3 vertices",
			}
		}
		if geometry.HasDuplicateConsecutive(coords, eps) ||
			geometry.CoordEqual(coords[0], coords[len(coords)-1], eps) {
			return &DisjointEditError{
				FeatureID: featureID, Part: part,
				Reason: "edit produces coincident consecutive vertices",
			}
		}
	}
	return nil
}

// convertCoord re-expresses a chain coordinate in the target part layout.
// A missing Z takes the default; a missing M takes zero.
func convertCoord(c geom.Coord, from, to geom.Layout, defaultZ float64) geom.Coord {
	out := make(geom.Coord, to.Stride())
	out[0] = c.X()
	out[1] = c.Y()
	if zi := to.ZIndex(); zi >= 0 {
		z := defaultZ
		if fzi := from.ZIndex(); fzi >= 0 && fzi < len(c) {
			z = c[fzi]
		}
		out[zi] = z
	}
	return out
}
