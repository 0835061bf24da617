package topology

import (
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
)

// ComponentKind classifies a geometry component.
type ComponentKind int

const (
	// KindPoint is a single-vertex component from a point geometry.
	KindPoint ComponentKind = iota
	// KindChain is an open linestring component.
	KindChain
	// KindRing is a closed component: a polygon ring, or a linestring whose
	// first and last vertices coincide.
	KindRing
)

func (k ComponentKind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindChain:
		return "chain"
	case KindRing:
		return "ring"
	default:
		return "unknown"
	}
}

// Component is one contiguous vertex sequence of a feature geometry. Ring
// components carry the duplicated closing vertex, exactly as stored in the
// source geometry.
type Component struct {
	Kind   ComponentKind
	Layout geom.Layout
	Coords []geom.Coord
}

// Components decomposes a geometry into its ordered flat list of parts:
// points, open chains and rings. Polygon parts yield their exterior ring
// followed by interior rings; multi-geometries yield their members in
// order. Component indices are the part indices used throughout matching
// and editing.
func Components(g geom.T) ([]Component, error) {
	switch t := g.(type) {
	case *geom.Point:
		return []Component{{Kind: KindPoint, Layout: t.Layout(), Coords: []geom.Coord{t.Coords()}}}, nil

	case *geom.MultiPoint:
		out := make([]Component, 0, t.NumPoints())
		for _, c := range t.Coords() {
			out = append(out, Component{Kind: KindPoint, Layout: t.Layout(), Coords: []geom.Coord{c}})
		}
		return out, nil

	case *geom.LineString:
		return []Component{lineComponent(t.Layout(), t.Coords())}, nil

	case *geom.MultiLineString:
		out := make([]Component, 0, t.NumLineStrings())
		for _, coords := range t.Coords() {
			out = append(out, lineComponent(t.Layout(), coords))
		}
		return out, nil

	case *geom.Polygon:
		out := make([]Component, 0, t.NumLinearRings())
		for _, ring := range t.Coords() {
			out = append(out, Component{Kind: KindRing, Layout: t.Layout(), Coords: ring})
		}
		return out, nil

	case *geom.MultiPolygon:
		var out []Component
		for _, poly := range t.Coords() {
			for _, ring := range poly {
				out = append(out, Component{Kind: KindRing, Layout: t.Layout(), Coords: ring})
			}
		}
		return out, nil

	default:
		return nil, errors.Errorf("unsupported geometry type %T", g)
	}
}

// lineComponent classifies a linestring as ring or chain by structural
// closure of its endpoints.
func lineComponent(layout geom.Layout, coords []geom.Coord) Component {
	kind := KindChain
	if len(coords) >= 3 && coordsIdentical(coords[0], coords[len(coords)-1]) {
		kind = KindRing
	}
	return Component{Kind: kind, Layout: layout, Coords: coords}
}

// coordsIdentical tests exact planar equality, used only for structural ring
// closure where the closing vertex is a stored duplicate.
func coordsIdentical(a, b geom.Coord) bool {
	return a.X() == b.X() && a.Y() == b.Y()
}

// Rebuild reassembles a geometry of the same type and structure as g from
// replacement component coordinates, one entry per component in Components
// order. Ring entries must be closed (first == last vertex).
func Rebuild(g geom.T, parts [][]geom.Coord) (geom.T, error) {
	switch t := g.(type) {
	case *geom.Point:
		if err := checkPartCount(len(parts), 1); err != nil {
			return nil, err
		}
		return geom.NewPoint(t.Layout()).SetCoords(parts[0][0])

	case *geom.MultiPoint:
		if err := checkPartCount(len(parts), t.NumPoints()); err != nil {
			return nil, err
		}
		coords := make([]geom.Coord, len(parts))
		for i, p := range parts {
			coords[i] = p[0]
		}
		return geom.NewMultiPoint(t.Layout()).SetCoords(coords)

	case *geom.LineString:
		if err := checkPartCount(len(parts), 1); err != nil {
			return nil, err
		}
		return geom.NewLineString(t.Layout()).SetCoords(parts[0])

	case *geom.MultiLineString:
		if err := checkPartCount(len(parts), t.NumLineStrings()); err != nil {
			return nil, err
		}
		return geom.NewMultiLineString(t.Layout()).SetCoords(parts)

	case *geom.Polygon:
		if err := checkPartCount(len(parts), t.NumLinearRings()); err != nil {
			return nil, err
		}
		return geom.NewPolygon(t.Layout()).SetCoords(parts)

	case *geom.MultiPolygon:
		var polys [][][]geom.Coord
		next := 0
		for _, poly := range t.Coords() {
			if next+len(poly) > len(parts) {
				return nil, errors.New("component count mismatch on rebuild")
			}
			polys = append(polys, parts[next:next+len(poly)])
			next += len(poly)
		}
		if next != len(parts) {
			return nil, errors.New("component count mismatch on rebuild")
		}
		return geom.NewMultiPolygon(t.Layout()).SetCoords(polys)

	default:
		return nil, errors.Errorf("unsupported geometry type %T", g)
	}
}

func checkPartCount(got, want int) error {
	if got != want {
		return errors.Errorf("component count mismatch on rebuild: got %d, want %d", got, want)
	}
	return nil
}
