// Package feature defines the feature snapshot consumed by the topology
// matcher and the reshape editor. Features are owned by an external layer;
// the engine reads copies and returns edited copies, never mutating the
// originals.
package feature

import (
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
)

// Feature is a snapshot of a single vector feature: a stable identifier, a
// geometry and its attribute data. Attributes are carried through edits
// untouched.
type Feature struct {
	ID         string
	Geometry   geom.T
	Attributes map[string]interface{}
}

// Clone returns a deep copy of the feature. The geometry is rebuilt from
// copied coordinates so edits to the clone cannot leak into the original.
func (f Feature) Clone() (Feature, error) {
	g, err := CloneGeometry(f.Geometry)
	if err != nil {
		return Feature{}, err
	}

	var attrs map[string]interface{}
	if f.Attributes != nil {
		attrs = make(map[string]interface{}, len(f.Attributes))
		for k, v := range f.Attributes {
			attrs[k] = v
		}
	}

	return Feature{ID: f.ID, Geometry: g, Attributes: attrs}, nil
}

// CloneGeometry returns a deep copy of a geometry. Coords on go-geom types
// inflate fresh slices from the flat coordinate array, so rebuilding from
// them yields an independent value.
func CloneGeometry(g geom.T) (geom.T, error) {
	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPoint(t.Layout()).MustSetCoords(t.Coords()), nil
	case *geom.MultiPoint:
		return geom.NewMultiPoint(t.Layout()).MustSetCoords(t.Coords()), nil
	case *geom.LineString:
		return geom.NewLineString(t.Layout()).MustSetCoords(t.Coords()), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineString(t.Layout()).MustSetCoords(t.Coords()), nil
	case *geom.Polygon:
		return geom.NewPolygon(t.Layout()).MustSetCoords(t.Coords()), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygon(t.Layout()).MustSetCoords(t.Coords()), nil
	default:
		return nil, errors.Errorf("unsupported geometry type %T", g)
	}
}
