package topology

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

func mustWKT(t *testing.T, s string) geom.T {
	t.Helper()
	g, err := wkt.Unmarshal(s)
	require.NoError(t, err)
	return g
}

func TestComponentsPolygonRings(t *testing.T) {
	g := mustWKT(t, "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0), (2 2, 4 2, 3 4, 2 2))")
	comps, err := Components(g)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	require.Equal(t, KindRing, comps[0].Kind)
	require.Equal(t, KindRing, comps[1].Kind)
	require.Len(t, comps[0].Coords, 5)
	require.Len(t, comps[1].Coords, 4)
}

func TestComponentsClosedLineStringIsRing(t *testing.T) {
	g := mustWKT(t, "LINESTRING(0 0, 5 0, 5 5, 0 0)")
	comps, err := Components(g)
	require.NoError(t, err)
	require.Len(t, comps, 1)
	require.Equal(t, KindRing, comps[0].Kind)
}

func TestComponentsOpenLineString(t *testing.T) {
	g := mustWKT(t, "LINESTRING(0 0, 5 0, 5 5)")
	comps, err := Components(g)
	require.NoError(t, err)
	require.Equal(t, KindChain, comps[0].Kind)
}

func TestComponentsMultiTypes(t *testing.T) {
	g := mustWKT(t, "MULTILINESTRING((0 0, 1 0), (2 0, 3 0, 4 0))")
	comps, err := Components(g)
	require.NoError(t, err)
	require.Len(t, comps, 2)

	g = mustWKT(t, "MULTIPOINT(1 1, 2 2)")
	comps, err = Components(g)
	require.NoError(t, err)
	require.Len(t, comps, 2)
	require.Equal(t, KindPoint, comps[0].Kind)

	g = mustWKT(t, "MULTIPOLYGON(((0 0, 4 0, 4 4, 0 0)), ((10 10, 14 10, 14 14, 10 10)))")
	comps, err = Components(g)
	require.NoError(t, err)
	require.Len(t, comps, 2)
}

func TestComponentsUnsupported(t *testing.T) {
	_, err := Components(geom.NewGeometryCollection())
	require.Error(t, err)
}

func TestRebuildRoundTrip(t *testing.T) {
	for _, s := range []string{
		"POINT(1 2)",
		"MULTIPOINT(1 1, 2 2)",
		"LINESTRING(0 0, 5 0, 5 5)",
		"MULTILINESTRING((0 0, 1 0), (2 0, 3 0, 4 0))",
		"POLYGON((0 0, 10 0, 10 10, 0 10, 0 0), (2 2, 4 2, 3 4, 2 2))",
		"MULTIPOLYGON(((0 0, 4 0, 4 4, 0 0)), ((10 10, 14 10, 14 14, 10 10)))",
	} {
		g := mustWKT(t, s)
		comps, err := Components(g)
		require.NoError(t, err)

		parts := make([][]geom.Coord, len(comps))
		for i, c := range comps {
			parts[i] = c.Coords
		}
		rebuilt, err := Rebuild(g, parts)
		require.NoError(t, err, s)
		require.Equal(t, g.FlatCoords(), rebuilt.FlatCoords(), s)
	}
}

func TestRebuildPartCountMismatch(t *testing.T) {
	g := mustWKT(t, "LINESTRING(0 0, 1 1)")
	_, err := Rebuild(g, nil)
	require.Error(t, err)
}
