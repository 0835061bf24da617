package topology

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"segment-reshape/internal/feature"
)

func findAt(t *testing.T, x, y float64, features ...feature.Feature) (*CommonSegment, []FullSpanAnchor, []EndpointAnchor) {
	t.Helper()
	seg, spans, ends, err := FindCommonSegment(geom.Coord{x, y}, features, DefaultOptions())
	require.NoError(t, err)
	return seg, spans, ends
}

func spanFor(t *testing.T, spans []FullSpanAnchor, id string) FullSpanAnchor {
	t.Helper()
	for _, a := range spans {
		if a.FeatureID == id {
			return a
		}
	}
	t.Fatalf("no full-span anchor for %q", id)
	return FullSpanAnchor{}
}

func TestSharedRunBetweenTwoLines(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0, 2 0, 3 0, 4 0)")
	f2 := lineFeature(t, "f2", "LINESTRING(1 0, 2 0, 3 0, 5 5)")

	seg, spans, ends := findAt(t, 2, 0, f1, f2)
	require.NotNil(t, seg)
	require.Equal(t, []geom.Coord{{1, 0}, {2, 0}, {3, 0}}, seg.Coords)
	require.False(t, seg.Closed)
	require.InDelta(t, 2.0, seg.Length(), 1e-12)
	require.Empty(t, ends)
	require.Len(t, spans, 2)

	require.Equal(t, FullSpanAnchor{FeatureID: "f1", Part: 0, Start: 1, End: 3, Dir: 1}, spanFor(t, spans, "f1"))
	require.Equal(t, FullSpanAnchor{FeatureID: "f2", Part: 0, Start: 0, End: 2, Dir: 1}, spanFor(t, spans, "f2"))
}

func TestReversedFollower(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0, 2 0, 3 0, 4 0)")
	f2 := lineFeature(t, "f2", "LINESTRING(9 9, 3 0, 2 0, 1 0)")

	seg, spans, _ := findAt(t, 2, 0, f1, f2)
	require.NotNil(t, seg)
	require.Equal(t, []geom.Coord{{1, 0}, {2, 0}, {3, 0}}, seg.Coords)

	a := spanFor(t, spans, "f2")
	require.Equal(t, -1, a.Dir)
	require.Equal(t, 3, a.Start) // vertex holding the segment start
	require.Equal(t, 1, a.End)
}

func TestDivergingFollowerCapsRun(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0, 2 0, 3 0)")
	f2 := lineFeature(t, "f2", "LINESTRING(1 0, 2 0, 3 0)")
	f3 := lineFeature(t, "f3", "LINESTRING(1 0, 2 0, 9 9)")

	seg, spans, _ := findAt(t, 1, 0, f1, f2, f3)
	require.NotNil(t, seg)
	// f3 diverges after (2 0), capping the run for everyone
	require.Equal(t, []geom.Coord{{1, 0}, {2, 0}}, seg.Coords)
	require.Len(t, spans, 3)
	for _, a := range spans {
		require.Equal(t, 0, a.Part)
		require.Equal(t, 1, a.Dir)
	}
	require.Equal(t, 1, spanFor(t, spans, "f1").Start)
	require.Equal(t, 2, spanFor(t, spans, "f1").End)
	require.Equal(t, 1, spanFor(t, spans, "f3").End)
}

func TestToucherPinsRunStart(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0, 2 0, 3 0, 4 0)")
	f2 := lineFeature(t, "f2", "LINESTRING(1 0, 2 0, 3 0, 5 5)")
	f3 := lineFeature(t, "f3", "LINESTRING(2 0, 2 5)")

	seg, spans, ends := findAt(t, 2, 0, f1, f2, f3)
	require.NotNil(t, seg)
	// f3 touches the seed vertex without following, so the run cannot
	// extend backward past it
	require.Equal(t, []geom.Coord{{2, 0}, {3, 0}}, seg.Coords)
	require.Len(t, spans, 2)
	require.Equal(t, []EndpointAnchor{{FeatureID: "f3", Part: 0, Vertex: 0, AtStart: true}}, ends)
}

func TestPointFeatureBreaksRun(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0, 2 0, 3 0, 4 0)")
	f2 := lineFeature(t, "f2", "LINESTRING(0 0, 1 0, 2 0, 3 0, 4 0, 9 9)")
	pt := feature.Feature{ID: "node", Geometry: mustWKT(t, "POINT(3 0)")}

	seg, spans, ends := findAt(t, 2, 0, f1, f2, pt)
	require.NotNil(t, seg)
	// The walk stops one step past the point vertex, inclusively
	require.Equal(t, []geom.Coord{{0, 0}, {1, 0}, {2, 0}, {3, 0}}, seg.Coords)
	require.Len(t, spans, 2)
	require.Equal(t, []EndpointAnchor{{FeatureID: "node", Part: 0, Vertex: 0, AtStart: false}}, ends)
}

func TestBreakerAtRunStart(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0, 2 0, 3 0, 4 0)")
	f2 := lineFeature(t, "f2", "LINESTRING(0 0, 1 0, 2 0, 3 0, 4 0, 9 9)")
	f3 := lineFeature(t, "f3", "LINESTRING(1 0, 1 5)")

	seg, _, ends := findAt(t, 2, 0, f1, f2, f3)
	require.NotNil(t, seg)
	require.Equal(t, []geom.Coord{{1, 0}, {2, 0}, {3, 0}, {4, 0}}, seg.Coords)
	require.Equal(t, []EndpointAnchor{{FeatureID: "f3", Part: 0, Vertex: 0, AtStart: true}}, ends)
}

func TestRingWraparound(t *testing.T) {
	ring := lineFeature(t, "ring", "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))")
	line := lineFeature(t, "line", "LINESTRING(0 10, 0 0, 10 0)")

	seg, spans, _ := findAt(t, 0, 0, ring, line)
	require.NotNil(t, seg)
	require.Equal(t, []geom.Coord{{0, 10}, {0, 0}, {10, 0}}, seg.Coords)
	require.False(t, seg.Closed)

	a := spanFor(t, spans, "ring")
	// The run crosses the ring seam: start index above end index
	require.Equal(t, 3, a.Start)
	require.Equal(t, 1, a.End)
	require.Equal(t, 1, a.Dir)

	b := spanFor(t, spans, "line")
	require.Equal(t, 0, b.Start)
	require.Equal(t, 2, b.End)
}

func TestFullRingShared(t *testing.T) {
	p1 := lineFeature(t, "p1", "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))")
	p2 := lineFeature(t, "p2", "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))")

	seg, spans, _ := findAt(t, 0, 0, p1, p2)
	require.NotNil(t, seg)
	require.True(t, seg.Closed)
	require.Equal(t, 4, seg.Len())
	// Length includes the closing leg of the full ring
	require.InDelta(t, 40.0, seg.Length(), 1e-12)
	require.Equal(t, []geom.Coord{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, seg.Coords)

	for _, a := range spans {
		require.Equal(t, 0, a.Start)
		require.Equal(t, 3, a.End)
	}

	// The materialized linestring closes the ring again
	ls := seg.LineString()
	require.Equal(t, 5, ls.NumCoords())
	require.Equal(t, ls.Coord(0), ls.Coord(4))
}

func TestSingleVertexRunWithToucher(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 1)")
	f2 := lineFeature(t, "f2", "LINESTRING(1 1, 2 2)")

	seg, spans, ends := findAt(t, 1, 1, f1, f2)
	require.NotNil(t, seg)
	require.Equal(t, []geom.Coord{{1, 1}}, seg.Coords)
	require.Equal(t, []FullSpanAnchor{{FeatureID: "f1", Part: 0, Start: 1, End: 1, Dir: 1}}, spans)
	require.Equal(t, []EndpointAnchor{{FeatureID: "f2", Part: 0, Vertex: 0, AtStart: true}}, ends)
}

func TestNoVertexWithinTolerance(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0)")
	f2 := lineFeature(t, "f2", "LINESTRING(0 0, 1 0)")

	seg, spans, ends := findAt(t, 50, 50, f1, f2)
	require.Nil(t, seg)
	require.Nil(t, spans)
	require.Nil(t, ends)
}

func TestSingleFeatureIsNotShared(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0, 2 0)")

	seg, _, _ := findAt(t, 1, 0, f1)
	require.Nil(t, seg)
}

func TestSeedTieBreakPrefersEarlierCandidate(t *testing.T) {
	f1 := lineFeature(t, "f1", "LINESTRING(0 0, 1 0, 2 0, 3 0, 4 0)")
	f2 := lineFeature(t, "f2", "LINESTRING(1 0, 2 0, 3 0, 5 5)")

	// Both have a vertex exactly on the trigger; the earlier candidate
	// seeds the walk
	seg, spans, _ := findAt(t, 2, 0, f2, f1)
	require.NotNil(t, seg)
	require.Equal(t, FullSpanAnchor{FeatureID: "f2", Part: 0, Start: 0, End: 2, Dir: 1}, spans[0])
}

func TestMatchingIgnoresZ(t *testing.T) {
	f1 := feature.Feature{ID: "f1", Geometry: geom.NewLineString(geom.XYZ).MustSetCoords(
		[]geom.Coord{{0, 0, 7}, {1, 0, 7}, {2, 0, 7}})}
	f2 := lineFeature(t, "f2", "LINESTRING(0 0, 1 0, 2 0)")

	seg, spans, _ := findAt(t, 1, 0, f1, f2)
	require.NotNil(t, seg)
	require.Len(t, spans, 2)
	// Segment coordinates are planar
	require.Equal(t, []geom.Coord{{0, 0}, {1, 0}, {2, 0}}, seg.Coords)
}

func TestInvalidCandidatePropagates(t *testing.T) {
	bad := feature.Feature{
		ID:       "bad",
		Geometry: geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{{1, 1}}),
	}
	_, _, _, err := FindCommonSegment(geom.Coord{1, 1}, []feature.Feature{bad}, DefaultOptions())
	var ige *InvalidGeometryError
	require.ErrorAs(t, err, &ige)
}
