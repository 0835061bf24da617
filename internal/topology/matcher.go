package topology

import (
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"segment-reshape/internal/feature"
	"segment-reshape/pkg/geometry"
)

// Default tolerances. Epsilon is the coordinate-coincidence tolerance used
// for vertex matching; trigger tolerance is the wider search radius used
// only to locate the seed vertex near the trigger point.
const (
	DefaultEpsilon          = 1e-8
	DefaultTriggerTolerance = 1e-6
)

// Options configures the matcher.
type Options struct {
	Epsilon          float64
	TriggerTolerance float64
	Logger           *zap.Logger
}

// DefaultOptions returns the default matcher configuration.
func DefaultOptions() Options {
	return Options{
		Epsilon:          DefaultEpsilon,
		TriggerTolerance: DefaultTriggerTolerance,
	}
}

func (o Options) normalized() Options {
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.TriggerTolerance <= 0 {
		o.TriggerTolerance = DefaultTriggerTolerance
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// CommonSegment is the maximal vertex run shared by two or more features at
// the trigger location. Coordinates are planar (X/Y) and taken from the
// seed feature in seed traversal order. For a run covering an entire ring,
// Closed is set and the duplicated closing vertex is materialized only by
// LineString.
type CommonSegment struct {
	Coords []geom.Coord
	Closed bool
}

// Len returns the number of logical vertices in the segment.
func (s *CommonSegment) Len() int {
	return len(s.Coords)
}

// Start returns the first segment coordinate.
func (s *CommonSegment) Start() geom.Coord {
	return s.Coords[0]
}

// End returns the last segment coordinate.
func (s *CommonSegment) End() geom.Coord {
	return s.Coords[len(s.Coords)-1]
}

// Length returns the planar length of the segment, including the closing
// leg of a full-ring run.
func (s *CommonSegment) Length() float64 {
	total := geometry.ChainLength(s.Coords)
	if s.Closed && len(s.Coords) > 1 {
		total += geometry.Distance(s.End(), s.Start())
	}
	return total
}

// LineString materializes the segment as an XY linestring, re-closing it
// when the run covers a full ring.
func (s *CommonSegment) LineString() *geom.LineString {
	coords := geometry.CloneCoords(s.Coords)
	if s.Closed {
		coords = append(coords, geometry.CloneCoords(s.Coords[:1])...)
	}
	return geom.NewLineString(geom.XY).MustSetCoords(coords)
}

// FullSpanAnchor ties a feature part to the whole common segment: the run
// of part vertices from Start to End matches the segment vertex for vertex.
// Dir is +1 when the part's own traversal order follows segment order, -1
// when it runs opposite. For closed parts the index range may wrap.
type FullSpanAnchor struct {
	FeatureID string
	Part      int
	Start     int
	End       int
	Dir       int
}

// EndpointAnchor ties a feature part that touches the common segment at a
// single boundary coordinate: Vertex is the coincident vertex in the part,
// AtStart tells which segment end it holds on to.
type EndpointAnchor struct {
	FeatureID string
	Part      int
	Vertex    int
	AtStart   bool
}

// walker tracks one candidate part during the bidirectional walk.
type walker struct {
	part *PartIndex
	base int // index of the vertex coinciding with the seed vertex
	dir  int // own-index step per forward segment step; 0 until resolved

	fwdOK    bool // matched the seed's first forward neighbor
	bwdOK    bool // matched the seed's first backward neighbor
	follower bool
}

// matched returns the number of run vertices the walker has matched so far.
func (w *walker) matched(fwdSteps, bwdSteps int) int {
	return fwdSteps + bwdSteps + 1
}

// FindCommonSegment locates the maximal shared vertex run at the trigger
// point across the candidate features. The first return value is nil when
// no common segment exists there, which is a normal outcome: either no
// candidate vertex lies within the trigger tolerance, or fewer than two
// features touch the run.
//
// The seed is the part whose vertex lies closest to the trigger, preferring
// earlier candidates on ties. The run is then grown from the seed vertex in
// both directions simultaneously; every following part must keep matching
// for the run to extend, so each full-span anchor spans the entire result.
// Extension in a direction ends at the seed part's open end, at a full
// cycle of a closed ring, where a follower stops matching, or one vertex
// past the point where a non-following candidate touches the run.
func FindCommonSegment(trigger geom.Coord, candidates []feature.Feature, opts Options) (*CommonSegment, []FullSpanAnchor, []EndpointAnchor, error) {
	opts = opts.normalized()
	log := opts.Logger.Sugar()

	var parts []*PartIndex
	for _, f := range candidates {
		idx, err := BuildIndex(f)
		if err != nil {
			return nil, nil, nil, err
		}
		parts = append(parts, idx...)
	}

	// Seed selection: strictly-closer comparison keeps the earliest
	// candidate on equidistant ties.
	var seed *PartIndex
	seedIdx := -1
	seedDist := 0.0
	for _, p := range parts {
		if p.IsPoint() {
			continue
		}
		i, d, ok := p.NearestVertex(trigger, opts.TriggerTolerance)
		if !ok {
			continue
		}
		if seed == nil || d < seedDist {
			seed = p
			seedIdx = i
			seedDist = d
		}
	}
	if seed == nil {
		log.Debugw("no candidate vertex within trigger tolerance",
			"x", trigger.X(), "y", trigger.Y())
		return nil, nil, nil, nil
	}
	seedCoord := seed.At(seedIdx)
	log.Debugw("seed selected",
		"feature", seed.FeatureID, "part", seed.Part, "vertex", seedIdx)

	// Every other part with a vertex on the seed coordinate takes part in
	// the walk. Parts that follow along constrain the run; parts that only
	// touch hold the run start as endpoint anchors.
	var walkers []*walker
	for _, p := range parts {
		if p == seed {
			continue
		}
		if i, ok := p.FindCoincident(seedCoord, opts.Epsilon); ok {
			walkers = append(walkers, &walker{part: p, base: i})
		}
	}

	resolveDirections(seed, seedIdx, walkers, opts.Epsilon)

	var followers, touchers []*walker
	for _, w := range walkers {
		if w.follower {
			followers = append(followers, w)
		} else {
			touchers = append(touchers, w)
		}
	}

	st := &walkState{
		seed:      seed,
		seedIdx:   seedIdx,
		parts:     parts,
		followers: followers,
		eps:       opts.Epsilon,
	}

	// A follower that cannot take the first step in a direction pins the
	// run there; so does any feature touching only the seed vertex, which
	// must end up on the run boundary.
	canFwd := len(followers) > 0
	canBwd := len(followers) > 0 && len(touchers) == 0
	for _, f := range followers {
		canFwd = canFwd && f.fwdOK
		canBwd = canBwd && f.bwdOK
	}

	var fwdBreakers, bwdBreakers []breakerHit
	if canFwd {
		fwdBreakers = st.walk(+1)
	}
	if canBwd {
		bwdBreakers = st.walk(-1)
	}
	log.Debugw("walk finished", "forward", st.fwd, "backward", st.bwd,
		"followers", len(followers), "touchers", len(touchers))

	return st.assemble(touchers, fwdBreakers, bwdBreakers, log)
}

// resolveDirections fixes each walker's traversal direction against the
// seed's immediate neighbors. A walker follows when one of its neighbors
// coincides with the seed's forward or backward neighbor; its direction in
// the opposite sense is then the mirror of the resolved one.
func resolveDirections(seed *PartIndex, seedIdx int, walkers []*walker, eps float64) {
	var fwdCoord, bwdCoord geom.Coord
	if seed.InRange(seedIdx + 1) {
		fwdCoord = seed.At(seedIdx + 1)
	}
	if seed.InRange(seedIdx - 1) {
		bwdCoord = seed.At(seedIdx - 1)
	}

	for _, w := range walkers {
		if w.part.IsPoint() {
			continue
		}
		neighbor := func(step int) (geom.Coord, bool) {
			if !w.part.InRange(w.base + step) {
				return nil, false
			}
			return w.part.At(w.base + step), true
		}

		if fwdCoord != nil {
			if c, ok := neighbor(+1); ok && geometry.CoordEqual(c, fwdCoord, eps) {
				w.dir = +1
				w.fwdOK = true
			} else if c, ok := neighbor(-1); ok && geometry.CoordEqual(c, fwdCoord, eps) {
				w.dir = -1
				w.fwdOK = true
			}
		}
		if bwdCoord != nil {
			if w.dir != 0 {
				if c, ok := neighbor(-w.dir); ok && geometry.CoordEqual(c, bwdCoord, eps) {
					w.bwdOK = true
				}
			} else if c, ok := neighbor(-1); ok && geometry.CoordEqual(c, bwdCoord, eps) {
				w.dir = +1
				w.bwdOK = true
			} else if c, ok := neighbor(+1); ok && geometry.CoordEqual(c, bwdCoord, eps) {
				w.dir = -1
				w.bwdOK = true
			}
		}
		w.follower = w.fwdOK || w.bwdOK
	}
}

// breakerHit records a non-following candidate vertex that terminated the
// walk at a run boundary.
type breakerHit struct {
	part   *PartIndex
	vertex int
}

// walkState is the iterative state of the bidirectional run extension.
type walkState struct {
	seed      *PartIndex
	seedIdx   int
	parts     []*PartIndex
	followers []*walker
	eps       float64

	fwd int // matched steps forward of the seed vertex
	bwd int // matched steps backward of the seed vertex
}

// runLen returns the current number of run vertices.
func (st *walkState) runLen() int {
	return st.fwd + st.bwd + 1
}

// walk extends the run in one direction until a stop condition is met. It
// returns breaker anchors discovered at the terminal vertex.
func (st *walkState) walk(segDir int) []breakerHit {
	steps := 0
	for {
		k := steps + 1
		next := st.seedIdx + segDir*k
		if !st.seed.InRange(next) {
			break
		}
		// Never traverse a closed seed ring past a full cycle.
		if st.seed.Closed() && st.runLen() >= st.seed.Len() {
			break
		}
		c := st.seed.At(next)

		if !st.extendFollowers(segDir, k, c) {
			break
		}
		steps = k
		if segDir > 0 {
			st.fwd = steps
		} else {
			st.bwd = steps
		}

		// A non-following candidate vertex on the newly reached coordinate
		// breaks the run here; the vertex itself stays included.
		if hits := st.findBreakers(c); len(hits) > 0 {
			return hits
		}
	}
	return nil
}

// extendFollowers tests that every follower has a coordinate-equal vertex
// at the k-th step in segDir. A single failure pins the run: partial
// overlap never yields an anchor shorter than the segment.
func (st *walkState) extendFollowers(segDir, k int, c geom.Coord) bool {
	for _, f := range st.followers {
		idx := f.base + f.dir*segDir*k
		if !f.part.InRange(idx) {
			return false
		}
		if f.part.Closed() && f.matched(st.fwd, st.bwd) >= f.part.Len() {
			return false
		}
		if !geometry.CoordEqual(f.part.At(idx), c, st.eps) {
			return false
		}
	}
	return true
}

// findBreakers returns every non-following part holding a vertex on c.
func (st *walkState) findBreakers(c geom.Coord) []breakerHit {
	var hits []breakerHit
	for _, p := range st.parts {
		if p == st.seed || st.isFollowerPart(p) {
			continue
		}
		if i, ok := p.FindCoincident(c, st.eps); ok {
			hits = append(hits, breakerHit{part: p, vertex: i})
		}
	}
	return hits
}

func (st *walkState) isFollowerPart(p *PartIndex) bool {
	for _, f := range st.followers {
		if f.part == p {
			return true
		}
	}
	return false
}

// assemble builds the final segment and anchor lists, enforcing minimum
// participation of two distinct features.
func (st *walkState) assemble(touchers []*walker, fwdBreakers, bwdBreakers []breakerHit, log *zap.SugaredLogger) (*CommonSegment, []FullSpanAnchor, []EndpointAnchor, error) {
	seg := &CommonSegment{
		Coords: make([]geom.Coord, 0, st.runLen()),
		Closed: st.seed.Closed() && st.runLen() == st.seed.Len(),
	}
	for j := -st.bwd; j <= st.fwd; j++ {
		c := st.seed.At(st.seedIdx + j)
		seg.Coords = append(seg.Coords, geom.Coord{c.X(), c.Y()})
	}

	spans := []FullSpanAnchor{{
		FeatureID: st.seed.FeatureID,
		Part:      st.seed.Part,
		Start:     st.seed.Wrap(st.seedIdx - st.bwd),
		End:       st.seed.Wrap(st.seedIdx + st.fwd),
		Dir:       +1,
	}}
	for _, f := range st.followers {
		dir := f.dir
		if dir == 0 {
			dir = +1
		}
		spans = append(spans, FullSpanAnchor{
			FeatureID: f.part.FeatureID,
			Part:      f.part.Part,
			Start:     f.part.Wrap(f.base + dir*-st.bwd),
			End:       f.part.Wrap(f.base + dir*st.fwd),
			Dir:       dir,
		})
	}

	var endpoints []EndpointAnchor
	for _, w := range touchers {
		endpoints = append(endpoints, EndpointAnchor{
			FeatureID: w.part.FeatureID,
			Part:      w.part.Part,
			Vertex:    w.base,
			AtStart:   true,
		})
	}
	for _, hit := range bwdBreakers {
		endpoints = append(endpoints, EndpointAnchor{
			FeatureID: hit.part.FeatureID,
			Part:      hit.part.Part,
			Vertex:    hit.vertex,
			AtStart:   true,
		})
	}
	for _, hit := range fwdBreakers {
		endpoints = append(endpoints, EndpointAnchor{
			FeatureID: hit.part.FeatureID,
			Part:      hit.part.Part,
			Vertex:    hit.vertex,
			AtStart:   false,
		})
	}

	ids := map[string]struct{}{}
	for _, a := range spans {
		ids[a.FeatureID] = struct{}{}
	}
	for _, a := range endpoints {
		ids[a.FeatureID] = struct{}{}
	}
	if len(ids) < 2 {
		log.Debugw("run not shared by a second feature", "vertices", seg.Len())
		return nil, nil, nil, nil
	}

	return seg, spans, endpoints, nil
}
