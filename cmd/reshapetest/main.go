// Command reshapetest runs the common-segment matcher against a GeoJSON
// snapshot and optionally applies a reshape, writing results and a
// diagnostic overlay.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"

	"segment-reshape/internal/config"
	"segment-reshape/internal/feature"
	"segment-reshape/internal/logger"
	"segment-reshape/internal/render"
	"segment-reshape/internal/reshape"
	"segment-reshape/internal/topology"
	"segment-reshape/internal/version"
	"segment-reshape/pkg/geometry"
)

func main() {
	featuresPath := flag.String("features", "", "Path to GeoJSON FeatureCollection snapshot")
	x := flag.Float64("x", 0, "Trigger X coordinate")
	y := flag.Float64("y", 0, "Trigger Y coordinate")
	chainWKT := flag.String("chain", "", "Replacement chain as WKT LINESTRING or POINT (match only when empty)")
	configPath := flag.String("config", "", "Path to YAML config file")
	outPath := flag.String("out", "", "Path for updated GeoJSON output")
	renderPath := flag.String("render", "", "Path for PNG overlay output")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("reshapetest %s\n", version.String())
		os.Exit(0)
	}

	if *featuresPath == "" {
		fmt.Println("Usage: reshapetest -features <path.geojson> -x <x> -y <y> [-chain <wkt>] [-config <path>] [-out <path>] [-render <path>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.File)
	defer logger.Sync()

	features, err := loadFeatures(*featuresPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load features: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d features\n", len(features))

	// Match
	matchOpts := cfg.MatcherOptions()
	matchOpts.Logger = logger.Log
	trigger := geom.Coord{*x, *y}
	segment, spans, endpoints, err := topology.FindCommonSegment(trigger, features, matchOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Matching failed: %v\n", err)
		os.Exit(1)
	}
	if segment == nil {
		fmt.Printf("No common segment at (%g, %g)\n", *x, *y)
		if d, ok := nearestEdgeDistance(features, trigger); ok {
			fmt.Printf("Nearest feature edge is %g away; the trigger must hit a shared vertex\n", d)
		}
		os.Exit(0)
	}

	segWKT, err := wkt.Marshal(segment.LineString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode segment: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nCommon segment (%d vertices, length %g): %s\n",
		segment.Len(), segment.Length(), segWKT)
	fmt.Printf("\nFull-span anchors:\n")
	for _, a := range spans {
		fmt.Printf("  %-12s part %d  vertices %d..%d  dir %+d\n",
			a.FeatureID, a.Part, a.Start, a.End, a.Dir)
	}
	if len(endpoints) > 0 {
		fmt.Printf("\nEndpoint anchors:\n")
		for _, a := range endpoints {
			end := "end"
			if a.AtStart {
				end = "start"
			}
			fmt.Printf("  %-12s part %d  vertex %d  at segment %s\n",
				a.FeatureID, a.Part, a.Vertex, end)
		}
	}

	var chain reshape.Chain
	var result *reshape.EditResult
	if *chainWKT != "" {
		g, err := wkt.Unmarshal(*chainWKT)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse chain WKT: %v\n", err)
			os.Exit(1)
		}
		switch t := g.(type) {
		case *geom.LineString:
			chain = reshape.ChainFromLineString(t)
		case *geom.Point:
			// A point chain collapses the matched run onto one vertex
			chain = reshape.Chain{Layout: t.Layout(), Coords: []geom.Coord{t.Coords()}}
		default:
			fmt.Fprintf(os.Stderr, "Chain must be a LINESTRING or POINT, got %T\n", g)
			os.Exit(1)
		}

		editOpts := cfg.EditorOptions()
		editOpts.Logger = logger.Log
		result, err = reshape.ApplyReshape(segment, spans, endpoints, chain, features, editOpts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Reshape failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nReshaped %d features", len(result.Edits))
		if !result.OK() {
			fmt.Printf(" (%d rejected)", len(result.Failures))
		}
		fmt.Println()
		for _, e := range result.Edits {
			note := ""
			if e.CoordinateMismatch {
				note = "  [coordinate mismatch]"
			}
			fmt.Printf("  %-12s %s%s\n", e.Feature.ID, e.Kind, note)
		}
		for _, f := range result.Failures {
			fmt.Printf("  %-12s REJECTED: %v\n", f.FeatureID, f.Err)
		}

		if *outPath != "" {
			if err := writeFeatures(*outPath, features, result); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("\nWrote updated features to %s\n", *outPath)
		}
	}

	if *renderPath != "" {
		if err := writeOverlay(*renderPath, features, segment, chain, result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render overlay: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote overlay to %s\n", *renderPath)
	}
}

// nearestEdgeDistance returns the distance from pt to the closest feature
// edge, as an aiming hint when no vertex lies near the trigger.
func nearestEdgeDistance(features []feature.Feature, pt geom.Coord) (float64, bool) {
	best := 0.0
	found := false
	for _, f := range features {
		comps, err := topology.Components(f.Geometry)
		if err != nil {
			continue
		}
		for _, comp := range comps {
			for i := 1; i < len(comp.Coords); i++ {
				d := geometry.PointToSegmentDistance(pt, comp.Coords[i-1], comp.Coords[i])
				if !found || d < best {
					best = d
					found = true
				}
			}
		}
	}
	return best, found
}

// loadFeatures reads a GeoJSON FeatureCollection into feature snapshots.
// Features without an id get a positional one.
func loadFeatures(path string) ([]feature.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return nil, err
	}

	out := make([]feature.Feature, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := f.ID
		if id == "" {
			id = fmt.Sprintf("feature-%d", i)
		}
		out = append(out, feature.Feature{ID: id, Geometry: f.Geometry, Attributes: f.Properties})
	}
	return out, nil
}

// writeFeatures writes the snapshot with edited geometries merged in.
func writeFeatures(path string, features []feature.Feature, result *reshape.EditResult) error {
	fc := geojson.FeatureCollection{}
	for _, f := range features {
		g := f.Geometry
		if e, ok := result.Edited(f.ID); ok {
			g = e.Feature.Geometry
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         f.ID,
			Geometry:   g,
			Properties: f.Attributes,
		})
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// writeOverlay renders input features, the matched segment and the edited
// geometries (when a reshape ran) to a PNG.
func writeOverlay(path string, features []feature.Feature, segment *topology.CommonSegment, chain reshape.Chain, result *reshape.EditResult) error {
	ov := render.NewOverlay(1024, 1024)
	for _, f := range features {
		if err := ov.AddFeature(f, render.StyleFeature); err != nil {
			return err
		}
	}
	ov.AddPolyline(segment.Coords, segment.Closed, render.StyleSegment)
	if result != nil {
		for _, e := range result.Edits {
			if err := ov.AddFeature(e.Feature, render.StyleChain); err != nil {
				return err
			}
		}
		ov.AddPolyline(chain.Coords, false, render.StyleChain)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ov.WritePNG(f)
}
