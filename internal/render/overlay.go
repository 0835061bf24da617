// Package render rasterizes diagnostic overlays of features, the matched
// common segment and the replacement chain to PNG.
package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/twpayne/go-geom"
	"golang.org/x/image/vector"

	"segment-reshape/internal/feature"
	"segment-reshape/internal/topology"
	"segment-reshape/pkg/geometry"
)

// Style is the stroke style of one overlay layer.
type Style struct {
	Color color.RGBA
	Width float64 // stroke width in pixels
}

// Default layer styles: grey features, red segment, green chain.
var (
	StyleFeature = Style{Color: color.RGBA{128, 128, 128, 255}, Width: 1.5}
	StyleSegment = Style{Color: color.RGBA{220, 40, 40, 255}, Width: 3}
	StyleChain   = Style{Color: color.RGBA{40, 160, 40, 255}, Width: 3}
)

// Overlay accumulates polylines in world coordinates and rasterizes them
// into a fixed-size image, fitting all content with a margin.
type Overlay struct {
	Width  int
	Height int
	Margin float64

	layers []layer
	bounds geometry.Rect
	any    bool
}

type layer struct {
	coords []geom.Coord
	closed bool
	style  Style
}

// NewOverlay creates an overlay canvas of the given pixel size.
func NewOverlay(width, height int) *Overlay {
	return &Overlay{Width: width, Height: height, Margin: 16}
}

// AddPolyline adds one stroked polyline.
func (o *Overlay) AddPolyline(coords []geom.Coord, closed bool, style Style) {
	if len(coords) < 2 {
		return
	}
	o.layers = append(o.layers, layer{coords: geometry.CloneCoords(coords), closed: closed, style: style})
	b := geometry.BoundingBox(coords)
	if o.any {
		o.bounds = o.bounds.Union(b)
	} else {
		o.bounds = b
		o.any = true
	}
}

// AddFeature adds every line-bearing part of a feature geometry.
func (o *Overlay) AddFeature(f feature.Feature, style Style) error {
	comps, err := topology.Components(f.Geometry)
	if err != nil {
		return err
	}
	for _, comp := range comps {
		if comp.Kind == topology.KindPoint {
			continue
		}
		o.AddPolyline(comp.Coords, comp.Kind == topology.KindRing, style)
	}
	return nil
}

// WritePNG rasterizes the overlay and writes it as PNG.
func (o *Overlay) WritePNG(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	sx, sy, scale := o.transform()
	for _, l := range o.layers {
		strokePolyline(img, l, sx, sy, scale)
	}
	return png.Encode(w, img)
}

// transform maps world coordinates into the canvas, preserving aspect
// ratio and flipping Y so north is up.
func (o *Overlay) transform() (offX, offY, scale float64) {
	w := o.bounds.Width
	h := o.bounds.Height
	availW := float64(o.Width) - 2*o.Margin
	availH := float64(o.Height) - 2*o.Margin

	scale = 1
	if w > 0 || h > 0 {
		scale = math.Min(availW/math.Max(w, 1e-12), availH/math.Max(h, 1e-12))
	}
	offX = o.Margin - o.bounds.X*scale
	offY = o.Margin + (o.bounds.Y+h)*scale
	return offX, offY, scale
}

func toPixel(c geom.Coord, offX, offY, scale float64) (float32, float32) {
	return float32(offX + c.X()*scale), float32(offY - c.Y()*scale)
}

// strokePolyline draws each segment as a filled quad with square caps. The
// rasterizer only fills paths, so strokes are built as outlines.
func strokePolyline(img *image.RGBA, l layer, offX, offY, scale float64) {
	r := vector.NewRasterizer(img.Bounds().Dx(), img.Bounds().Dy())
	half := float32(l.style.Width / 2)

	n := len(l.coords)
	last := n - 1
	if l.closed {
		last = n
	}
	for i := 0; i < last; i++ {
		x0, y0 := toPixel(l.coords[i], offX, offY, scale)
		x1, y1 := toPixel(l.coords[(i+1)%n], offX, offY, scale)

		dx := x1 - x0
		dy := y1 - y0
		length := float32(math.Hypot(float64(dx), float64(dy)))
		if length == 0 {
			continue
		}
		// Unit normal scaled to half width
		nx := -dy / length * half
		ny := dx / length * half

		r.MoveTo(x0+nx, y0+ny)
		r.LineTo(x1+nx, y1+ny)
		r.LineTo(x1-nx, y1-ny)
		r.LineTo(x0-nx, y0-ny)
		r.ClosePath()
	}

	src := image.NewUniform(l.style.Color)
	r.Draw(img, img.Bounds(), src, image.Point{})
}
