// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package render draws flow layouts as SVG.
package render

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"

	svg "github.com/ajstarks/svgo"
	"github.com/golang/geo/r2"

	"github.com/2dChan/flowmap"
)

type Style struct {
	Width, Height int
	// Margin is kept free around the fitted layout, in px.
	Margin float64

	// HullStyle of the target hull backdrop; empty skips it.
	HullStyle   string
	Background  string
	FlowColor   string
	FlowOpacity float64
	TargetStyle string
	SourceStyle string

	// MarkerRadius of the target and source circles; 0 hides them.
	MarkerRadius int
}

func DefaultStyle() Style {
	return Style{
		Width:        1200,
		Height:       800,
		Margin:       40,
		Background:   "fill:rgb(255,255,255)",
		HullStyle:    "fill:rgb(245,245,245);stroke:rgb(220,220,220);stroke-width:1",
		FlowColor:    "rgb(31,119,180)",
		FlowOpacity:  0.85,
		TargetStyle:  "fill:rgb(214,39,40)",
		SourceStyle:  "fill:rgb(44,160,44);stroke:rgb(0,0,0);stroke-width:1",
		MarkerRadius: 3,
	}
}

// Fit returns the projector that scales and centres bounds into a
// width × height canvas, keeping margin free on every side.
func Fit(bounds r2.Rect, width, height int, margin float64) flowmap.Projector {
	size := bounds.Size()
	avail := r2.Point{X: float64(width) - 2*margin, Y: float64(height) - 2*margin}
	s := 1.0
	switch {
	case size.X > 0 && size.Y > 0:
		s = math.Min(avail.X/size.X, avail.Y/size.Y)
	case size.X > 0:
		s = avail.X / size.X
	case size.Y > 0:
		s = avail.Y / size.Y
	}
	center := r2.Point{X: float64(width) / 2, Y: float64(height) / 2}
	mid := bounds.Center()
	return func(p r2.Point) r2.Point {
		return p.Sub(mid).Mul(s).Add(center)
	}
}

// SVG writes the layout to w: the target hull as backdrop, one stroked path
// per flow edge, widest first, and the target and source markers on top.
func SVG(w io.Writer, l *flowmap.Layout, style Style) error {
	ew := &errWriter{w: w}
	proj := Fit(l.Bounds(), style.Width, style.Height, style.Margin)
	tree := l.Result().Tree()

	targets := make([]r2.Point, len(tree.Leaves))
	for k, id := range tree.Leaves {
		targets[k] = tree.Node(id).Point
	}

	canvas := svg.New(ew)
	canvas.Start(style.Width, style.Height)
	canvas.Rect(0, 0, style.Width, style.Height, style.Background)

	if hull := Hull(targets); hull != nil && style.HullStyle != "" {
		xs, ys := make([]int, len(hull)), make([]int, len(hull))
		for i, p := range hull {
			xs[i], ys[i] = screen(proj(p))
		}
		canvas.Polygon(xs, ys, style.HullStyle)
	}

	paths := l.Paths(nil)
	slices.SortStableFunc(paths, func(a, b *flowmap.Path) int {
		return cmp.Compare(b.Width, a.Width)
	})
	canvas.Gstyle(fmt.Sprintf("fill:none;stroke:%s;stroke-opacity:%.2f;stroke-linecap:round;stroke-linejoin:round",
		style.FlowColor, style.FlowOpacity))
	for _, p := range paths {
		canvas.Path(p.D(proj), fmt.Sprintf("stroke-width:%.2f", p.Width))
	}
	canvas.Gend()

	if style.MarkerRadius > 0 {
		for _, p := range targets {
			x, y := screen(proj(p))
			canvas.Circle(x, y, style.MarkerRadius, style.TargetStyle)
		}
		x, y := screen(proj(l.Source()))
		canvas.Circle(x, y, 2*style.MarkerRadius, style.SourceStyle)
	}
	canvas.End()
	return ew.err
}

func screen(p r2.Point) (int, int) {
	return int(math.Round(p.X)), int(math.Round(p.Y))
}

// errWriter keeps the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	n, err := ew.w.Write(p)
	ew.err = err
	return n, err
}
