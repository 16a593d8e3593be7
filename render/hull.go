// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package render

import (
	"math"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

const (
	defaultEps = 1e-12
)

// Hull returns the convex hull of pts in counter-clockwise order, or nil when
// the points do not span an area.
//
// The points are lifted onto the two faces of a unit-height prism; every
// vertex of the prism's 3-D hull projects back onto a vertex of the planar
// hull.
func Hull(pts []r2.Point) []r2.Point {
	n := len(pts)
	if n < 3 || collinear(pts) {
		return nil
	}

	lifted := make([]r3.Vector, 2*n)
	for i, p := range pts {
		lifted[i] = r3.Vector{X: p.X, Y: p.Y}
		lifted[n+i] = r3.Vector{X: p.X, Y: p.Y, Z: 1}
	}
	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(lifted, true, true, defaultEps)

	used := make(map[int]bool)
	var c r2.Point
	for _, idx := range ch.Indices {
		i := idx % n
		if used[i] {
			continue
		}
		used[i] = true
		c = c.Add(pts[i])
	}
	if len(used) < 3 {
		return nil
	}
	c = c.Mul(1 / float64(len(used)))

	hull := make([]r2.Point, 0, len(used))
	for i := range used {
		hull = append(hull, pts[i])
	}
	slices.SortFunc(hull, func(a, b r2.Point) int {
		da, db := a.Sub(c), b.Sub(c)
		aa, ab := math.Atan2(da.Y, da.X), math.Atan2(db.Y, db.X)
		switch {
		case aa < ab:
			return -1
		case aa > ab:
			return 1
		}
		return 0
	})
	return slices.CompactFunc(hull, func(a, b r2.Point) bool { return a == b })
}

func collinear(pts []r2.Point) bool {
	a := pts[0]
	var b r2.Point
	found := false
	for _, p := range pts[1:] {
		if p != a {
			b, found = p, true
			break
		}
	}
	if !found {
		return true
	}
	scale := b.Sub(a).Norm()
	for _, p := range pts {
		if math.Abs(b.Sub(a).Cross(p.Sub(a))) > defaultEps*scale*math.Max(1, p.Sub(a).Norm()) {
			return false
		}
	}
	return true
}
