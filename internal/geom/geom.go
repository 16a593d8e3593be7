// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package geom holds the small planar predicates shared by the smoothing pass
// and the path builder.
package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

const (
	// Eps is the tolerance (in px²) below which a cross product counts as zero.
	Eps = 1e-9
)

// Triangle is a planar triangle given by its three corners.
type Triangle struct {
	A, B, C r2.Point
}

// Contains reports whether p lies strictly inside t.
// Points on an edge and degenerate triangles never contain anything.
func (t Triangle) Contains(p r2.Point) bool {
	d1 := t.B.Sub(t.A).Cross(p.Sub(t.A))
	d2 := t.C.Sub(t.B).Cross(p.Sub(t.B))
	d3 := t.A.Sub(t.C).Cross(p.Sub(t.C))
	if d1 > Eps && d2 > Eps && d3 > Eps {
		return true
	}
	return d1 < -Eps && d2 < -Eps && d3 < -Eps
}

// Bound returns the axis-aligned bounding rectangle of t.
func (t Triangle) Bound() r2.Rect {
	return r2.RectFromPoints(t.A, t.B, t.C)
}

// SegmentDistance returns the distance from p to the segment ab.
func SegmentDistance(p, a, b r2.Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 == 0 {
		return p.Sub(a).Norm()
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/l2))
	return p.Sub(a.Add(ab.Mul(t))).Norm()
}

// Side returns +1 when p is left of the directed line ab, -1 when right and 0
// when p is (nearly) on it.
func Side(a, b, p r2.Point) int {
	c := b.Sub(a).Cross(p.Sub(a))
	switch {
	case c > Eps:
		return 1
	case c < -Eps:
		return -1
	}
	return 0
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b r2.Point, t float64) r2.Point {
	return a.Add(b.Sub(a).Mul(t))
}

// Cos returns the cosine of the angle between u and v, or 1 when either is
// the zero vector.
func Cos(u, v r2.Point) float64 {
	n := u.Norm() * v.Norm()
	if n == 0 {
		return 1
	}
	return u.Dot(v) / n
}

// Finite reports whether both coordinates of p are finite numbers.
func Finite(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
