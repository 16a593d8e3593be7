// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package flowmap

import (
	"github.com/golang/geo/r2"

	"github.com/2dChan/flowmap/internal/geom"
	"github.com/2dChan/flowmap/smooth"
	"github.com/2dChan/flowmap/spatial"
	"github.com/2dChan/flowmap/spiral"
)

const (
	// minCurveFraction is the fraction below which a corner is drawn sharp.
	minCurveFraction = 1.0 / 64
)

type pathBuilder struct {
	r    *smooth.Result
	t    *spiral.Tree
	idx  *spatial.Index
	frac map[int]float64
}

// buildPaths creates one path per node of r below the root, pseudo-roots
// excepted, in breadth-first order.
func buildPaths(r *smooth.Result, curveFraction float64) []*Path {
	t := r.Tree()
	b := &pathBuilder{
		r:    r,
		t:    t,
		idx:  spatial.New(),
		frac: make(map[int]float64),
	}
	all := append([]int{t.Root}, t.Offspring()...)
	for _, id := range all {
		b.idx.Insert(id, t.Node(id).Point)
	}
	for _, id := range all {
		if id != t.Root && t.NumChildren(id) > 0 {
			b.frac[id] = b.cornerFraction(id, curveFraction)
		}
	}

	offspring := r.Offspring()
	paths := make([]*Path, 0, len(offspring))
	for _, id := range offspring {
		paths = append(paths, b.path(id))
	}
	return paths
}

// cornerFraction returns the largest fraction, halving from f, at which no
// curve turning at id sweeps over another node.
func (b *pathBuilder) cornerFraction(id int, f float64) float64 {
	n := b.t.Node(id)
	p, g := n.Point, b.t.Node(n.Parent).Point
	for _, c := range b.t.Children(id) {
		cp := b.t.Node(c).Point
		for f >= minCurveFraction && b.sweeps(geom.Triangle{A: geom.Lerp(p, cp, f), B: p, C: geom.Lerp(p, g, f)}, c, id, n.Parent) {
			f /= 2
		}
		if f < minCurveFraction {
			return 0
		}
	}
	return f
}

func (b *pathBuilder) sweeps(tri geom.Triangle, exclude ...int) bool {
	for _, id := range b.idx.Query(tri.Bound()) {
		if id == exclude[0] || id == exclude[1] || id == exclude[2] {
			continue
		}
		if q, _ := b.idx.Point(id); tri.Contains(q) {
			return true
		}
	}
	return false
}

func (b *pathBuilder) path(id int) *Path {
	t := b.t
	n := t.Node(id)
	par := t.Node(n.Parent)
	p := &Path{
		ID:           id,
		Kind:         n.Kind,
		Leafs:        n.Leafs,
		Weight:       n.Weight,
		ParentWeight: par.Weight,
		node:         n.Point,
		parent:       par.Point,
		startFrac:    b.frac[id],
		Offset:       Offset{Sign: t.Sign(id)},
	}
	if par.ID == t.Root {
		return p
	}

	g := t.Node(par.Parent)
	p.curved = true
	p.grand = g.Point
	p.frac = b.frac[par.ID]
	p.Offset.Dir = par.Point.Sub(g.Point).Normalize().Ortho()
	if b.r.IsPseudoRoot(par.ID) {
		for q := g.ID; q != spiral.None; q = t.Node(q).Parent {
			p.trunk = append(p.trunk, t.Node(q).Point)
		}
	}
	return p
}

// bounds returns the rectangle spanned by every attached node.
func bounds(t *spiral.Tree) r2.Rect {
	pts := []r2.Point{t.Node(t.Root).Point}
	for _, id := range t.Offspring() {
		pts = append(pts, t.Node(id).Point)
	}
	return r2.RectFromPoints(pts...)
}
