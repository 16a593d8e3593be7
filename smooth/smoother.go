// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package smooth

import (
	"math"
	"slices"

	"github.com/golang/geo/r2"

	"github.com/2dChan/flowmap/internal/geom"
	"github.com/2dChan/flowmap/spatial"
	"github.com/2dChan/flowmap/spiral"
)

const (
	closenessDivisor = 5
	routeIterations  = 24
)

// smoother straightens and widens the edges of a raw flow tree in place.
type smoother struct {
	t        *spiral.Tree
	idx      *spatial.Index
	thr      float64
	cosLimit float64
}

func newSmoother(t *spiral.Tree, opts Options) *smoother {
	s := &smoother{
		t:        t,
		idx:      spatial.New(),
		thr:      opts.OverlapThreshold,
		cosLimit: -math.Cos(3 * opts.Alpha.Radians()),
	}
	s.idx.Insert(t.Root, t.Node(t.Root).Point)
	for _, id := range t.Offspring() {
		s.idx.Insert(id, t.Node(id).Point)
	}
	return s
}

func (s *smoother) run(sideLeafPasses int) {
	for _, id := range s.t.Offspring() {
		if !s.isJoint(id) || s.t.NumChildren(id) != 1 {
			continue
		}
		c := s.t.Children(id)[0]
		if s.isJoint(c) {
			s.adjustPath(s.t.Node(id).Parent, id, c)
		}
	}

	for range sideLeafPasses {
		for _, id := range s.t.Offspring() {
			if c, ok := s.sideLeafJoint(id); ok {
				s.adjustPath(s.t.Node(id).Parent, id, c)
			}
		}
	}

	for _, id := range s.t.Offspring() {
		if s.t.Node(id).Kind == spiral.KindLeaf {
			s.widen(id)
		}
	}
}

func (s *smoother) isJoint(id int) bool {
	n := s.t.Node(id)
	return n.Kind == spiral.KindJoint && !n.Detached
}

// sideLeafJoint reports whether id is a joint with one leaf child and one
// joint child, returning the joint child.
func (s *smoother) sideLeafJoint(id int) (int, bool) {
	if !s.isJoint(id) || s.t.NumChildren(id) != 2 {
		return spiral.None, false
	}
	n := s.t.Node(id)
	pk, mk := s.t.Node(n.Plus).Kind, s.t.Node(n.Minus).Kind
	switch {
	case pk == spiral.KindLeaf && mk == spiral.KindJoint:
		return n.Minus, true
	case pk == spiral.KindJoint && mk == spiral.KindLeaf:
		return n.Plus, true
	}
	return spiral.None, false
}

func (s *smoother) point(id int) r2.Point {
	return s.t.Node(id).Point
}

// hits returns the indexed nodes strictly inside tri, skipping the excluded
// ids.
func (s *smoother) hits(tri geom.Triangle, exclude ...int) []int {
	var out []int
	for _, id := range s.idx.Query(tri.Bound()) {
		if slices.Contains(exclude, id) {
			continue
		}
		if p, _ := s.idx.Point(id); tri.Contains(p) {
			out = append(out, id)
		}
	}
	return out
}

// adjustPath tries to remove the bend that self puts between parent and
// child. The bend is straightened when nothing lies in or near the area it
// encloses, routed tightly around a single enclosed node, and otherwise left
// as it is.
func (s *smoother) adjustPath(parent, self, child int) {
	if parent == spiral.None {
		return
	}
	p, m, c := s.point(parent), s.point(self), s.point(child)
	closeness := math.Min(m.Sub(c).Norm(), m.Sub(p).Norm()) / closenessDivisor
	tri := geom.Triangle{A: p, B: m, C: c}

	var inside, near []int
	for _, id := range s.idx.Query(tri.Bound().ExpandedByMargin(closeness)) {
		if id == parent || id == self || id == child {
			continue
		}
		q, _ := s.idx.Point(id)
		switch {
		case tri.Contains(q):
			inside = append(inside, id)
		case geom.SegmentDistance(q, p, c) <= closeness:
			near = append(near, id)
		}
	}

	switch {
	case len(inside) == 0 && len(near) == 0:
		s.straighten(parent, self, child)
	case len(inside) == 1:
		s.routeAround(parent, self, child, inside[0], closeness)
	case len(inside) == 0 && len(near) == 1:
		q := s.point(near[0])
		if geom.Side(p, c, q) == geom.Side(p, c, m) {
			s.straighten(parent, self, child)
		}
	}
}

// straightTarget returns the point on segment parent→child at self's
// original distance from parent, kept clear of child.
func (s *smoother) straightTarget(parent, self, child int) (r2.Point, bool) {
	p, m, c := s.point(parent), s.point(self), s.point(child)
	span := c.Sub(p).Norm()
	d := math.Min(m.Sub(p).Norm(), span-s.thr)
	if d < s.thr {
		return r2.Point{}, false
	}
	return p.Add(c.Sub(p).Normalize().Mul(d)), true
}

func (s *smoother) straighten(parent, self, child int) {
	if s.t.NumChildren(self) == 1 {
		s.splice(self)
		return
	}
	target, ok := s.straightTarget(parent, self, child)
	if ok {
		s.move(self, target)
	}
}

// routeAround moves self towards the straight line as far as the single
// enclosed node q stays inside the bend with margin to spare.
func (s *smoother) routeAround(parent, self, child, q int, margin float64) {
	target, ok := s.straightTarget(parent, self, child)
	if !ok {
		return
	}
	p, m, c, qp := s.point(parent), s.point(self), s.point(child), s.point(q)
	fits := func(lam float64) bool {
		at := geom.Lerp(m, target, lam)
		return geom.Triangle{A: p, B: at, C: c}.Contains(qp) &&
			geom.SegmentDistance(qp, p, at) >= margin &&
			geom.SegmentDistance(qp, at, c) >= margin
	}
	if !fits(0) {
		return
	}
	lo, hi := 0.0, 1.0
	if fits(hi) {
		lo = hi
	} else {
		for range routeIterations {
			mid := (lo + hi) / 2
			if fits(mid) {
				lo = mid
			} else {
				hi = mid
			}
		}
	}
	if lo > 0 {
		s.move(self, geom.Lerp(m, target, lo))
	}
}

// widen opens up the angle a leaf makes with its grandparent edge when it
// turns back sharper than 3·alpha from a straight continuation.
func (s *smoother) widen(leaf int) {
	parent := s.t.Node(leaf).Parent
	if parent == spiral.None || s.t.Node(parent).Kind != spiral.KindJoint {
		return
	}
	grand := s.t.Node(parent).Parent
	if grand == spiral.None {
		return
	}
	l, p, g := s.point(leaf), s.point(parent), s.point(grand)
	if geom.Cos(l.Sub(p), g.Sub(p)) <= s.cosLimit {
		return
	}

	switch s.t.NumChildren(parent) {
	case 1:
		moved := geom.Lerp(p, l, 0.5)
		if moved.Sub(l).Norm() < s.thr {
			return
		}
		if len(s.hits(geom.Triangle{A: p, B: moved, C: g}, leaf, parent, grand)) > 0 ||
			len(s.hits(geom.Triangle{A: l, B: moved, C: g}, leaf, parent, grand)) > 0 {
			return
		}
		s.move(parent, moved)
	case 2:
		sibling := s.t.Children(parent)[0]
		if sibling == leaf {
			sibling = s.t.Children(parent)[1]
		}
		moved := geom.Lerp(p, g, 0.5)
		if moved.Sub(g).Norm() < s.thr || moved.Sub(l).Norm() < s.thr {
			return
		}
		if len(s.hits(geom.Triangle{A: l, B: p, C: moved}, leaf, parent, grand, sibling)) > 0 {
			return
		}
		s.splitBranch(parent, sibling)
		s.move(parent, moved)
	}
}

// splitBranch inserts a single-child joint at parent's position above
// sibling, so that sibling keeps its route when parent moves.
func (s *smoother) splitBranch(parent, sibling int) {
	sn := s.t.Node(sibling)
	pos, weight := s.point(parent), sn.Weight
	j := s.t.AddNode(spiral.Node{
		Kind:   spiral.KindJoint,
		Point:  pos,
		Weight: weight,
		Key:    spiral.None,
		Plus:   sibling,
		Minus:  spiral.None,
		Parent: spiral.None,
	})
	s.t.ReplaceChild(parent, sibling, j)
	s.t.Node(sibling).Parent = j
	s.idx.Insert(j, pos)
}

// splice removes the single-child joint id, attaching its child to id's
// parent.
func (s *smoother) splice(id int) {
	n := s.t.Node(id)
	child, parent := s.t.Children(id)[0], n.Parent
	s.t.ReplaceChild(parent, id, child)
	n = s.t.Node(id)
	n.Plus, n.Minus, n.Parent = spiral.None, spiral.None, spiral.None
	n.Detached = true
	s.idx.Remove(id)
}

func (s *smoother) move(id int, p r2.Point) {
	for _, c := range s.t.Children(id) {
		if s.point(c).Sub(p).Norm() < s.thr {
			return
		}
	}
	s.t.SetPoint(id, p)
	s.idx.Update(id, p)
}
