// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package smooth

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"

	"github.com/2dChan/flowmap/internal/geom"
	"github.com/2dChan/flowmap/spiral"
	"github.com/2dChan/flowmap/utils"
)

// Options

func TestOptions(t *testing.T) {
	tests := []struct {
		name    string
		set     Option
		wantErr bool
	}{
		{"alpha", WithAlpha(0.2), false},
		{"alpha zero", WithAlpha(0), true},
		{"alpha too wide", WithAlpha(math.Pi), true},
		{"pseudo roots", WithMaxPseudoRootCount(5), false},
		{"pseudo roots none", WithMaxPseudoRootCount(0), false},
		{"pseudo roots negative", WithMaxPseudoRootCount(-1), true},
		{"threshold", WithOverlapThreshold(2), false},
		{"threshold NaN", WithOverlapThreshold(math.NaN()), true},
		{"threshold negative", WithOverlapThreshold(-1), true},
		{"side leaf passes", WithSideLeafPasses(0), false},
		{"side leaf passes negative", WithSideLeafPasses(-2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.set(&Options{})
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_InvalidOption(t *testing.T) {
	raw := mustBuildRaw(t, 3, 1)
	if _, err := New(raw, WithSideLeafPasses(-1)); err == nil {
		t.Errorf("New() error = nil, want error")
	}
}

// Result

func TestNew_KeepsRawTree(t *testing.T) {
	raw := mustBuildRaw(t, 40, 7)
	before := raw.Clone()
	mustNew(t, raw)
	if diff := cmp.Diff(before, raw); diff != "" {
		t.Errorf("raw tree mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_Invariants(t *testing.T) {
	for _, n := range []int{1, 2, 10, 50, 200} {
		t.Run(fmt.Sprintf("targets=%d", n), func(t *testing.T) {
			raw := mustBuildRaw(t, n, int64(n))
			r := mustNew(t, raw)
			tree := r.Tree()

			want := make(map[int]float64, n)
			for k, id := range raw.Leaves {
				want[k] = raw.Node(id).Weight
			}
			if diff := cmp.Diff(want, r.Leafs(r.Root())); diff != "" {
				t.Errorf("root leafs mismatch (-want +got):\n%s", diff)
			}

			attached := map[int]bool{}
			for _, id := range tree.Offspring() {
				attached[id] = true
				nd := tree.Node(id)
				if nd.Detached {
					t.Errorf("node %d is reachable but detached", id)
				}
				if !slices.Contains(tree.Children(nd.Parent), id) {
					t.Errorf("node %d is not a child of its parent %d", id, nd.Parent)
				}
				if nd.Kind == spiral.KindLeaf {
					continue
				}
				var sum float64
				for _, c := range tree.Children(id) {
					sum += tree.Node(c).Weight
				}
				if math.Abs(sum-nd.Weight) > 1e-9 {
					t.Errorf("joint %d weight = %v, want %v", id, nd.Weight, sum)
				}
			}
			for k, id := range tree.Leaves {
				if !attached[id] {
					t.Errorf("leaf %d (key %d) is not attached", id, k)
				}
			}
		})
	}
}

func TestResult_PseudoRoots(t *testing.T) {
	raw, err := spiral.Build(r2.Point{}, []r2.Point{{X: 100, Y: 100}, {X: 100, Y: -100}}, nil)
	if err != nil {
		t.Fatalf("spiral.Build() error = %v", err)
	}
	joint := raw.Node(raw.Leaves[0]).Parent

	r := mustNew(t, raw)
	if diff := cmp.Diff([]int{joint}, r.PseudoRoots()); diff != "" {
		t.Fatalf("r.PseudoRoots() mismatch (-want +got):\n%s", diff)
	}
	for _, leaf := range raw.Leaves {
		if got := r.Parent(leaf); got != r.Root() {
			t.Errorf("r.Parent(%d) = %d, want root %d", leaf, got, r.Root())
		}
		if got := r.Ancestors(leaf); len(got) != 0 {
			t.Errorf("r.Ancestors(%d) = %v, want none", leaf, got)
		}
	}
	if diff := cmp.Diff(raw.Leaves, r.Offspring()); diff != "" {
		t.Errorf("r.Offspring() mismatch (-want +got):\n%s", diff)
	}

	r = mustNew(t, raw, WithMaxPseudoRootCount(0))
	if got := r.PseudoRoots(); len(got) != 0 {
		t.Errorf("r.PseudoRoots() = %v, want none", got)
	}
	if got := r.Parent(raw.Leaves[0]); got != joint {
		t.Errorf("r.Parent(%d) = %d, want %d", raw.Leaves[0], got, joint)
	}
	if diff := cmp.Diff([]int{joint}, r.Ancestors(raw.Leaves[0])); diff != "" {
		t.Errorf("r.Ancestors() mismatch (-want +got):\n%s", diff)
	}
}

func TestResult_PseudoRootLimit(t *testing.T) {
	for _, limit := range []int{0, 1, 3, 6} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			targets, weights := utils.GenerateRingTargets(60, 3, r2.Point{}, 100, 400)
			raw, err := spiral.Build(r2.Point{}, targets, weights)
			if err != nil {
				t.Fatalf("spiral.Build() error = %v", err)
			}
			r := mustNew(t, raw, WithMaxPseudoRootCount(limit))
			prs := r.PseudoRoots()
			if len(prs) > limit {
				t.Errorf("len(r.PseudoRoots()) = %d, want at most %d", len(prs), limit)
			}
			for _, id := range prs {
				if !r.IsPseudoRoot(id) {
					t.Errorf("r.IsPseudoRoot(%d) = false", id)
				}
				if slices.Contains(r.Offspring(), id) {
					t.Errorf("r.Offspring() contains pseudo-root %d", id)
				}
			}
		})
	}
}

func TestResult_Ancestors(t *testing.T) {
	r := mustNew(t, mustBuildRaw(t, 80, 11))
	tree := r.Tree()
	for _, id := range r.Offspring() {
		anc := r.Ancestors(id)
		p := tree.Node(id).Parent
		if p == r.Root() || r.IsPseudoRoot(p) {
			if len(anc) != 0 {
				t.Errorf("r.Ancestors(%d) = %v, want none", id, anc)
			}
			continue
		}
		if len(anc) == 0 || anc[len(anc)-1] != p {
			t.Fatalf("r.Ancestors(%d) = %v, want chain ending at %d", id, anc, p)
		}
		top := tree.Node(anc[0]).Parent
		if top != r.Root() && !r.IsPseudoRoot(top) {
			t.Errorf("r.Ancestors(%d) stops at %d below parent %d", id, anc[0], top)
		}
	}
}

func TestResult_Merge(t *testing.T) {
	const n = 60
	r := mustNew(t, mustBuildRaw(t, n, 5))
	tree := r.Tree()
	//nolint:gosec
	random := rand.New(rand.NewSource(1))

	for i := range 50 {
		var keys []int
		for k := range n {
			if random.Intn(3) == 0 {
				keys = append(keys, k)
			}
		}
		if i == 0 {
			keys = keys[:0]
			for k := range n {
				keys = append(keys, k)
			}
		}

		got := r.Merge(keys)
		covered := map[int]bool{}
		for _, id := range got {
			for k := range r.Leafs(id) {
				if covered[k] {
					t.Fatalf("Merge(%v): key %d covered twice", keys, k)
				}
				covered[k] = true
			}
			p := tree.Node(id).Parent
			if p != r.Root() && !r.IsPseudoRoot(p) && coveredBy(r.Leafs(p), toSet(keys)) {
				t.Errorf("Merge(%v): parent %d of %d also qualifies", keys, p, id)
			}
		}
		if diff := cmp.Diff(toSet(keys), covered); diff != "" {
			t.Errorf("Merge() coverage mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestResult_MergeEdgeCases(t *testing.T) {
	r := mustNew(t, mustBuildRaw(t, 5, 2))
	if got := r.Merge(nil); len(got) != 0 {
		t.Errorf("Merge(nil) = %v, want empty", got)
	}
	if got := r.Merge([]int{-1, 99}); len(got) != 0 {
		t.Errorf("Merge(unknown) = %v, want empty", got)
	}
	got := r.Merge([]int{2, 2, 42})
	if len(got) != 1 {
		t.Fatalf("Merge() = %v, want a single node", got)
	}
	leaf := r.Tree().Leaves[2]
	want := map[int]float64{2: r.Tree().Node(leaf).Weight}
	if diff := cmp.Diff(want, r.Leafs(got[0])); diff != "" {
		t.Errorf("Merge() leafs mismatch (-want +got):\n%s", diff)
	}
}

// Smoother

func TestSmoother_SplicesInnerJoint(t *testing.T) {
	tree := newTestTree()
	hold := addChild(tree, tree.Root, spiral.KindJoint, r2.Point{X: 50, Y: 10})
	joint := addChild(tree, hold, spiral.KindJoint, r2.Point{X: 100, Y: 0})
	addChild(tree, joint, spiral.KindLeaf, r2.Point{X: 150, Y: 30})
	addChild(tree, joint, spiral.KindLeaf, r2.Point{X: 150, Y: -30})
	tree.AggregateLeafs()

	r := mustNew(t, tree)
	got := r.Tree()
	if !got.Node(hold).Detached {
		t.Errorf("single-child joint %d not detached", hold)
	}
	if p := got.Node(joint).Parent; p != got.Root {
		t.Errorf("joint parent = %d, want root %d", p, got.Root)
	}
	if diff := cmp.Diff([]int{joint}, got.Children(got.Root)); diff != "" {
		t.Errorf("root children mismatch (-want +got):\n%s", diff)
	}
}

func TestSmoother_AdjustPath(t *testing.T) {
	tests := []struct {
		name      string
		obstacles []r2.Point
		check     func(t *testing.T, s *smoother, f pathFixture)
	}{
		{
			name: "straighten",
			check: func(t *testing.T, s *smoother, f pathFixture) {
				want := r2.Point{X: math.Hypot(50, 40), Y: 0}
				if got := s.point(f.self); got.Sub(want).Norm() > 1e-9 {
					t.Errorf("self at %v, want %v", got, want)
				}
			},
		},
		{
			name:      "route around one node",
			obstacles: []r2.Point{{X: 50, Y: 20}},
			check: func(t *testing.T, s *smoother, f pathFixture) {
				got := s.point(f.self)
				if !(got.Y < 40) {
					t.Errorf("self at %v, want moved towards the chord", got)
				}
				tri := triangleOf(s, f.parent, f.self, f.child)
				if !tri.Contains(r2.Point{X: 50, Y: 20}) {
					t.Errorf("obstacle left the bend %v", tri)
				}
			},
		},
		{
			name:      "two nodes inside",
			obstacles: []r2.Point{{X: 50, Y: 20}, {X: 40, Y: 10}},
			check:     unchanged,
		},
		{
			name:      "near node on the same side",
			obstacles: []r2.Point{{X: -3, Y: 2}},
			check: func(t *testing.T, s *smoother, f pathFixture) {
				if got := s.point(f.self); math.Abs(got.Y) > 1e-9 {
					t.Errorf("self at %v, want on the chord", got)
				}
			},
		},
		{
			name:      "near node on the other side",
			obstacles: []r2.Point{{X: 50, Y: -5}},
			check:     unchanged,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, f := newPathFixture(tt.obstacles)
			s := newSmoother(tree, Options{Alpha: defaultAlpha, OverlapThreshold: defaultOverlapThreshold})
			s.adjustPath(f.parent, f.self, f.child)
			tt.check(t, s, f)
		})
	}
}

func TestSmoother_WidenSingleChild(t *testing.T) {
	tree := newTestTree()
	parent := addChild(tree, tree.Root, spiral.KindJoint, r2.Point{X: 100, Y: 0})
	addChild(tree, parent, spiral.KindLeaf, r2.Point{X: 50, Y: 10})
	tree.AggregateLeafs()

	r := mustNew(t, tree)
	want := r2.Point{X: 75, Y: 5}
	if got := r.Tree().Node(parent).Point; got.Sub(want).Norm() > 1e-9 {
		t.Errorf("parent at %v, want %v", got, want)
	}
}

func TestSmoother_WidenSplitsSibling(t *testing.T) {
	tree := newTestTree()
	parent := addChild(tree, tree.Root, spiral.KindJoint, r2.Point{X: 100, Y: 0})
	leaf := addChild(tree, parent, spiral.KindLeaf, r2.Point{X: 60, Y: 5})
	sibling := addChild(tree, parent, spiral.KindLeaf, r2.Point{X: 150, Y: 50})
	tree.AggregateLeafs()

	r := mustNew(t, tree)
	got := r.Tree()
	if p := got.Node(parent).Point; p.Sub(r2.Point{X: 50, Y: 0}).Norm() > 1e-9 {
		t.Errorf("parent at %v, want (50, 0)", p)
	}
	split := got.Node(sibling).Parent
	if split == parent {
		t.Fatalf("sibling still hangs off the moved parent")
	}
	sn := got.Node(split)
	if sn.Point.Sub(r2.Point{X: 100, Y: 0}).Norm() > 1e-9 || sn.Parent != parent {
		t.Errorf("split joint = %+v, want at (100, 0) below %d", sn, parent)
	}
	if diff := cmp.Diff([]int{leaf, split}, got.Children(parent)); diff != "" {
		t.Errorf("parent children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int]float64{1: 1}, sn.Leafs); diff != "" {
		t.Errorf("split joint leafs mismatch (-want +got):\n%s", diff)
	}
}

// Benchmarks

func BenchmarkNew(b *testing.B) {
	for _, n := range []int{100, 1000} {
		b.Run(fmt.Sprintf("targets=%d", n), func(b *testing.B) {
			targets, weights := utils.GenerateRandomTargets(n, 0, r2.RectFromPoints(r2.Point{X: -500, Y: -500}, r2.Point{X: 500, Y: 500}))
			raw, err := spiral.Build(r2.Point{}, targets, weights)
			if err != nil {
				b.Fatalf("spiral.Build() error = %v", err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if _, err := New(raw); err != nil {
					b.Fatalf("New() error = %v", err)
				}
			}
		})
	}
}

// Helpers

type pathFixture struct {
	parent, self, child int
}

// newPathFixture lays out root (0,0) → self (50,40) → child joint (100,0)
// with a far leaf beside self. Obstacles hang off the child joint.
func newPathFixture(obstacles []r2.Point) (*spiral.Tree, pathFixture) {
	tree := newTestTree()
	self := addChild(tree, tree.Root, spiral.KindJoint, r2.Point{X: 50, Y: 40})
	addChild(tree, self, spiral.KindLeaf, r2.Point{X: 50, Y: 90})
	child := addChild(tree, self, spiral.KindJoint, r2.Point{X: 100, Y: 0})
	under := child
	for i, p := range obstacles {
		if i == 1 {
			under = addChild(tree, child, spiral.KindJoint, r2.Point{X: 300, Y: 0})
		}
		addChild(tree, under, spiral.KindLeaf, p)
	}
	if len(obstacles) < 2 {
		addChild(tree, child, spiral.KindLeaf, r2.Point{X: 300, Y: 0})
	}
	tree.AggregateLeafs()
	return tree, pathFixture{parent: tree.Root, self: self, child: child}
}

func unchanged(t *testing.T, s *smoother, f pathFixture) {
	t.Helper()
	want := r2.Point{X: 50, Y: 40}
	if got := s.point(f.self); got != want {
		t.Errorf("self at %v, want unchanged %v", got, want)
	}
}

func triangleOf(s *smoother, a, b, c int) geom.Triangle {
	return geom.Triangle{A: s.point(a), B: s.point(b), C: s.point(c)}
}

func newTestTree() *spiral.Tree {
	tree := &spiral.Tree{}
	tree.Root = tree.AddNode(spiral.Node{
		Kind:   spiral.KindRoot,
		Key:    spiral.None,
		Plus:   spiral.None,
		Minus:  spiral.None,
		Parent: spiral.None,
	})
	return tree
}

// addChild appends a node below parent. Leaves get consecutive keys and
// weight 1.
func addChild(tree *spiral.Tree, parent int, kind spiral.Kind, p r2.Point) int {
	n := spiral.Node{
		Kind:   kind,
		Point:  p,
		Key:    spiral.None,
		Plus:   spiral.None,
		Minus:  spiral.None,
		Parent: parent,
	}
	if kind == spiral.KindLeaf {
		n.Key = len(tree.Leaves)
		n.Weight = 1
	}
	id := tree.AddNode(n)
	if kind == spiral.KindLeaf {
		tree.Leaves = append(tree.Leaves, id)
	}
	pn := tree.Node(parent)
	if pn.Plus == spiral.None {
		pn.Plus = id
	} else {
		pn.Minus = id
	}
	return id
}

func mustBuildRaw(t *testing.T, n int, seed int64) *spiral.Tree {
	t.Helper()
	targets, weights := utils.GenerateRandomTargets(n, seed, r2.RectFromPoints(r2.Point{X: -500, Y: -500}, r2.Point{X: 500, Y: 500}))
	raw, err := spiral.Build(r2.Point{}, targets, weights)
	if err != nil {
		t.Fatalf("spiral.Build() error = %v", err)
	}
	return raw
}

func mustNew(t *testing.T, raw *spiral.Tree, setters ...Option) *Result {
	t.Helper()
	r, err := New(raw, setters...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func toSet(keys []int) map[int]bool {
	m := make(map[int]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}
