// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package smooth post-processes a raw spiral tree: it removes needless bends,
// widens sharp leaf angles and derives the pseudo-roots and ancestry queries
// the path builder works with.
package smooth

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/golang/geo/s1"

	"github.com/2dChan/flowmap/internal/geom"
	"github.com/2dChan/flowmap/spiral"
)

const (
	defaultAlpha              = s1.Angle(math.Pi / 10)
	defaultMaxPseudoRootCount = 3
	defaultOverlapThreshold   = 1.0
	defaultSideLeafPasses     = 2
	maxPseudoRootDepth        = 10
)

var ErrInvalidOption = errors.New("smooth: invalid option")

type Options struct {
	Alpha              s1.Angle
	MaxPseudoRootCount int
	OverlapThreshold   float64
	SideLeafPasses     int
}

type Option func(*Options) error

// WithAlpha sets the spiral angle the tree was built with. It bounds the
// sharpest leaf angle left alone by the widening pass.
func WithAlpha(alpha s1.Angle) Option {
	return func(o *Options) error {
		if !(alpha > 0 && alpha < math.Pi/2) {
			return fmt.Errorf("%w: alpha %v outside (0, π/2)", ErrInvalidOption, alpha.Radians())
		}
		o.Alpha = alpha
		return nil
	}
}

func WithMaxPseudoRootCount(n int) Option {
	return func(o *Options) error {
		if n < 0 {
			return fmt.Errorf("%w: max pseudo-root count %d", ErrInvalidOption, n)
		}
		o.MaxPseudoRootCount = n
		return nil
	}
}

func WithOverlapThreshold(d float64) Option {
	return func(o *Options) error {
		if !(d >= 0) || math.IsInf(d, 0) {
			return fmt.Errorf("%w: overlap threshold %v", ErrInvalidOption, d)
		}
		o.OverlapThreshold = d
		return nil
	}
}

// WithSideLeafPasses sets how many times joints with one leaf and one joint
// child are revisited.
func WithSideLeafPasses(n int) Option {
	return func(o *Options) error {
		if n < 0 {
			return fmt.Errorf("%w: side leaf passes %d", ErrInvalidOption, n)
		}
		o.SideLeafPasses = n
		return nil
	}
}

// Result is a smoothed copy of a spiral tree together with its pseudo-roots.
type Result struct {
	tree   *spiral.Tree
	pseudo []int
	isPR   map[int]bool
}

// New smooths a copy of raw; raw itself is left untouched.
func New(raw *spiral.Tree, setters ...Option) (*Result, error) {
	opts := Options{
		Alpha:              defaultAlpha,
		MaxPseudoRootCount: defaultMaxPseudoRootCount,
		OverlapThreshold:   defaultOverlapThreshold,
		SideLeafPasses:     defaultSideLeafPasses,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}

	t := raw.Clone()
	newSmoother(t, opts).run(opts.SideLeafPasses)
	t.AggregateLeafs()

	r := &Result{tree: t, isPR: make(map[int]bool)}
	r.findPseudoRoots(opts.MaxPseudoRootCount)
	return r, nil
}

// findPseudoRoots descends from the root level by level and collects joints
// whose children open wider than a right angle.
func (r *Result) findPseudoRoots(limit int) {
	t := r.tree
	frontier := []int{t.Root}
	for depth := 0; depth < maxPseudoRootDepth && len(frontier) > 0; depth++ {
		var next []int
		for _, f := range frontier {
			for _, c := range t.Children(f) {
				if len(r.pseudo) >= limit {
					return
				}
				if r.isWide(c) {
					r.pseudo = append(r.pseudo, c)
					r.isPR[c] = true
					next = append(next, c)
				}
			}
		}
		frontier = next
	}
}

func (r *Result) isWide(id int) bool {
	t := r.tree
	n := t.Node(id)
	if n.Kind != spiral.KindJoint || t.NumChildren(id) != 2 {
		return false
	}
	a, b := t.Node(n.Plus).Point, t.Node(n.Minus).Point
	return geom.Cos(a.Sub(n.Point), b.Sub(n.Point)) < 0
}

// Tree returns the smoothed tree.
func (r *Result) Tree() *spiral.Tree {
	return r.tree
}

func (r *Result) Root() int {
	return r.tree.Root
}

// PseudoRoots returns the pseudo-root ids in the order they were found.
func (r *Result) PseudoRoots() []int {
	return slices.Clone(r.pseudo)
}

func (r *Result) IsPseudoRoot(id int) bool {
	return r.isPR[id]
}

// Parent returns the logical parent of id: its tree parent, or the root when
// that parent is a pseudo-root.
func (r *Result) Parent(id int) int {
	p := r.tree.Node(id).Parent
	if r.isPR[p] {
		return r.tree.Root
	}
	return p
}

// Offspring returns every node below the root except pseudo-roots, in
// breadth-first order.
func (r *Result) Offspring() []int {
	return r.Subtree(r.tree.Root)
}

// Subtree returns the descendants of id except pseudo-roots, in
// breadth-first order.
func (r *Result) Subtree(id int) []int {
	all := r.tree.Subtree(id)
	out := all[:0:0]
	for _, c := range all {
		if !r.isPR[c] {
			out = append(out, c)
		}
	}
	return out
}

// Ancestors returns the chain of parents above id, top-down, stopping before
// the nearest pseudo-root or the root.
func (r *Result) Ancestors(id int) []int {
	var out []int
	for p := r.tree.Node(id).Parent; p != spiral.None && p != r.tree.Root && !r.isPR[p]; p = r.tree.Node(p).Parent {
		out = append(out, p)
	}
	slices.Reverse(out)
	return out
}

// Leafs returns the leaf keys below id mapped to their weights.
func (r *Result) Leafs(id int) map[int]float64 {
	return r.tree.Node(id).Leafs
}

// Merge returns the smallest set of nodes whose leaf sets exactly cover keys.
// Unknown keys are ignored. The root and pseudo-roots are never returned.
func (r *Result) Merge(keys []int) []int {
	t := r.tree
	selected := make(map[int]bool, len(keys))
	for _, k := range keys {
		if k >= 0 && k < len(t.Leaves) {
			selected[k] = true
		}
	}
	sorted := make([]int, 0, len(selected))
	for k := range selected {
		sorted = append(sorted, k)
	}
	slices.Sort(sorted)

	remaining := make(map[int]bool, len(selected))
	for k := range selected {
		remaining[k] = true
	}
	var out []int
	for _, k := range sorted {
		if !remaining[k] {
			continue
		}
		n := t.Leaves[k]
		for {
			p := t.Node(n).Parent
			if p == spiral.None || p == t.Root || r.isPR[p] || !coveredBy(t.Node(p).Leafs, selected) {
				break
			}
			n = p
		}
		out = append(out, n)
		for lk := range t.Node(n).Leafs {
			delete(remaining, lk)
		}
	}
	return out
}

func coveredBy(leafs map[int]float64, set map[int]bool) bool {
	for k := range leafs {
		if !set[k] {
			return false
		}
	}
	return true
}
