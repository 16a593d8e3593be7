// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package spiral builds the raw flow tree: a binary tree joining a source to
// weighted targets along logarithmic spirals, constructed greedily from the
// farthest target inwards.
package spiral

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"

	"github.com/2dChan/flowmap/internal/geom"
)

const (
	defaultAlpha            = s1.Angle(math.Pi / 10)
	defaultOverlapThreshold = 1.0
	defaultJitter           = 1e-6
)

var (
	ErrInvalidInput  = errors.New("spiral: invalid input")
	ErrInvalidOption = errors.New("spiral: invalid option")
)

type Options struct {
	Alpha              s1.Angle
	OverlapThreshold   float64
	WeightedJointPoint bool
	Seed               int64
}

type Option func(*Options) error

// WithAlpha sets the spiral angle. It must lie in (0, π/2).
func WithAlpha(alpha s1.Angle) Option {
	return func(o *Options) error {
		if !(alpha > 0 && alpha < math.Pi/2) {
			return fmt.Errorf("%w: alpha %v outside (0, π/2)", ErrInvalidOption, alpha.Radians())
		}
		o.Alpha = alpha
		return nil
	}
}

// WithOverlapThreshold sets the minimum distance in px kept between a joint
// and its children.
func WithOverlapThreshold(d float64) Option {
	return func(o *Options) error {
		if !(d >= 0) || math.IsInf(d, 0) {
			return fmt.Errorf("%w: overlap threshold %v", ErrInvalidOption, d)
		}
		o.OverlapThreshold = d
		return nil
	}
}

// WithWeightedJointPoint toggles the weight bias of joint angles.
func WithWeightedJointPoint(on bool) Option {
	return func(o *Options) error {
		o.WeightedJointPoint = on
		return nil
	}
}

// WithSeed sets the seed of the jitter applied to coincident targets.
func WithSeed(seed int64) Option {
	return func(o *Options) error {
		o.Seed = seed
		return nil
	}
}

// Build constructs the flow tree from src to targets. weights may be nil, in
// which case every target weighs 1. Leaf keys are target indices.
func Build(src r2.Point, targets []r2.Point, weights []float64, setters ...Option) (*Tree, error) {
	opts := Options{
		Alpha:              defaultAlpha,
		OverlapThreshold:   defaultOverlapThreshold,
		WeightedJointPoint: true,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	if err := validate(src, targets, weights); err != nil {
		return nil, err
	}

	b := &builder{
		opts: opts,
		tan:  math.Tan(opts.Alpha.Radians()),
		t: &Tree{
			Source: src,
			Root:   None,
			Leaves: make([]int, len(targets)),
		},
	}
	b.addLeaves(targets, weights)
	b.run()
	b.t.AggregateLeafs()
	return b.t, nil
}

func validate(src r2.Point, targets []r2.Point, weights []float64) error {
	if !geom.Finite(src) {
		return fmt.Errorf("%w: source %v", ErrInvalidInput, src)
	}
	if weights != nil && len(weights) != len(targets) {
		return fmt.Errorf("%w: %d weights for %d targets", ErrInvalidInput, len(weights), len(targets))
	}
	for i, p := range targets {
		if !geom.Finite(p) {
			return fmt.Errorf("%w: target %d at %v", ErrInvalidInput, i, p)
		}
	}
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: weight %d is %v", ErrInvalidInput, i, w)
		}
	}
	return nil
}

type builder struct {
	opts Options
	tan  float64
	t    *Tree
}

// addLeaves creates one leaf per target. Targets coinciding with an earlier
// target or with the source are moved by a seeded jitter.
func (b *builder) addLeaves(targets []r2.Point, weights []float64) {
	//nolint:gosec
	random := rand.New(rand.NewSource(b.opts.Seed))
	seen := map[r2.Point]bool{b.t.Source: true}
	for i, p := range targets {
		for seen[p] {
			p = p.Add(r2.Point{
				X: (random.Float64()*2 - 1) * defaultJitter * math.Max(1, math.Abs(p.X)),
				Y: (random.Float64()*2 - 1) * defaultJitter * math.Max(1, math.Abs(p.Y)),
			})
		}
		seen[p] = true

		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		b.t.Leaves[i] = b.t.AddNode(Node{
			Kind:   KindLeaf,
			Point:  p,
			Weight: w,
			Key:    i,
			Plus:   None,
			Minus:  None,
			Parent: None,
		})
	}
}

// run sweeps the leaves from the farthest inwards, joining wavefront
// neighbours whenever their joint lies beyond the next leaf.
func (b *builder) run() {
	leaves := slices.Clone(b.t.Leaves)
	slices.SortFunc(leaves, func(x, y int) int {
		nx, ny := b.t.Node(x), b.t.Node(y)
		switch {
		case nx.Radius > ny.Radius:
			return -1
		case nx.Radius < ny.Radius:
			return 1
		case nx.Theta < ny.Theta:
			return -1
		case nx.Theta > ny.Theta:
			return 1
		}
		return x - y
	})

	wf := newAngleList(b.t, b.candidate)
	next := 0
	for {
		c, ok := wf.Best()
		if next < len(leaves) {
			if !ok || c.radius < b.t.Node(leaves[next]).Radius {
				wf.Insert(leaves[next])
				next++
				continue
			}
		} else if wf.Len() < 2 {
			break
		}
		if !ok {
			c = b.fallback(wf)
		}
		b.join(wf, c)
	}
	b.finishRoot(wf)
}

// candidate computes where the inward spirals of right (turning
// counter-clockwise) and left (turning clockwise) meet.
func (b *builder) candidate(right, left *Node) candidate {
	c := candidate{right: right.ID, left: left.ID, hold: None}
	if right.Radius <= 0 || left.Radius <= 0 {
		c.ok = true
		c.theta = right.Theta
		return c
	}

	dTheta := normalizeAngle(left.Theta - right.Theta)
	dR := math.Log(right.Radius / left.Radius)
	limit := math.Pi / b.tan
	tp := (dTheta/b.tan + dR) / 2
	tm := (dTheta/b.tan - dR) / 2
	if tp*tm > 0 && tp < limit && tm < limit {
		c.ok = true
		c.theta = normalizeAngle(right.Theta + b.tan*tp)
		c.radius = right.Radius * math.Exp(-tp)
		return c
	}

	// The inner member lies in the other's spiral region: hold the outer one
	// at the inner radius so both start from the same circle.
	inner := math.Min(right.Radius, left.Radius)
	t := dTheta / (2 * b.tan)
	if t <= 0 || t >= limit {
		return c
	}
	c.ok = true
	c.theta = normalizeAngle(right.Theta + b.tan*t)
	c.radius = inner * math.Exp(-t)
	switch {
	case right.Radius > left.Radius:
		c.hold = right.ID
	case left.Radius > right.Radius:
		c.hold = left.ID
	}
	return c
}

// fallback joins the two leading wavefront members when no spiral pair is
// valid, which only happens for members sharing an angle.
func (b *builder) fallback(wf *angleList) candidate {
	right, left := wf.First()
	nr, nl := b.t.Node(right), b.t.Node(left)
	return candidate{
		right:  right,
		left:   left,
		radius: math.Min(nr.Radius, nl.Radius),
		theta:  nr.Theta,
		hold:   None,
		ok:     true,
	}
}

func (b *builder) join(wf *angleList, c candidate) {
	wf.Remove(c.right)
	wf.Remove(c.left)

	right, left := c.right, c.left
	if c.hold != None {
		held := b.hold(c.hold, math.Min(b.t.Node(right).Radius, b.t.Node(left).Radius))
		if c.hold == right {
			right = held
		} else {
			left = held
		}
	}

	nr, nl := b.t.Node(right), b.t.Node(left)
	theta := c.theta
	if b.opts.WeightedJointPoint && nr.Radius > 0 && nl.Radius > 0 {
		theta = b.weightedTheta(nr, nl, theta)
	}
	radius := c.radius
	p := PointAt(b.t.Source, radius, theta)
	thr := b.opts.OverlapThreshold
	if p.Sub(nr.Point).Norm() < thr || p.Sub(nl.Point).Norm() < thr {
		radius = math.Max(0, math.Min(radius, math.Min(nr.Radius, nl.Radius)-thr))
		p = PointAt(b.t.Source, radius, theta)
	}
	if radius == 0 {
		p = b.t.Source
	}

	j := b.t.AddNode(Node{
		Kind:   KindJoint,
		Point:  p,
		Weight: nr.Weight + nl.Weight,
		Key:    None,
		Plus:   left,
		Minus:  right,
		Parent: None,
	})
	b.t.Node(right).Parent = j
	b.t.Node(left).Parent = j
	wf.Insert(j)
}

// hold inserts a single-child joint on the ray of id at radius r. Members
// already within the overlap threshold of that circle are used as they are.
func (b *builder) hold(id int, r float64) int {
	n := b.t.Node(id)
	if n.Radius-r < b.opts.OverlapThreshold {
		return id
	}
	h := b.t.AddNode(Node{
		Kind:   KindJoint,
		Point:  PointAt(b.t.Source, r, n.Theta),
		Weight: n.Weight,
		Key:    None,
		Plus:   id,
		Minus:  None,
		Parent: None,
	})
	b.t.Node(id).Parent = h
	return h
}

// weightedTheta shifts the joint angle towards the heavier child. Joint
// children count double so existing bends are kept short.
func (b *builder) weightedTheta(right, left *Node, theta float64) float64 {
	wr, wl := right.Weight, left.Weight
	if right.Kind == KindJoint {
		wr *= 2
	}
	if left.Kind == KindJoint {
		wl *= 2
	}
	if wr+wl == 0 {
		return theta
	}
	f := wl / (wr + wl)
	span := normalizeAngle(left.Theta - right.Theta)
	a := normalizeAngle(theta - right.Theta)
	if a <= 0 || a >= span {
		return theta
	}
	return normalizeAngle(right.Theta + a + (f-0.5)*math.Min(a, span-a))
}

func (b *builder) finishRoot(wf *angleList) {
	if wf.Len() == 1 {
		last := wf.order[0]
		n := b.t.Node(last)
		if n.Kind == KindJoint && n.Radius == 0 {
			n.Kind = KindRoot
			b.t.Root = last
			return
		}
		b.t.Root = b.t.AddNode(Node{
			Kind:   KindRoot,
			Point:  b.t.Source,
			Key:    None,
			Plus:   last,
			Minus:  None,
			Parent: None,
		})
		b.t.Node(last).Parent = b.t.Root
		return
	}
	b.t.Root = b.t.AddNode(Node{
		Kind:   KindRoot,
		Point:  b.t.Source,
		Key:    None,
		Plus:   None,
		Minus:  None,
		Parent: None,
	})
}
