// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package flowmap

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"

	"github.com/2dChan/flowmap/internal/geom"
	"github.com/2dChan/flowmap/spiral"
)

// ScaleFunc maps a flow weight to a drawn width in px. It should be monotonic
// non-decreasing.
type ScaleFunc func(weight float64) float64

// Projector re-projects a layout point, e.g. to fit a canvas or follow a zoom.
type Projector func(r2.Point) r2.Point

// Identity is the default ScaleFunc.
func Identity(w float64) float64 {
	return w
}

type Op int

const (
	OpMoveTo Op = iota
	OpLineTo
	OpCurveTo
)

func (o Op) String() string {
	switch o {
	case OpMoveTo:
		return "M"
	case OpLineTo:
		return "L"
	case OpCurveTo:
		return "Q"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Command is a single draw operation. Ctrl is only set for OpCurveTo.
type Command struct {
	Op   Op
	Ctrl r2.Point
	To   r2.Point
}

// String formats c as SVG path data.
func (c Command) String() string {
	if c.Op == OpCurveTo {
		return fmt.Sprintf("%s %s %s %s %s", c.Op, num(c.Ctrl.X), num(c.Ctrl.Y), num(c.To.X), num(c.To.Y))
	}
	return fmt.Sprintf("%s %s %s", c.Op, num(c.To.X), num(c.To.Y))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Offset separates sibling ribbons sharing a parent edge. Dir is the unit
// normal of the parent edge, Sign tells the plus (+1) from the minus (-1)
// child.
type Offset struct {
	Dir    r2.Point
	Length float64
	Sign   float64
}

// Vector returns the displacement applied to the shared part of the path.
func (o Offset) Vector() r2.Point {
	return o.Dir.Mul(o.Sign * o.Length)
}

// Path is the drawable edge of one tree node towards its parent.
type Path struct {
	ID   int
	Kind spiral.Kind
	// Leafs maps the keys of the leaves fed by this path to their weights.
	Leafs        map[int]float64
	Weight       float64
	ParentWeight float64
	Width        float64
	Offset       Offset

	node, parent, grand r2.Point
	// startFrac moves the start of a joint path off the joint, where the
	// curves of its children end.
	startFrac float64
	frac      float64
	curved    bool
	// trunk runs from the grandparent up to the root when the parent is a
	// pseudo-root.
	trunk []r2.Point
}

// Curved reports whether the path bends through its parent.
func (p *Path) Curved() bool {
	return p.curved
}

// SetWidth recomputes the drawn width and the offset length from scale.
func (p *Path) SetWidth(scale ScaleFunc) {
	if scale == nil {
		scale = Identity
	}
	p.Width = scale(p.Weight)
	p.Offset.Length = 0
	if p.curved {
		p.Offset.Length = math.Max(0, (scale(p.ParentWeight)-p.Width)/2)
	}
}

// Commands returns the draw operations of the path. proj, when not nil, is
// applied to the tree points before the curve geometry is derived.
func (p *Path) Commands(proj Projector) []Command {
	if proj == nil {
		proj = func(q r2.Point) r2.Point { return q }
	}
	n, par := proj(p.node), proj(p.parent)
	start := geom.Lerp(n, par, p.startFrac)
	if !p.curved {
		return []Command{
			{Op: OpMoveTo, To: start},
			{Op: OpLineTo, To: par},
		}
	}

	g := proj(p.grand)
	off := par.Sub(g).Normalize().Ortho().Mul(p.Offset.Sign * p.Offset.Length)
	cmds := []Command{
		{Op: OpMoveTo, To: start},
		{Op: OpLineTo, To: geom.Lerp(par, n, p.frac)},
		{Op: OpCurveTo, Ctrl: par.Add(off), To: geom.Lerp(par, g, p.frac).Add(off)},
	}
	for _, q := range p.trunk {
		cmds = append(cmds, Command{Op: OpLineTo, To: proj(q).Add(off)})
	}
	return cmds
}

// D returns the path as SVG path data.
func (p *Path) D(proj Projector) string {
	cmds := p.Commands(proj)
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Hull returns the control triangle of the curve: its two ends and the
// control point. ok is false for straight paths.
func (p *Path) Hull() (hull [3]r2.Point, ok bool) {
	if !p.curved {
		return hull, false
	}
	return [3]r2.Point{
		geom.Lerp(p.parent, p.node, p.frac),
		p.parent,
		geom.Lerp(p.parent, p.grand, p.frac),
	}, true
}

// Points returns the tree points the path runs through, node first.
func (p *Path) Points() []r2.Point {
	pts := []r2.Point{p.node, p.parent}
	if p.curved {
		pts = append(pts, p.grand)
		if len(p.trunk) > 1 {
			pts = append(pts, p.trunk[1:]...)
		}
	}
	return pts
}
