// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package spiral

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// None marks an absent node reference.
const None = -1

// Kind distinguishes leaves from branch points.
type Kind int

const (
	KindLeaf Kind = iota
	KindJoint
	KindRoot
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindJoint:
		return "joint"
	case KindRoot:
		return "root"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one vertex of a flow tree. Relations are stored as arena ids.
type Node struct {
	ID     int
	Kind   Kind
	Point  r2.Point
	Radius float64
	Theta  float64
	// Weight is the caller weight for a leaf and the sum of the children's
	// weights otherwise.
	Weight float64
	// Key is the leaf key (the target index), None for other kinds.
	Key int
	// Leafs maps every leaf key below the node (itself included) to its weight.
	Leafs map[int]float64

	Plus, Minus, Parent int
	Detached            bool
}

// Tree is an arena of nodes rooted at the source point.
type Tree struct {
	Source r2.Point
	Nodes  []Node
	Root   int
	// Leaves maps a leaf key to its node id.
	Leaves []int
}

// Node returns a pointer to the node with the given id.
func (t *Tree) Node(id int) *Node {
	if id < 0 || id >= len(t.Nodes) {
		panic(fmt.Sprintf("Node: id %d out of range [0 %d)", id, len(t.Nodes)))
	}
	return &t.Nodes[id]
}

// Children returns the present children of id, plus child first.
func (t *Tree) Children(id int) []int {
	n := t.Node(id)
	var cs []int
	if n.Plus != None {
		cs = append(cs, n.Plus)
	}
	if n.Minus != None {
		cs = append(cs, n.Minus)
	}
	return cs
}

// NumChildren returns the number of present children of id.
func (t *Tree) NumChildren(id int) int {
	return len(t.Children(id))
}

// Sign returns +1 when id is the plus child of its parent and -1 otherwise.
func (t *Tree) Sign(id int) float64 {
	p := t.Node(id).Parent
	if p != None && t.Node(p).Plus == id {
		return 1
	}
	return -1
}

// SetPoint moves id to p and refreshes its polar coordinates.
func (t *Tree) SetPoint(id int, p r2.Point) {
	n := t.Node(id)
	n.Point = p
	n.Radius, n.Theta = Polar(t.Source, p)
}

// ReplaceChild puts to into the slot of parent currently holding from.
func (t *Tree) ReplaceChild(parent, from, to int) {
	n := t.Node(parent)
	switch from {
	case n.Plus:
		n.Plus = to
	case n.Minus:
		n.Minus = to
	default:
		panic(fmt.Sprintf("ReplaceChild: %d is not a child of %d", from, parent))
	}
	if to != None {
		t.Node(to).Parent = parent
	}
}

// AddNode appends n to the arena and returns its id.
func (t *Tree) AddNode(n Node) int {
	n.ID = len(t.Nodes)
	n.Radius, n.Theta = Polar(t.Source, n.Point)
	t.Nodes = append(t.Nodes, n)
	return n.ID
}

// Offspring returns every attached node below the root in breadth-first order.
func (t *Tree) Offspring() []int {
	return t.Subtree(t.Root)
}

// Subtree returns the descendants of id (excluding id) in breadth-first order.
func (t *Tree) Subtree(id int) []int {
	var out []int
	queue := t.Children(id)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		out = append(out, c)
		queue = append(queue, t.Children(c)...)
	}
	return out
}

// Edges returns the [child, parent] pairs of the tree in breadth-first order.
func (t *Tree) Edges() [][2]int {
	off := t.Offspring()
	edges := make([][2]int, len(off))
	for i, id := range off {
		edges[i] = [2]int{id, t.Node(id).Parent}
	}
	return edges
}

// AggregateLeafs recomputes Leafs and Weight bottom-up for every attached
// node.
func (t *Tree) AggregateLeafs() {
	order := append([]int{t.Root}, t.Offspring()...)
	for i := len(order) - 1; i >= 0; i-- {
		n := t.Node(order[i])
		if n.Kind == KindLeaf {
			n.Leafs = map[int]float64{n.Key: n.Weight}
			continue
		}
		n.Leafs = make(map[int]float64)
		n.Weight = 0
		for _, c := range t.Children(n.ID) {
			cn := t.Node(c)
			for k, w := range cn.Leafs {
				n.Leafs[k] = w
			}
			n.Weight += cn.Weight
		}
	}
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		Source: t.Source,
		Nodes:  make([]Node, len(t.Nodes)),
		Root:   t.Root,
		Leaves: append([]int(nil), t.Leaves...),
	}
	copy(c.Nodes, t.Nodes)
	for i := range c.Nodes {
		if t.Nodes[i].Leafs == nil {
			continue
		}
		m := make(map[int]float64, len(t.Nodes[i].Leafs))
		for k, w := range t.Nodes[i].Leafs {
			m[k] = w
		}
		c.Nodes[i].Leafs = m
	}
	return c
}

// Polar returns the distance and the angle in [0, 2π) of p around src.
func Polar(src, p r2.Point) (float64, float64) {
	d := p.Sub(src)
	return d.Norm(), normalizeAngle(math.Atan2(d.Y, d.X))
}

// PointAt returns the point at polar coordinates (r, theta) around src.
func PointAt(src r2.Point, r, theta float64) r2.Point {
	return src.Add(r2.Point{X: r * math.Cos(theta), Y: r * math.Sin(theta)})
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
