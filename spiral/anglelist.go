// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package spiral

import (
	"container/heap"
	"slices"
)

// candidate is the would-be joint of an angularly adjacent pair.
type candidate struct {
	right, left int
	radius      float64
	theta       float64
	// hold is the member that must first be held at the other's radius, or
	// None when the spirals meet directly.
	hold int
	ok   bool
	seq  int
}

type heapItem struct {
	right  int
	seq    int
	radius float64
}

type candHeap []heapItem

func (h candHeap) Len() int { return len(h) }
func (h candHeap) Less(i, j int) bool {
	if h[i].radius != h[j].radius {
		return h[i].radius > h[j].radius
	}
	return h[i].seq < h[j].seq
}
func (h candHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *candHeap) Push(x any)   { *h = append(*h, x.(heapItem)) }
func (h *candHeap) Pop() any {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// angleList is the wavefront: active nodes ordered by angle around the
// source, with the merge candidate of every adjacent pair cached by its right
// (smaller angle) member.
type angleList struct {
	t     *Tree
	merge func(right, left *Node) candidate
	order []int
	cands map[int]candidate
	h     candHeap
	seq   int
}

func newAngleList(t *Tree, merge func(right, left *Node) candidate) *angleList {
	return &angleList{t: t, merge: merge, cands: make(map[int]candidate)}
}

func (l *angleList) Len() int {
	return len(l.order)
}

func (l *angleList) compare(a, b int) int {
	na, nb := l.t.Node(a), l.t.Node(b)
	switch {
	case na.Theta < nb.Theta:
		return -1
	case na.Theta > nb.Theta:
		return 1
	case na.Radius < nb.Radius:
		return -1
	case na.Radius > nb.Radius:
		return 1
	}
	return a - b
}

func (l *angleList) index(id int) int {
	i, found := slices.BinarySearchFunc(l.order, id, l.compare)
	if !found {
		panic("angleList: node not in wavefront")
	}
	return i
}

// Neighbors returns the circular predecessor and successor of id.
func (l *angleList) Neighbors(id int) (int, int) {
	n := len(l.order)
	i := l.index(id)
	return l.order[(i+n-1)%n], l.order[(i+1)%n]
}

func (l *angleList) Insert(id int) {
	i, _ := slices.BinarySearchFunc(l.order, id, l.compare)
	l.order = slices.Insert(l.order, i, id)
	if len(l.order) < 2 {
		return
	}
	prev, _ := l.Neighbors(id)
	l.refresh(prev)
	l.refresh(id)
}

func (l *angleList) Remove(id int) {
	i := l.index(id)
	l.order = slices.Delete(l.order, i, i+1)
	delete(l.cands, id)
	if len(l.order) < 2 {
		clear(l.cands)
		return
	}
	n := len(l.order)
	l.refresh(l.order[(i+n-1)%n])
}

func (l *angleList) refresh(right int) {
	_, left := l.Neighbors(right)
	c := l.merge(l.t.Node(right), l.t.Node(left))
	l.seq++
	c.seq = l.seq
	l.cands[right] = c
	if c.ok {
		heap.Push(&l.h, heapItem{right: right, seq: c.seq, radius: c.radius})
	}
}

// Best returns the valid candidate whose joint lies farthest from the source.
func (l *angleList) Best() (candidate, bool) {
	for l.h.Len() > 0 {
		top := l.h[0]
		c, ok := l.cands[top.right]
		if ok && c.seq == top.seq {
			return c, true
		}
		heap.Pop(&l.h)
	}
	return candidate{}, false
}

// First returns the two leading members of the wavefront.
func (l *angleList) First() (int, int) {
	return l.order[0], l.order[1]
}
