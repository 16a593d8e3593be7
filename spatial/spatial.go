// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package spatial implements a range-query index over identified points,
// backed by two coordinate-sorted arrays.
package spatial

import (
	"slices"
	"sort"

	"github.com/golang/geo/r2"
)

type entry struct {
	v  float64
	id int
}

func compareEntry(a, b entry) int {
	switch {
	case a.v < b.v:
		return -1
	case a.v > b.v:
		return 1
	}
	return a.id - b.id
}

// Index answers axis-aligned range queries over a mutable set of points.
//
// NOTE: Point updates are O(n); the index is sized for a single flow tree.
type Index struct {
	xs  []entry
	ys  []entry
	pts map[int]r2.Point
}

// New returns an empty index.
func New() *Index {
	return &Index{pts: make(map[int]r2.Point)}
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return len(ix.pts)
}

// Point returns the indexed position of id.
func (ix *Index) Point(id int) (r2.Point, bool) {
	p, ok := ix.pts[id]
	return p, ok
}

// Insert adds id at p. Inserting an existing id moves it.
func (ix *Index) Insert(id int, p r2.Point) {
	if _, ok := ix.pts[id]; ok {
		ix.Remove(id)
	}
	ix.pts[id] = p
	ix.xs = insertEntry(ix.xs, entry{p.X, id})
	ix.ys = insertEntry(ix.ys, entry{p.Y, id})
}

// Remove deletes id from the index. Unknown ids are ignored.
func (ix *Index) Remove(id int) {
	p, ok := ix.pts[id]
	if !ok {
		return
	}
	delete(ix.pts, id)
	ix.xs = removeEntry(ix.xs, entry{p.X, id})
	ix.ys = removeEntry(ix.ys, entry{p.Y, id})
}

// Update moves id to p.
func (ix *Index) Update(id int, p r2.Point) {
	ix.Insert(id, p)
}

// Query returns the ids of all points inside r (bounds inclusive), sorted
// ascending.
func (ix *Index) Query(r r2.Rect) []int {
	if r.IsEmpty() || len(ix.pts) == 0 {
		return nil
	}
	xl, xh := span(ix.xs, r.X.Lo, r.X.Hi)
	yl, yh := span(ix.ys, r.Y.Lo, r.Y.Hi)
	cand := ix.xs[xl:xh]
	if yh-yl < xh-xl {
		cand = ix.ys[yl:yh]
	}

	var ids []int
	for _, e := range cand {
		if r.ContainsPoint(ix.pts[e.id]) {
			ids = append(ids, e.id)
		}
	}
	slices.Sort(ids)
	return ids
}

func span(es []entry, lo, hi float64) (int, int) {
	i := sort.Search(len(es), func(k int) bool { return es[k].v >= lo })
	j := sort.Search(len(es), func(k int) bool { return es[k].v > hi })
	if j < i {
		j = i
	}
	return i, j
}

func insertEntry(es []entry, e entry) []entry {
	i, _ := slices.BinarySearchFunc(es, e, compareEntry)
	return slices.Insert(es, i, e)
}

func removeEntry(es []entry, e entry) []entry {
	i, found := slices.BinarySearchFunc(es, e, compareEntry)
	if !found {
		return es
	}
	return slices.Delete(es, i, i+1)
}
