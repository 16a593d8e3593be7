// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package spatial

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
)

func TestIndex_Query(t *testing.T) {
	ix := New()
	pts := []r2.Point{
		{X: 0, Y: 0},
		{X: 5, Y: 5},
		{X: 10, Y: 0},
		{X: 5, Y: -5},
		{X: 5, Y: 5},
	}
	for i, p := range pts {
		ix.Insert(i, p)
	}

	tests := []struct {
		name string
		r    r2.Rect
		want []int
	}{
		{"all", r2.RectFromPoints(r2.Point{X: -1, Y: -10}, r2.Point{X: 11, Y: 10}), []int{0, 1, 2, 3, 4}},
		{"duplicates", r2.RectFromPoints(r2.Point{X: 4, Y: 4}, r2.Point{X: 6, Y: 6}), []int{1, 4}},
		{"inclusive bounds", r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 10, Y: 0}), []int{0, 2}},
		{"empty area", r2.RectFromPoints(r2.Point{X: 20, Y: 20}, r2.Point{X: 30, Y: 30}), nil},
		{"empty rect", r2.EmptyRect(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.Query(tt.r)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ix.Query(%v) mismatch (-want +got):\n%s", tt.r, diff)
			}
		})
	}
}

func TestIndex_UpdateRemove(t *testing.T) {
	ix := New()
	ix.Insert(1, r2.Point{X: 1, Y: 1})
	ix.Insert(2, r2.Point{X: 2, Y: 2})

	ix.Update(1, r2.Point{X: 50, Y: 50})
	if got := ix.Query(r2.RectFromPoints(r2.Point{}, r2.Point{X: 3, Y: 3})); !slices.Equal(got, []int{2}) {
		t.Errorf("after Update, ix.Query(...) = %v, want [2]", got)
	}
	if p, ok := ix.Point(1); !ok || p != (r2.Point{X: 50, Y: 50}) {
		t.Errorf("ix.Point(1) = %v, %v, want (50,50), true", p, ok)
	}

	ix.Remove(2)
	ix.Remove(42)
	if got := ix.Len(); got != 1 {
		t.Errorf("ix.Len() = %v, want 1", got)
	}
	if _, ok := ix.Point(2); ok {
		t.Errorf("ix.Point(2) ok = true after Remove, want false")
	}
}

func TestIndex_MatchesLinearScan(t *testing.T) {
	//nolint:gosec
	random := rand.New(rand.NewSource(7))
	ix := New()
	pts := make([]r2.Point, 500)
	for i := range pts {
		pts[i] = r2.Point{X: random.Float64() * 100, Y: random.Float64() * 100}
		ix.Insert(i, pts[i])
	}
	for q := range 50 {
		a := r2.Point{X: random.Float64() * 100, Y: random.Float64() * 100}
		b := r2.Point{X: random.Float64() * 100, Y: random.Float64() * 100}
		r := r2.RectFromPoints(a, b)
		var want []int
		for i, p := range pts {
			if r.ContainsPoint(p) {
				want = append(want, i)
			}
		}
		if diff := cmp.Diff(want, ix.Query(r)); diff != "" {
			t.Errorf("query %d mismatch (-want +got):\n%s", q, diff)
		}
	}
}

func BenchmarkIndex_Query(b *testing.B) {
	for _, n := range []int{1e+2, 1e+3, 1e+4} {
		b.Run(fmt.Sprintf("N%d", n), func(b *testing.B) {
			//nolint:gosec
			random := rand.New(rand.NewSource(0))
			ix := New()
			for i := range n {
				ix.Insert(i, r2.Point{X: random.Float64(), Y: random.Float64()})
			}
			r := r2.RectFromPoints(r2.Point{X: 0.4, Y: 0.4}, r2.Point{X: 0.6, Y: 0.6})

			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				ix.Query(r)
			}
		})
	}
}
