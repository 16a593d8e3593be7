// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides seeded generators of flow targets for tests and
// examples.

package utils

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
)

// GenerateRandomTargets generates cnt targets uniformly distributed inside
// bounds, each with a weight in [1, 10).
// The seed parameter ensures reproducibility.
func GenerateRandomTargets(cnt int, seed int64, bounds r2.Rect) ([]r2.Point, []float64) {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	targets := make([]r2.Point, cnt)
	weights := make([]float64, cnt)

	for i := range cnt {
		targets[i] = r2.Point{
			X: bounds.X.Lo + random.Float64()*bounds.X.Length(),
			Y: bounds.Y.Lo + random.Float64()*bounds.Y.Length(),
		}
		weights[i] = 1 + random.Float64()*9
	}

	return targets, weights
}

// GenerateRingTargets generates cnt targets at random angles on the annulus
// between rMin and rMax around center, each with a weight in [1, 10).
func GenerateRingTargets(cnt int, seed int64, center r2.Point, rMin, rMax float64) ([]r2.Point, []float64) {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	targets := make([]r2.Point, cnt)
	weights := make([]float64, cnt)

	for i := range cnt {
		theta := random.Float64() * 2 * math.Pi
		r := rMin + random.Float64()*(rMax-rMin)
		targets[i] = center.Add(r2.Point{X: r * math.Cos(theta), Y: r * math.Sin(theta)})
		weights[i] = 1 + random.Float64()*9
	}

	return targets, weights
}
