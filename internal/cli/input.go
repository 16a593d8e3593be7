// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r2"

	"github.com/2dChan/flowmap/utils"
)

var errNoInput = errors.New("no input: pass a JSON file or --random N")

// Point is a position in px.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Target is a destination with an optional weight (1 when omitted).
type Target struct {
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Weight *float64 `json:"weight,omitempty"`
}

// Input is the JSON document read by render, inspect and serve:
//
//	{"source": {"x": 0, "y": 0}, "targets": [{"x": 10, "y": 5, "weight": 2}]}
type Input struct {
	Source  Point    `json:"source"`
	Targets []Target `json:"targets"`
}

// DecodeInput reads an Input from r, rejecting unknown fields.
func DecodeInput(r io.Reader) (*Input, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var in Input
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return &in, nil
}

// LoadInput reads an Input from the file at path, or from stdin for "-".
func LoadInput(path string) (*Input, error) {
	if path == "-" {
		return DecodeInput(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeInput(f)
}

// RandomInput places cnt weighted targets uniformly on a width × height canvas
// with the source at its centre.
func RandomInput(cnt int, seed int64, width, height float64) *Input {
	bounds := r2.RectFromPoints(r2.Point{}, r2.Point{X: width, Y: height})
	pts, weights := utils.GenerateRandomTargets(cnt, seed, bounds)
	in := &Input{
		Source:  Point{X: width / 2, Y: height / 2},
		Targets: make([]Target, cnt),
	}
	for i, p := range pts {
		w := weights[i]
		in.Targets[i] = Target{X: p.X, Y: p.Y, Weight: &w}
	}
	return in
}

// Points converts in to layout arguments. weights is nil when no target
// carries a weight.
func (in *Input) Points() (source r2.Point, targets []r2.Point, weights []float64) {
	source = r2.Point{X: in.Source.X, Y: in.Source.Y}
	targets = make([]r2.Point, len(in.Targets))
	weighted := false
	for i, t := range in.Targets {
		targets[i] = r2.Point{X: t.X, Y: t.Y}
		weighted = weighted || t.Weight != nil
	}
	if !weighted {
		return source, targets, nil
	}
	weights = make([]float64, len(in.Targets))
	for i, t := range in.Targets {
		weights[i] = 1
		if t.Weight != nil {
			weights[i] = *t.Weight
		}
	}
	return source, targets, weights
}

// TotalWeight returns the summed weight of all targets.
func (in *Input) TotalWeight() float64 {
	var sum float64
	for _, t := range in.Targets {
		if t.Weight != nil {
			sum += *t.Weight
		} else {
			sum++
		}
	}
	return sum
}
