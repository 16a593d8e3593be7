// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cli

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"

	"github.com/2dChan/flowmap"
)

const (
	scaleLinear = "linear"
	scaleSqrt   = "sqrt"
	scaleLog    = "log"
)

// loadConfig reads a TOML layout configuration on top of the defaults. An
// empty path yields the defaults. Keys follow the flowmap.Config tags:
//
//	alpha = 0.25
//	max_pseudo_root_count = 2
//	curve_fraction = 0.4
func loadConfig(path string) (flowmap.Config, error) {
	cfg := flowmap.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// parseScale returns the width scale named by name, mapping total to
// maxWidth px.
func parseScale(name string, total, maxWidth float64) (flowmap.ScaleFunc, error) {
	if total <= 0 {
		total = 1
	}
	switch name {
	case scaleLinear:
		return func(w float64) float64 { return w / total * maxWidth }, nil
	case scaleSqrt:
		return func(w float64) float64 { return math.Sqrt(w/total) * maxWidth }, nil
	case scaleLog:
		return func(w float64) float64 { return math.Log1p(w) / math.Log1p(total) * maxWidth }, nil
	}
	return nil, fmt.Errorf("invalid scale: %s (must be '%s', '%s' or '%s')", name, scaleLinear, scaleSqrt, scaleLog)
}
