// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package flowmap lays out flow maps: width-weighted curved routes from one
// source to many targets, merged into a spiral tree so that flows share
// trunks instead of crossing.
package flowmap

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"

	"github.com/2dChan/flowmap/smooth"
	"github.com/2dChan/flowmap/spiral"
)

const (
	defaultAlpha              = s1.Angle(math.Pi / 10)
	defaultMaxPseudoRootCount = 3
	defaultOverlapThreshold   = 1.0
	defaultSideLeafPasses     = 2
	defaultCurveFraction      = 0.45
)

var (
	// ErrInvalidInput reports NaN or infinite coordinates, negative weights
	// or a weight count that does not match the targets.
	ErrInvalidInput  = spiral.ErrInvalidInput
	ErrInvalidOption = errors.New("flowmap: invalid option")
)

// Config holds the tunables of a layout.
type Config struct {
	// Alpha is the spiral angle in radians. Smaller values give straighter,
	// later-merging flows.
	Alpha s1.Angle `toml:"alpha"`

	// OverlapThreshold is the minimum distance in px kept between a joint and
	// its children.
	OverlapThreshold float64 `toml:"overlap_threshold"`

	MaxPseudoRootCount int     `toml:"max_pseudo_root_count"`
	WeightedJointPoint bool    `toml:"weighted_joint_point"`
	SideLeafPasses     int     `toml:"side_leaf_passes"`
	CurveFraction      float64 `toml:"curve_fraction"`
	Seed               int64   `toml:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Alpha:              defaultAlpha,
		MaxPseudoRootCount: defaultMaxPseudoRootCount,
		OverlapThreshold:   defaultOverlapThreshold,
		WeightedJointPoint: true,
		SideLeafPasses:     defaultSideLeafPasses,
		CurveFraction:      defaultCurveFraction,
	}
}

// Validate reports the first out-of-range field of c.
func (c Config) Validate() error {
	switch {
	case !(c.Alpha > 0 && c.Alpha < math.Pi/2):
		return fmt.Errorf("%w: alpha %v outside (0, π/2)", ErrInvalidOption, c.Alpha.Radians())
	case c.MaxPseudoRootCount < 0:
		return fmt.Errorf("%w: max pseudo-root count %d", ErrInvalidOption, c.MaxPseudoRootCount)
	case !(c.OverlapThreshold >= 0) || math.IsInf(c.OverlapThreshold, 0):
		return fmt.Errorf("%w: overlap threshold %v", ErrInvalidOption, c.OverlapThreshold)
	case c.SideLeafPasses < 0:
		return fmt.Errorf("%w: side leaf passes %d", ErrInvalidOption, c.SideLeafPasses)
	case !(c.CurveFraction >= 0 && c.CurveFraction <= 0.5):
		return fmt.Errorf("%w: curve fraction %v outside [0, 0.5]", ErrInvalidOption, c.CurveFraction)
	}
	return nil
}

type Options struct {
	Config Config
	Logger *log.Logger
	Scale  ScaleFunc
}

type Option func(*Options) error

func WithConfig(c Config) Option {
	return func(o *Options) error {
		if err := c.Validate(); err != nil {
			return err
		}
		o.Config = c
		return nil
	}
}

func WithAlpha(alpha s1.Angle) Option {
	return func(o *Options) error {
		c := o.Config
		c.Alpha = alpha
		return WithConfig(c)(o)
	}
}

func WithMaxPseudoRootCount(n int) Option {
	return func(o *Options) error {
		c := o.Config
		c.MaxPseudoRootCount = n
		return WithConfig(c)(o)
	}
}

func WithOverlapThreshold(d float64) Option {
	return func(o *Options) error {
		c := o.Config
		c.OverlapThreshold = d
		return WithConfig(c)(o)
	}
}

func WithWeightedJointPoint(on bool) Option {
	return func(o *Options) error {
		o.Config.WeightedJointPoint = on
		return nil
	}
}

func WithSideLeafPasses(n int) Option {
	return func(o *Options) error {
		c := o.Config
		c.SideLeafPasses = n
		return WithConfig(c)(o)
	}
}

// WithCurveFraction sets the share of each edge, at most one half, that the
// curve through a joint may use.
func WithCurveFraction(f float64) Option {
	return func(o *Options) error {
		c := o.Config
		c.CurveFraction = f
		return WithConfig(c)(o)
	}
}

// WithSeed sets the seed of the jitter applied to coincident targets.
func WithSeed(seed int64) Option {
	return func(o *Options) error {
		o.Config.Seed = seed
		return nil
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *Options) error {
		if l == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidOption)
		}
		o.Logger = l
		return nil
	}
}

// WithScale sets the initial weight to width mapping.
func WithScale(scale ScaleFunc) Option {
	return func(o *Options) error {
		if scale == nil {
			return fmt.Errorf("%w: nil scale", ErrInvalidOption)
		}
		o.Scale = scale
		return nil
	}
}

// State tells whether the path widths still match the last build.
type State int

const (
	StateBuilt State = iota + 1
	StateRescaled
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateRescaled:
		return "rescaled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Layout is a built flow map. Its topology is fixed; only widths and the
// projection of the emitted commands change after New.
type Layout struct {
	source  r2.Point
	targets []r2.Point
	weights []float64
	opts    Options

	raw    *spiral.Tree
	result *smooth.Result
	paths  []*Path
	byID   map[int]*Path
	state  State
}

// New builds the layout of the flows from source to targets. weights may be
// nil, in which case every target weighs 1. Leaf keys are target indices.
func New(source r2.Point, targets []r2.Point, weights []float64, setters ...Option) (*Layout, error) {
	opts := Options{
		Config: DefaultConfig(),
		Scale:  Identity,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	l := &Layout{
		source:  source,
		targets: slices.Clone(targets),
		weights: slices.Clone(weights),
		opts:    opts,
	}
	if err := l.Build(nil); err != nil {
		return nil, err
	}
	return l, nil
}

// Build reruns the whole pipeline from the stored inputs and sets the widths
// with scale, or with the last used scale when scale is nil.
func (l *Layout) Build(scale ScaleFunc) error {
	if scale != nil {
		l.opts.Scale = scale
	}
	start := time.Now()
	c := l.opts.Config

	raw, err := spiral.Build(l.source, l.targets, l.weights,
		spiral.WithAlpha(c.Alpha),
		spiral.WithOverlapThreshold(c.OverlapThreshold),
		spiral.WithWeightedJointPoint(c.WeightedJointPoint),
		spiral.WithSeed(c.Seed),
	)
	if err != nil {
		return err
	}
	result, err := smooth.New(raw,
		smooth.WithAlpha(c.Alpha),
		smooth.WithMaxPseudoRootCount(c.MaxPseudoRootCount),
		smooth.WithOverlapThreshold(c.OverlapThreshold),
		smooth.WithSideLeafPasses(c.SideLeafPasses),
	)
	if err != nil {
		return err
	}

	paths := buildPaths(result, c.CurveFraction)
	byID := make(map[int]*Path, len(paths))
	for _, p := range paths {
		p.SetWidth(l.opts.Scale)
		byID[p.ID] = p
	}
	l.raw, l.result, l.paths, l.byID = raw, result, paths, byID
	l.state = StateBuilt

	l.opts.Logger.Debug("built flow layout",
		"targets", len(l.targets),
		"nodes", len(result.Tree().Offspring())+1,
		"pseudoRoots", len(result.PseudoRoots()),
		"paths", len(paths),
		"elapsed", time.Since(start),
	)
	return nil
}

// Paths returns the paths in breadth-first order. A non-nil scale first
// resets every width.
func (l *Layout) Paths(scale ScaleFunc) []*Path {
	if scale != nil {
		l.opts.Scale = scale
		for _, p := range l.paths {
			p.SetWidth(scale)
		}
		l.state = StateRescaled
	}
	return slices.Clone(l.paths)
}

// Path returns the path of the node with the given id.
func (l *Layout) Path(id int) (*Path, bool) {
	p, ok := l.byID[id]
	return p, ok
}

// Subroots returns the fewest paths whose leaves are exactly keys.
func (l *Layout) Subroots(keys []int) []*Path {
	return l.lookup(l.result.Merge(keys))
}

// Flow returns every path needed to draw p with its trunk and its branches:
// the ancestors of p top-down, p itself and all paths below it.
func (l *Layout) Flow(p *Path) []*Path {
	ids := l.result.Ancestors(p.ID)
	ids = append(ids, p.ID)
	ids = append(ids, l.result.Subtree(p.ID)...)
	return l.lookup(ids)
}

func (l *Layout) lookup(ids []int) []*Path {
	out := make([]*Path, 0, len(ids))
	for _, id := range ids {
		if p, ok := l.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Visit calls fn on every node of the smoothed tree, pseudo-roots included,
// in pre-order.
func (l *Layout) Visit(fn func(spiral.Node)) {
	t := l.result.Tree()
	stack := []int{t.Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(*t.Node(id))
		cs := t.Children(id)
		for i := len(cs) - 1; i >= 0; i-- {
			stack = append(stack, cs[i])
		}
	}
}

func (l *Layout) State() State {
	return l.state
}

// Scale returns the scale the widths were last set with.
func (l *Layout) Scale() ScaleFunc {
	return l.opts.Scale
}

// Config returns the configuration the layout was built with.
func (l *Layout) Config() Config {
	return l.opts.Config
}

// Tree returns the raw spiral tree, before smoothing.
func (l *Layout) Tree() *spiral.Tree {
	return l.raw
}

func (l *Layout) Result() *smooth.Result {
	return l.result
}

// Source returns the source point.
func (l *Layout) Source() r2.Point {
	return l.source
}

// Bounds returns the rectangle spanned by the source and every tree node.
func (l *Layout) Bounds() r2.Rect {
	return bounds(l.result.Tree())
}
