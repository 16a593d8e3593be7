// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/2dChan/flowmap"
	"github.com/2dChan/flowmap/spiral"
)

type inspectOpts struct {
	layoutFlags
	paths bool // list every path with its SVG data
}

// inspectCommand creates the inspect command summarising a layout.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Print the tree statistics of a layout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.input(args)
			if err != nil {
				return err
			}
			return c.runInspect(cmd.Context(), cmd.OutOrStdout(), in, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.paths, "paths", false, "list every path")

	return cmd
}

// layoutStats are the counts printed by inspect.
type layoutStats struct {
	Targets     int
	Nodes       int
	Joints      int
	Bends       int
	PseudoRoots int
	Paths       int
	Curved      int
	Weight      float64
}

func statsOf(l *flowmap.Layout) layoutStats {
	var s layoutStats
	tree := l.Result().Tree()
	s.Targets = len(tree.Leaves)
	l.Visit(func(n spiral.Node) {
		s.Nodes++
		if n.Kind != spiral.KindJoint {
			return
		}
		switch tree.NumChildren(n.ID) {
		case 1:
			s.Bends++
		case 2:
			s.Joints++
		}
	})
	s.PseudoRoots = len(l.Result().PseudoRoots())
	for _, p := range l.Paths(nil) {
		s.Paths++
		if p.Curved() {
			s.Curved++
		}
	}
	s.Weight = tree.Node(tree.Root).Weight
	return s
}

func (c *CLI) runInspect(ctx context.Context, w io.Writer, in *Input, opts *inspectOpts) error {
	l, err := buildLayout(ctx, c.Logger, in, &opts.layoutFlags)
	if err != nil {
		return err
	}

	s := statsOf(l)
	cfg := l.Config()
	printTitle(w, "Flow layout")
	printKeyValue(w, "targets", s.Targets)
	printKeyValue(w, "nodes", s.Nodes)
	printKeyValue(w, "joints", s.Joints)
	printKeyValue(w, "bends", s.Bends)
	printKeyValue(w, "pseudo-roots", s.PseudoRoots)
	printKeyValue(w, "paths", fmt.Sprintf("%d (%d curved)", s.Paths, s.Curved))
	printKeyValue(w, "total weight", s.Weight)
	printKeyValue(w, "alpha", fmt.Sprintf("%.4f rad", cfg.Alpha.Radians()))
	b := l.Bounds()
	printKeyValue(w, "bounds", fmt.Sprintf("[%.1f, %.1f] × [%.1f, %.1f]", b.X.Lo, b.X.Hi, b.Y.Lo, b.Y.Hi))

	if opts.paths {
		for _, p := range l.Paths(nil) {
			printDetail(w, "%d %s w=%.2f width=%.2f %s", p.ID, p.Kind, p.Weight, p.Width, p.D(nil))
		}
	}
	return nil
}
