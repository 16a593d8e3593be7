// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/2dChan/flowmap"
	"github.com/2dChan/flowmap/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	layoutFlags
	output string // output SVG path; derived from the input when empty
	width  int    // canvas width in px
	height int    // canvas height in px
	noHull bool   // skip the target hull backdrop
}

// renderCommand creates the render command writing a layout as SVG.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		width:  defaultWidth,
		height: defaultHeight,
	}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render the flows of a JSON input to SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.input(args)
			if err != nil {
				return err
			}
			output := opts.output
			if output == "" {
				output = outputPath(args)
			}
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), in, output, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output SVG file (default: input name with .svg)")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "canvas width")
	cmd.Flags().IntVar(&opts.height, "height", opts.height, "canvas height")
	cmd.Flags().BoolVar(&opts.noHull, "no-hull", false, "do not draw the target hull")

	return cmd
}

// outputPath derives the SVG path from the input file name.
func outputPath(args []string) string {
	if len(args) == 0 || args[0] == "-" {
		return appName + ".svg"
	}
	return strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".svg"
}

func (c *CLI) runRender(ctx context.Context, w io.Writer, in *Input, output string, opts *renderOpts) error {
	l, err := buildLayout(ctx, c.Logger, in, &opts.layoutFlags)
	if err != nil {
		return err
	}

	style := render.DefaultStyle()
	style.Width, style.Height = opts.width, opts.height
	if opts.noHull {
		style.HullStyle = ""
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := render.SVG(f, l, style); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	printSuccess(w, "Wrote %s", output)
	return nil
}

// buildLayout lays out in with the configuration and scale named by flags.
func buildLayout(ctx context.Context, logger *log.Logger, in *Input, flags *layoutFlags) (*flowmap.Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(flags.config)
	if err != nil {
		return nil, err
	}
	scale, err := parseScale(flags.scale, in.TotalWeight(), flags.maxWidth)
	if err != nil {
		return nil, err
	}

	prog := newProgress(logger)
	source, targets, weights := in.Points()
	l, err := flowmap.New(source, targets, weights,
		flowmap.WithConfig(cfg),
		flowmap.WithLogger(logger),
		flowmap.WithScale(scale),
	)
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Laid out %d targets", len(targets)))
	return l, nil
}
