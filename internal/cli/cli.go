// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package cli implements the flowmap command-line interface.
//
// # Commands
//
//   - render: lay out flows from a JSON input (or random targets) and write SVG
//   - inspect: print the tree statistics of a layout
//   - serve: answer layout and render requests over HTTP
//
// All commands support --verbose (-v) for debug-level logging and --config
// for a TOML file overriding the layout defaults.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	appName = "flowmap"

	defaultWidth    = 1200
	defaultHeight   = 800
	defaultMaxWidth = 24
	defaultScale    = scaleSqrt
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "flowmap lays out origin-destination flows as spiral trees",
		Long:         `flowmap merges the flows from one source to many targets into a spiral tree, smooths it around nearby targets and draws weight-scaled ribbons.`,
		SilenceUsage: true,
	}

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())

	return root
}

// layoutFlags are shared by every command that builds a layout.
type layoutFlags struct {
	config   string
	random   int
	seed     int64
	scale    string
	maxWidth float64
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "TOML file overriding the layout defaults")
	cmd.Flags().IntVar(&f.random, "random", 0, "lay out this many random targets instead of reading a file")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "seed for --random")
	cmd.Flags().StringVar(&f.scale, "scale", defaultScale, "weight to width scale: linear, sqrt, log")
	cmd.Flags().Float64Var(&f.maxWidth, "max-width", defaultMaxWidth, "width in px of the widest trunk")
}

// input returns the flows named by args, or random ones with --random.
func (f *layoutFlags) input(args []string) (*Input, error) {
	if f.random > 0 {
		return RandomInput(f.random, f.seed, defaultWidth, defaultHeight), nil
	}
	if len(args) == 0 {
		return nil, errNoInput
	}
	return LoadInput(args[0])
}
