// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cli

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
)

func TestRootCommand(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()

	if root.Use != appName {
		t.Errorf("root.Use = %q, want %q", root.Use, appName)
	}
	for _, name := range []string{"render", "inspect", "serve"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("root.Find(%q) = %v, %v", name, cmd, err)
		}
	}
}

func TestLayoutFlags(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	cmd := c.renderCommand()
	for _, name := range []string{"config", "random", "seed", "scale", "max-width"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("render is missing --%s", name)
		}
	}
	if got := cmd.Flags().Lookup("scale").DefValue; got != scaleSqrt {
		t.Errorf("--scale default = %q, want %q", got, scaleSqrt)
	}
}

func TestLayoutFlags_Input(t *testing.T) {
	f := layoutFlags{}
	if _, err := f.input(nil); err != errNoInput {
		t.Errorf("input(nil) error = %v, want errNoInput", err)
	}

	f.random = 7
	in, err := f.input(nil)
	if err != nil {
		t.Fatalf("input() with --random: %v", err)
	}
	if len(in.Targets) != 7 {
		t.Errorf("len(in.Targets) = %d, want 7", len(in.Targets))
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)

	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output at info level: %q", buf.String())
	}
	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("debug output missing after SetLogLevel(%v)", log.DebugLevel)
	}
}
