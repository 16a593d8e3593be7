// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const threeTargets = `{"source":{"x":0,"y":0},"targets":[{"x":100,"y":10},{"x":100,"y":-10,"weight":2},{"x":-40,"y":90}]}`

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestServer_Layout(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/layout", threeTargets)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /layout status = %d, want 200", resp.StatusCode)
	}

	var got layoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Paths) == 0 {
		t.Fatal("response has no paths")
	}
	keys := make(map[int]bool)
	for _, p := range got.Paths {
		if !strings.HasPrefix(p.D, "M ") {
			t.Errorf("path %d d = %q, want a move first", p.ID, p.D)
		}
		if p.Width <= 0 {
			t.Errorf("path %d width = %v, want > 0", p.ID, p.Width)
		}
		if p.Kind == "leaf" {
			for k := range p.Leafs {
				keys[k] = true
			}
		}
	}
	if len(keys) != 3 {
		t.Errorf("leaf paths cover keys %v, want 0, 1 and 2", keys)
	}
	if got.Bounds.Min.X > -40 || got.Bounds.Max.X < 100 || got.Bounds.Max.Y < 90 {
		t.Errorf("bounds = %+v do not contain the targets", got.Bounds)
	}
}

func TestServer_Render(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/render.svg?width=300&height=200&scale=linear", threeTargets)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /render.svg status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q, want image/svg+xml", ct)
	}
	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body.String(), `width="300" height="200"`) {
		t.Errorf("svg does not use the requested size:\n%.200s", body.String())
	}
}

func TestServer_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"malformed json", "/layout", `{"source":`, http.StatusBadRequest},
		{"unknown field", "/layout", `{"sinks":[]}`, http.StatusBadRequest},
		{"negative weight", "/layout", `{"source":{"x":0,"y":0},"targets":[{"x":1,"y":1,"weight":-1}]}`, http.StatusUnprocessableEntity},
		{"bad scale", "/layout?scale=cubic", threeTargets, http.StatusBadRequest},
		{"bad width", "/render.svg?width=-3", threeTargets, http.StatusBadRequest},
	}

	srv := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("POST %s status = %d, want %d", tt.path, resp.StatusCode, tt.want)
			}
			var e map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e["error"] == "" {
				t.Errorf("error body = %v, %v; want an error message", e, err)
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/layout")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /layout status = %d, want 405", resp.StatusCode)
	}
}

func TestRunServe_Shutdown(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- c.runServe(ctx, &serveOpts{
			layoutFlags: layoutFlags{scale: scaleSqrt, maxWidth: defaultMaxWidth},
			addr:        "127.0.0.1:0",
		})
	}()
	cancel()

	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Errorf("runServe() error = %v, want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runServe() did not return after cancel")
	}
}

// Helpers

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	c := New(&bytes.Buffer{}, LogDebug)
	srv := httptest.NewServer(newRouter(c.Logger, &layoutFlags{scale: scaleSqrt, maxWidth: defaultMaxWidth}))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}
