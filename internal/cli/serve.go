// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/2dChan/flowmap"
	"github.com/2dChan/flowmap/render"
)

const (
	defaultAddr     = ":8080"
	maxRequestBytes = 8 << 20
	shutdownTimeout = 5 * time.Second
)

type serveOpts struct {
	layoutFlags
	addr string
}

// serveCommand creates the serve command answering layout requests over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: defaultAddr}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts and SVG renders over HTTP",
		Long: `Serve answers POST /layout with the JSON paths of a layout and
POST /render.svg with its SVG drawing. Both take the same JSON input as render.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	// Fail on a bad config before listening.
	if _, err := loadConfig(opts.config); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newRouter(c.Logger, &opts.layoutFlags),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		c.Logger.Info("Listening", "addr", opts.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// server handles the HTTP routes; every request lays out its own input.
type server struct {
	logger *log.Logger
	flags  *layoutFlags
}

func newRouter(logger *log.Logger, flags *layoutFlags) http.Handler {
	s := &server{logger: logger, flags: flags}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Post("/layout", s.handleLayout)
	r.Post("/render.svg", s.handleRender)
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Microsecond),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathResponse is the JSON form of a flowmap.Path.
type pathResponse struct {
	ID     int             `json:"id"`
	Kind   string          `json:"kind"`
	Weight float64         `json:"weight"`
	Width  float64         `json:"width"`
	Curved bool            `json:"curved"`
	Leafs  map[int]float64 `json:"leafs"`
	D      string          `json:"d"`
}

type boundsResponse struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

type layoutResponse struct {
	Paths       []pathResponse `json:"paths"`
	PseudoRoots []int          `json:"pseudoRoots"`
	Bounds      boundsResponse `json:"bounds"`
}

func (s *server) handleLayout(w http.ResponseWriter, r *http.Request) {
	l, ok := s.layout(w, r)
	if !ok {
		return
	}

	paths := l.Paths(nil)
	resp := layoutResponse{
		Paths:       make([]pathResponse, len(paths)),
		PseudoRoots: l.Result().PseudoRoots(),
	}
	for i, p := range paths {
		resp.Paths[i] = pathResponse{
			ID:     p.ID,
			Kind:   p.Kind.String(),
			Weight: p.Weight,
			Width:  p.Width,
			Curved: p.Curved(),
			Leafs:  p.Leafs,
			D:      p.D(nil),
		}
	}
	b := l.Bounds()
	resp.Bounds = boundsResponse{
		Min: Point{X: b.X.Lo, Y: b.Y.Lo},
		Max: Point{X: b.X.Hi, Y: b.Y.Hi},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleRender(w http.ResponseWriter, r *http.Request) {
	style := render.DefaultStyle()
	q := r.URL.Query()
	for name, dst := range map[string]*int{"width": &style.Width, "height": &style.Height} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid "+name+": "+v)
			return
		}
		*dst = n
	}
	if q.Get("hull") == "false" {
		style.HullStyle = ""
	}

	l, ok := s.layout(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := render.SVG(w, l, style); err != nil {
		s.logger.Warn("write svg", "err", err)
	}
}

// layout decodes the request body and lays it out. On failure the error
// response is already written.
func (s *server) layout(w http.ResponseWriter, r *http.Request) (*flowmap.Layout, bool) {
	in, err := DecodeInput(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	flags := *s.flags
	if scale := r.URL.Query().Get("scale"); scale != "" {
		flags.scale = scale
	}
	if _, err := parseScale(flags.scale, 1, flags.maxWidth); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	l, err := buildLayout(r.Context(), s.logger, in, &flags)
	switch {
	case errors.Is(err, flowmap.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return l, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
