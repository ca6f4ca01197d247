// Package server exposes crawl snapshots to the visualization front-end over
// HTTP.
//
// Routes:
//
//	GET /healthz                     liveness
//	GET /api/snapshot                latest snapshot (entries, stats, run ID)
//	GET /api/graph?display=internal  materialized graph as JSON
//	GET /api/graph.dot?display=all   Graphviz DOT
//	GET /api/graph.svg?display=all   rendered SVG
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/orgdeps/pkg/graph"
	"github.com/matzehuels/orgdeps/pkg/render/nodelink"
	"github.com/matzehuels/orgdeps/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

// Server serves the latest snapshot of one organization.
type Server struct {
	org    string
	source storage.Source
	logger *log.Logger
	router chi.Router
}

// New creates a Server reading snapshots of org from source.
func New(org string, source storage.Source, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{org: org, source: source, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/graph", s.handleGraph)
		r.Get("/graph.dot", s.handleDOT)
		r.Get("/graph.svg", s.handleSVG)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Infof("Serving %s on %s", s.org, addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.latest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = w.Write([]byte(nodelink.ToDOT(g, nodelink.Options{})))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w, r)
	if !ok {
		return
	}
	svg, err := nodelink.RenderSVG(r.Context(), nodelink.ToDOT(g, nodelink.Options{}))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) graph(w http.ResponseWriter, r *http.Request) (graph.Graph, bool) {
	display, err := graph.ParseDisplay(r.URL.Query().Get("display"))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return graph.Graph{}, false
	}
	snap, ok := s.latest(w, r)
	if !ok {
		return graph.Graph{}, false
	}
	return graph.FromCache(snap.Entries, s.org, display), true
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) (storage.Snapshot, bool) {
	snap, err := s.source.Latest(r.Context(), s.org)
	if errors.Is(err, storage.ErrNotFound) {
		s.fail(w, r, http.StatusNotFound, err)
		return storage.Snapshot{}, false
	}
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return storage.Snapshot{}, false
	}
	return snap, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debugf("%s %s %d (%s) [%s]", r.Method, r.URL.RequestURI(), ww.Status(),
			time.Since(start).Round(time.Millisecond), middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
