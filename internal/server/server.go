// Package server serves a built site over HTTP with a JSON search API,
// Prometheus metrics, health checks and optional LiveReload.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/search"
)

// Searcher answers search queries.
type Searcher interface {
	Search(ctx context.Context, q string) ([]search.Hit, error)
}

// Options configures a Server.
type Options struct {
	// Dir is the built site served as static files.
	Dir string

	// BasePath is the URL prefix the site is mounted under, e.g. "/docs-site/".
	BasePath string

	Search   Searcher
	Registry *prom.Registry
	Recorder metrics.Recorder

	// LiveReload enables the SSE endpoint and script injection when set.
	LiveReload *Hub
}

// Server is the HTTP front of a built site.
type Server struct {
	opts   Options
	router *chi.Mux
	srv    *http.Server
}

// ResolveBasePath picks the mount path: the explicit flag value, then the
// configured server base path, then the path component of baseURL. The
// result always starts and ends with a slash.
func ResolveBasePath(flag, configured, baseURL string) string {
	p := flag
	if p == "" {
		p = configured
	}
	if p == "" {
		if u, err := url.Parse(baseURL); err == nil {
			p = u.Path
		}
	}
	p = "/" + strings.Trim(p, "/") + "/"
	if p == "//" {
		p = "/"
	}
	return p
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	opts.BasePath = ResolveBasePath(opts.BasePath, "", "")
	s := &Server{opts: opts, router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	r.Get("/api/search", s.handleSearch)

	base := s.opts.BasePath
	if s.opts.LiveReload != nil {
		r.Handle(base+LiveReloadPath, s.opts.LiveReload)
	}

	var site http.Handler = http.StripPrefix(strings.TrimSuffix(base, "/"), http.FileServer(http.Dir(s.opts.Dir)))
	site = cacheControl(site)
	if s.opts.LiveReload != nil {
		site = injectLiveReload(base + LiveReloadPath)(site)
	}
	if base != "/" {
		r.Get(strings.TrimSuffix(base, "/"), func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, base, http.StatusMovedPermanently)
		})
	}
	r.Handle(base+"*", site)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	if s.opts.LiveReload == nil {
		s.srv.WriteTimeout = 30 * time.Second
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()
	slog.Info("Serving site", logfields.Addr(ln.Addr().String()), logfields.Path(s.opts.BasePath))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if s.opts.LiveReload != nil {
		s.opts.LiveReload.Shutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchResponse struct {
	Query   string       `json:"query"`
	Results []search.Hit `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if s.opts.Search == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "search is not available"})
		return
	}
	s.opts.Recorder.IncSearchQueries()
	hits, err := s.opts.Search.Search(r.Context(), q)
	if err != nil {
		slog.Warn("Search failed", slog.String("query", q), logfields.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: q, Results: hits})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs method, path, status and duration at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			slog.String("method", r.Method),
			logfields.Path(r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// cacheControl keeps pages and search data fresh while letting browsers
// hold on to static assets.
func cacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cc := cacheControlFor(r.URL.Path); cc != "" {
			w.Header().Set("Cache-Control", cc)
		}
		next.ServeHTTP(w, r)
	})
}

func cacheControlFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".html"), strings.HasSuffix(path, "/"), strings.HasSuffix(path, ".json"):
		return "no-cache, must-revalidate"
	case strings.HasSuffix(path, ".css"), strings.HasSuffix(path, ".js"):
		return "public, max-age=300"
	case hasAnySuffix(path, ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".woff", ".woff2"):
		return "public, max-age=604800"
	}
	return ""
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
