// Package chi exposes stored crawl results over HTTP.
package chi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/sitescan"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sort directions accepted by the pages endpoint.
const (
	sortAscending  = "ascending"
	sortDescending = "descending"
)

// Server serves the query API.
type Server struct {
	router   chi.Router
	sites    sitescan.SiteService
	registry sitescan.RegistryService
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes the gatherer's metrics at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewServer constructs a Server with middleware and routes.
func NewServer(sites sitescan.SiteService, registry sitescan.RegistryService, opts ...Option) *Server {
	s := &Server{
		sites:    sites,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/registry", s.listRegistry)
		r.Get("/sites/{domain}/pages", s.listPages)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) listRegistry(w http.ResponseWriter, r *http.Request) {
	entries, err := s.registry.ListAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*sitescan.RegistryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	filter, err := parsePageFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	store, err := s.sites.ViewSite(r.Context(), domain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer store.Close()

	list, err := store.ListPages(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// parsePageFilter reads the pages query parameters. Unknown sort keys,
// directions or content types are rejected rather than ignored.
func parsePageFilter(r *http.Request) (sitescan.PageFilter, error) {
	q := r.URL.Query()
	var filter sitescan.PageFilter
	var err error

	if filter.Page, err = intParam(q.Get("page"), "page"); err != nil {
		return filter, err
	}
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.SortBy, err = sitescan.ParsePageSortKey(q.Get("sortKey")); err != nil {
		return filter, err
	}

	switch dir := q.Get("sortDirection"); dir {
	case "", sortAscending:
	case sortDescending:
		filter.Descending = true
	default:
		return filter, sitescan.Errorf(sitescan.EINVALID, "unsupported sort direction %q", dir)
	}

	if raw := q.Get("contentType"); raw != "" {
		ct, err := sitescan.ParseContentType(raw)
		if err != nil {
			return filter, err
		}
		filter.ContentType = &ct
	}

	filter.Search = q.Get("searchQuery")
	return filter, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, sitescan.Errorf(sitescan.EINVALID, "invalid %s %q", name, raw)
	}
	return n, nil
}

// logRequests logs each request after it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func(begin time.Time) {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(begin),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}(time.Now())
		next.ServeHTTP(ww, r)
	})
}

// writeError writes err as JSON with a status derived from its error code.
// Internal error details are logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := sitescan.ErrorCode(err)
	if code == sitescan.EINTERNAL {
		s.logger.Error("http error", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, errorStatusCode(code), map[string]string{"error": sitescan.ErrorMessage(err)})
}

// errorStatusCode maps application error codes to HTTP status codes.
func errorStatusCode(code string) int {
	switch code {
	case sitescan.EINVALID:
		return http.StatusBadRequest
	case sitescan.ENOTFOUND:
		return http.StatusNotFound
	case sitescan.ECONFLICT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("write JSON failed", "error", err)
	}
}
