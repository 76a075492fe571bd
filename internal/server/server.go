// Package server exposes resolution over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
	"github.com/firmanjml/cs3-ext-flixhq/internal/metrics"
	"github.com/firmanjml/cs3-ext-flixhq/internal/resolve"
)

// Resolver is the part of *resolve.Resolver the handlers use.
type Resolver interface {
	ResolveStreams(ctx context.Context, pageIdentifier string) (*media.Resolution, error)
	ResolveMirrors(ctx context.Context, mirrors []media.Mirror) []resolve.MirrorResult
}

// MirrorLister lists the allowed mirrors of a content item.
type MirrorLister func(ctx context.Context, contentID, episodeID string) ([]media.Mirror, error)

// Options configures the router.
type Options struct {
	RateLimit float64 // requests per second; 0 disables limiting
	RateBurst int
	Gatherer  prometheus.Gatherer
}

// Handler serves the resolution endpoints.
type Handler struct {
	resolver Resolver
	mirrors  MirrorLister
	logger   *log.Logger
}

// NewHandler returns a Handler. mirrors may be nil, which disables
// GET /mirrors.
func NewHandler(r Resolver, mirrors MirrorLister, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{resolver: r, mirrors: mirrors, logger: logger}
}

// NewRouter wires the handlers, the metrics endpoint and the middleware.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestMetrics)
	if opts.RateLimit > 0 {
		r.Use(rateLimit(opts.RateLimit, opts.RateBurst))
	}

	r.Get("/health", h.Health)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/resolve", h.Resolve)
	if h.mirrors != nil {
		r.Get("/mirrors", h.Mirrors)
	}
	return r
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Resolve handles GET /resolve?id=<embed-url|page-id>.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "query parameter id is required")
		return
	}

	res, err := h.resolver.ResolveStreams(r.Context(), id)
	if err != nil {
		h.writeResolveError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type mirrorResponse struct {
	Server    string                `json:"server"`
	EmbedURL  string                `json:"embed_url"`
	Links     []media.ResolvedLink  `json:"links"`
	Subtitles []media.SubtitleTrack `json:"subtitles"`
	Error     string                `json:"error,omitempty"`
}

// Mirrors handles GET /mirrors?content=<content-id>&episode=<episode-id>.
func (h *Handler) Mirrors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	content := strings.TrimSpace(q.Get("content"))
	episode := strings.TrimSpace(q.Get("episode"))
	if content == "" && episode == "" {
		writeError(w, http.StatusBadRequest, "missing_content", "query parameter content or episode is required")
		return
	}

	mirrors, err := h.mirrors(r.Context(), content, episode)
	if err != nil {
		h.logger.Warn("listing mirrors failed", "content", content, "episode", episode, "err", err)
		writeError(w, http.StatusBadGateway, "upstream", "listing servers failed")
		return
	}

	out := make([]mirrorResponse, 0, len(mirrors))
	for _, mr := range h.resolver.ResolveMirrors(r.Context(), mirrors) {
		resp := mirrorResponse{
			Server:   mr.Mirror.Server.Name,
			EmbedURL: mr.Mirror.EmbedURL,
		}
		if mr.Resolution != nil {
			resp.Links = mr.Resolution.Links
			resp.Subtitles = mr.Resolution.Subtitles
		}
		if mr.Err != nil {
			resp.Error = mr.Err.Error()
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeResolveError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, resolve.ErrUnresolved):
		writeError(w, http.StatusNotFound, "unresolved", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "resolution timed out")
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		h.logger.Warn("resolve failed", "id", id, "err", err)
		writeError(w, http.StatusBadGateway, "upstream", err.Error())
	}
}

// rateLimit applies a global token bucket. /health and /metrics are exempt.
func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow() {
				metrics.RateLimitedTotal.Inc()
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestMetrics counts requests by route pattern, so ids in query strings
// never become label values.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
