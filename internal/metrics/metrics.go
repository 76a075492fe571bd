// Package metrics holds the Prometheus collectors for resolution and the
// HTTP service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flixres",
		Name:      "resolutions_total",
		Help:      "Resolution attempts by extractor and outcome (ok, empty, error).",
	}, []string{"extractor", "outcome"})

	ResolutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flixres",
		Name:      "resolution_duration_seconds",
		Help:      "Time to resolve one embed, including the socket handshake.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 45},
	}, []string{"extractor"})

	LinksResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flixres",
		Name:      "links_resolved_total",
		Help:      "Playable links handed to callers.",
	})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flixres",
		Name:      "cache_hits_total",
		Help:      "Total number of resolution cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flixres",
		Name:      "cache_misses_total",
		Help:      "Total number of resolution cache misses.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flixres",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "flixres",
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		ResolutionsTotal,
		ResolutionDuration,
		LinksResolved,
		CacheHitsTotal,
		CacheMissesTotal,
		HTTPRequestsTotal,
		RateLimitedTotal,
	)
}
