// Package resolve is the caller-facing API: it runs the extractor chain for
// one embed or fans out over a set of mirrors, with caching, rate limiting,
// history and metrics around every attempt.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/firmanjml/cs3-ext-flixhq/internal/extract"
	"github.com/firmanjml/cs3-ext-flixhq/internal/history"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
	"github.com/firmanjml/cs3-ext-flixhq/internal/metrics"
)

// ErrUnresolved is returned when neither links nor subtitles were found.
var ErrUnresolved = errors.New("unresolved: no links or subtitles")

const (
	defaultConcurrency   = 4
	defaultMirrorTimeout = 45 * time.Second
)

// Recorder stores resolution attempts. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options configures a Resolver. Zero values select defaults; a zero
// RateLimit disables outbound rate limiting.
type Options struct {
	BlacklistedHosts []string
	MaxConcurrency   int
	RateLimit        float64
	RateBurst        int
	MirrorTimeout    time.Duration

	Cache    Cache
	CacheTTL time.Duration
	History  Recorder
	Logger   *log.Logger
}

// MirrorResult is the outcome of resolving one mirror.
type MirrorResult struct {
	Mirror     media.Mirror
	Resolution *media.Resolution
	Err        error
}

// Resolver resolves embeds through an extractor.
type Resolver struct {
	extractor extract.Extractor
	opts      Options
	blacklist []string
	limiter   *rate.Limiter
	logger    *log.Logger
}

// New returns a Resolver around ex.
func New(ex extract.Extractor, opts Options) *Resolver {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultConcurrency
	}
	if opts.MirrorTimeout <= 0 {
		opts.MirrorTimeout = defaultMirrorTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := &Resolver{
		extractor: ex,
		opts:      opts,
		logger:    logger,
	}
	for _, h := range opts.BlacklistedHosts {
		h = strings.ToLower(strings.Trim(strings.TrimSpace(h), "."))
		if h != "" {
			r.blacklist = append(r.blacklist, h)
		}
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return r
}

// ResolveStreams resolves one embed URL or page id. It returns ErrUnresolved
// when nothing was found or the embed host is blacklisted.
func (r *Resolver) ResolveStreams(ctx context.Context, pageIdentifier string) (*media.Resolution, error) {
	return r.resolve(ctx, pageIdentifier, "")
}

// ResolveMirrors resolves every mirror concurrently and waits for all of
// them. A failing mirror does not cancel the others; each one gets its own
// deadline. Results keep the order of mirrors.
func (r *Resolver) ResolveMirrors(ctx context.Context, mirrors []media.Mirror) []MirrorResult {
	results := make([]MirrorResult, len(mirrors))
	sem := semaphore.NewWeighted(int64(r.opts.MaxConcurrency))

	var g errgroup.Group
	for i, m := range mirrors {
		i, m := i, m
		results[i].Mirror = m
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i].Err = err
				return nil
			}
			defer sem.Release(1)

			mctx, cancel := context.WithTimeout(ctx, r.opts.MirrorTimeout)
			defer cancel()
			results[i].Resolution, results[i].Err = r.resolve(mctx, m.EmbedURL, m.Server.Name)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Resolver) resolve(ctx context.Context, id, server string) (*media.Resolution, error) {
	id = strings.TrimSpace(id)
	start := time.Now()
	entry := history.Entry{
		PageID:   extract.PageID(id),
		EmbedURL: id,
		Server:   server,
	}

	if host, ok := r.blacklisted(id); ok {
		r.logger.Debug("embed host blacklisted", "host", host)
		entry.Outcome = history.OutcomeBlacklisted
		r.finish(ctx, entry, start)
		return nil, fmt.Errorf("%w: host %s is blacklisted", ErrUnresolved, host)
	}

	if res, ok := r.cached(ctx, id); ok {
		entry.Extractor = res.Extractor
		entry.Links = len(res.Links)
		entry.Subtitles = len(res.Subtitles)
		entry.Outcome = history.OutcomeCached
		r.finish(ctx, entry, start)
		return res, nil
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			entry.Outcome = history.OutcomeError
			r.finish(ctx, entry, start)
			return nil, err
		}
	}

	res, err := r.extractor.Extract(ctx, id)
	if res != nil {
		entry.Extractor = res.Extractor
		entry.Links = len(res.Links)
		entry.Subtitles = len(res.Subtitles)
	}
	if entry.Extractor == "" {
		entry.Extractor = r.extractor.Name()
	}

	switch {
	case err != nil && res.Empty():
		entry.Outcome = history.OutcomeError
		r.finish(ctx, entry, start)
		return nil, fmt.Errorf("%w: %w", ErrUnresolved, err)
	case res.Empty():
		entry.Outcome = history.OutcomeEmpty
		r.finish(ctx, entry, start)
		return nil, ErrUnresolved
	}

	entry.Outcome = history.OutcomeOK
	r.finish(ctx, entry, start)
	metrics.LinksResolved.Add(float64(len(res.Links)))
	r.store(ctx, id, res)
	return res, nil
}

// blacklisted reports the embed host when it equals, or is a subdomain of,
// a blacklisted host.
func (r *Resolver) blacklisted(id string) (string, bool) {
	if len(r.blacklist) == 0 {
		return "", false
	}
	u, err := url.Parse(id)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, b := range r.blacklist {
		if host == b || strings.HasSuffix(host, "."+b) {
			return host, true
		}
	}
	return "", false
}

func (r *Resolver) cached(ctx context.Context, id string) (*media.Resolution, bool) {
	if r.opts.Cache == nil {
		return nil, false
	}
	res, ok, err := r.opts.Cache.Get(ctx, id)
	if err != nil {
		r.logger.Warn("cache lookup failed", "err", err)
		ok = false
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return res, true
}

func (r *Resolver) store(ctx context.Context, id string, res *media.Resolution) {
	if r.opts.Cache == nil || r.opts.CacheTTL <= 0 {
		return
	}
	if err := r.opts.Cache.Set(ctx, id, res, r.opts.CacheTTL); err != nil {
		r.logger.Warn("cache store failed", "err", err)
	}
}

func (r *Resolver) finish(ctx context.Context, e history.Entry, start time.Time) {
	e.Duration = time.Since(start)
	e.At = start
	extractor := e.Extractor
	if extractor == "" {
		extractor = "none"
	}
	metrics.ResolutionsTotal.WithLabelValues(extractor, e.Outcome).Inc()
	metrics.ResolutionDuration.WithLabelValues(extractor).Observe(e.Duration.Seconds())

	r.logger.Debug("resolution finished",
		"page", e.PageID, "server", e.Server, "outcome", e.Outcome,
		"links", e.Links, "subtitles", e.Subtitles, "took", e.Duration)

	if r.opts.History == nil {
		return
	}
	// Record even when the caller's context is done.
	if err := r.opts.History.Record(context.WithoutCancel(ctx), e); err != nil {
		r.logger.Warn("recording history failed", "err", err)
	}
}
