package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/firmanjml/cs3-ext-flixhq/internal/config"
	"github.com/firmanjml/cs3-ext-flixhq/internal/extract"
	"github.com/firmanjml/cs3-ext-flixhq/internal/history"
	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
	"github.com/firmanjml/cs3-ext-flixhq/internal/logging"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
	"github.com/firmanjml/cs3-ext-flixhq/internal/metrics"
	"github.com/firmanjml/cs3-ext-flixhq/internal/provider"
	"github.com/firmanjml/cs3-ext-flixhq/internal/resolve"
)

// mirrorSlack is added to the socket deadline to bound one mirror, leaving
// room for the known extractors that run first.
const mirrorSlack = 15 * time.Second

const redisPingTimeout = 2 * time.Second

// app holds the components a command needs, built from the configuration.
type app struct {
	cfg      *config.Config
	client   *http.Client
	provider provider.Provider
	resolver *resolve.Resolver
	registry *prometheus.Registry
	history  *history.Store
	redis    *redis.Client
}

func newApp(c *config.Config) *app {
	a := &app{
		cfg:      c,
		client:   httputil.NewClient(),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector())
	metrics.Register(a.registry)

	a.provider = provider.NewSflix(c.Base, a.client)

	sel := &extract.Selector{
		Name:           c.Name,
		BaseURL:        c.Base,
		DefaultReferer: c.DefaultReferer,
		RefererHosts:   c.RefererHosts,
		Expander:       extract.NewHLSExpander(a.client),
		Logger:         logging.For(logger, "select"),
	}

	rabbit := extract.NewRabbitStream(c.SocketEndpoint, sel, logging.For(logger, "rabbitstream"))
	rabbit.Deadline = c.Deadline.Duration
	rabbit.PollInterval = c.PollInterval.Duration
	if c.Secret != "" {
		rabbit.Secret = []byte(c.Secret)
	}

	chain := extract.NewChain(logging.For(logger, "chain"),
		extract.NewAjax(a.client, sel, logging.For(logger, "ajax")),
		rabbit,
	)

	opts := resolve.Options{
		BlacklistedHosts: c.BlacklistedHosts,
		MaxConcurrency:   c.MaxConcurrency,
		RateLimit:        c.RateLimit,
		RateBurst:        c.RateBurst,
		MirrorTimeout:    c.Deadline.Duration + mirrorSlack,
		CacheTTL:         c.CacheTTL.Duration,
		Logger:           logging.For(logger, "resolve"),
	}
	opts.Cache, a.redis = newCache(c)
	if c.History {
		if store, err := openHistory(); err != nil {
			logger.Warn("history disabled", "err", err)
		} else {
			a.history = store
			opts.History = store
		}
	}

	a.resolver = resolve.New(chain, opts)
	return a
}

// newCache picks the resolution cache. A configured Redis that does not
// answer a ping at startup is replaced by the in-memory cache.
func newCache(c *config.Config) (resolve.Cache, *redis.Client) {
	if c.CacheTTL.Duration <= 0 {
		return nil, nil
	}
	if c.RedisAddr == "" {
		return resolve.NewMemoryCache(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	rc := resolve.NewRedisCache(client)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, using in-memory cache", "addr", c.RedisAddr, "err", err)
		client.Close()
		return resolve.NewMemoryCache(), nil
	}
	return rc, client
}

func openHistory() (*history.Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

// listMirrors lists the allow-listed mirrors of a content item.
func (a *app) listMirrors(ctx context.Context, contentID, episodeID string) ([]media.Mirror, error) {
	return provider.Mirrors(ctx, a.provider, provider.ContentID(contentID), episodeID, a.cfg.AllowedServers)
}

func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
