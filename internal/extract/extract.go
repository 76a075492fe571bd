// Package extract resolves embed URLs into playable stream URLs, either
// through a known HTTP endpoint or through the resolver socket.
package extract

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// Extractor resolves embed URLs into playable streams.
type Extractor interface {
	Name() string
	CanExtract(embedURL string) bool
	Extract(ctx context.Context, embedURL string) (*media.Resolution, error)
}

// Chain tries each extractor that accepts the URL, in order, and returns the
// first non-empty resolution.
type Chain struct {
	extractors []Extractor
	logger     *log.Logger
}

// NewChain builds a chain. The socket client belongs last.
func NewChain(logger *log.Logger, extractors ...Extractor) *Chain {
	if logger == nil {
		logger = log.Default()
	}
	return &Chain{extractors: extractors, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) CanExtract(embedURL string) bool {
	for _, e := range c.extractors {
		if e.CanExtract(embedURL) {
			return true
		}
	}
	return false
}

// Extract returns an empty Resolution when no extractor found anything. An
// error is returned only when every extractor that was tried failed.
func (c *Chain) Extract(ctx context.Context, embedURL string) (*media.Resolution, error) {
	var lastErr error
	answered := false
	for _, e := range c.extractors {
		if !e.CanExtract(embedURL) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := e.Extract(ctx, embedURL)
		if err != nil {
			c.logger.Debug("extractor failed", "extractor", e.Name(), "err", err)
			lastErr = err
			continue
		}
		if !res.Empty() {
			if res.Extractor == "" {
				res.Extractor = e.Name()
			}
			return res, nil
		}
		answered = true
		c.logger.Debug("extractor returned nothing", "extractor", e.Name())
	}
	if answered || lastErr == nil {
		return &media.Resolution{}, nil
	}
	return &media.Resolution{}, lastErr
}
